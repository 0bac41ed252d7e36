package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lhdbsbz/botproxy/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Desc        string
	SourceGroup int64
}

type recorder struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (r *recorder) trigger(_ context.Context, desc string, sourceGroup int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{desc, sourceGroup})
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestScheduler_LoadSkipsInvalid(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.trigger)

	err := s.Load([]config.ScheduleConfig{
		{Name: "ok", Schedule: "0 9 * * *", Desc: "网络测试", SourceGroup: 3001, Enabled: true},
		{Name: "seconds", Schedule: "*/30 * * * * *", Desc: "网络测试", Enabled: true},
		{Name: "bad", Schedule: "not a cron", Desc: "x", Enabled: true},
		{Name: "ok", Schedule: "0 10 * * *", Desc: "dup", Enabled: true},
		{Name: "nodesc", Schedule: "0 9 * * *", Enabled: true},
		{Name: "", Schedule: "0 9 * * *", Desc: "x"},
		{Name: "off", Schedule: "@hourly", Desc: "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 schedule(s) skipped")

	var names []string
	for _, j := range s.List() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{"off", "ok", "seconds"}, names)
	assert.Len(t, s.entryMap, 2, "disabled jobs are not scheduled")
}

func TestScheduler_ReloadReplacesJobs(t *testing.T) {
	s := NewScheduler((&recorder{}).trigger)
	require.NoError(t, s.Load([]config.ScheduleConfig{{Name: "a", Schedule: "@daily", Desc: "x", Enabled: true}}))
	require.NoError(t, s.Load([]config.ScheduleConfig{{Name: "b", Schedule: "@daily", Desc: "y", Enabled: true}}))

	jobs := s.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, "b", jobs[0].Name)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_RunNowRecordsRuns(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.trigger)
	require.NoError(t, s.Load([]config.ScheduleConfig{{Name: "ping", Schedule: "@daily", Desc: "网络测试", SourceGroup: 3001}}))

	require.NoError(t, s.RunNow("ping"))
	assert.Equal(t, []call{{"网络测试", 3001}}, rec.calls)

	rec.err = errors.New("boom")
	assert.EqualError(t, s.RunNow("ping"), "boom")

	runs := s.Runs()
	require.Len(t, runs, 2)
	assert.True(t, runs[0].Success)
	assert.False(t, runs[1].Success)
	assert.Equal(t, "boom", runs[1].Error)

	assert.ErrorContains(t, s.RunNow("missing"), "not found")
}

func TestScheduler_StartFiresEnabledJobs(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.trigger)
	require.NoError(t, s.Load([]config.ScheduleConfig{{Name: "tick", Schedule: "@every 1s", Desc: "网络测试", SourceGroup: 1, Enabled: true}}))

	s.Start()
	defer s.Stop()
	require.Eventually(t, func() bool { return rec.count() >= 1 }, 3*time.Second, 20*time.Millisecond)
}
