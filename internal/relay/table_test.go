package relay

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_TakeIsIdempotent(t *testing.T) {
	tbl := NewTable()
	require.True(t, tbl.Put(PendingRequest{ID: "r1", BotID: 1}))

	req, ok := tbl.Take("r1")
	require.True(t, ok)
	assert.Equal(t, int64(1), req.BotID)

	_, ok = tbl.Take("r1")
	assert.False(t, ok)
	_, ok = tbl.Take("never-existed")
	assert.False(t, ok)
	assert.Zero(t, tbl.Len())
}

func TestTable_ConcurrentTakeHasOneWinner(t *testing.T) {
	for round := 0; round < 50; round++ {
		tbl := NewTable()
		require.True(t, tbl.Put(PendingRequest{ID: "r"}))

		var winners atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if _, ok := tbl.Take("r"); ok {
					winners.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		require.Equal(t, int32(1), winners.Load())
	}
}

func TestTable_PutRejectsDuplicateID(t *testing.T) {
	tbl := NewTable()
	assert.True(t, tbl.Put(PendingRequest{ID: "r", BotID: 1}))
	assert.False(t, tbl.Put(PendingRequest{ID: "r", BotID: 2}))

	snap := tbl.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(1), snap[0].BotID)
}

func TestTable_SnapshotKeepsInsertionOrder(t *testing.T) {
	tbl := NewTable()
	for _, id := range []string{"z", "a", "m", "b"} {
		require.True(t, tbl.Put(PendingRequest{ID: id}))
	}
	tbl.Take("m")

	var ids []string
	for _, r := range tbl.Snapshot() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"z", "a", "b"}, ids)
}

func TestTable_ArmAbsentEntry(t *testing.T) {
	tbl := NewTable()
	assert.False(t, tbl.Arm("missing", time.Millisecond, func() { t.Error("must not fire") }))
}

func TestTable_ArmNegativeDelayFiresNow(t *testing.T) {
	tbl := NewTable()
	require.True(t, tbl.Put(PendingRequest{ID: "r"}))
	fired := make(chan struct{})
	require.True(t, tbl.Arm("r", -time.Hour, func() { close(fired) }))
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer with negative delay did not fire")
	}
}

func TestTable_CloseStopsTimersAndRefusesPut(t *testing.T) {
	tbl := NewTable()
	require.True(t, tbl.Put(PendingRequest{ID: "r1"}))
	require.True(t, tbl.Put(PendingRequest{ID: "r2"}))
	var fired atomic.Bool
	tbl.Arm("r1", 20*time.Millisecond, func() { fired.Store(true) })

	assert.Equal(t, 2, tbl.Close())
	assert.Zero(t, tbl.Len())
	assert.False(t, tbl.Put(PendingRequest{ID: "r3"}))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestPendingRequest_Expired(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	req := PendingRequest{ExpireAt: at}
	assert.False(t, req.Expired(at.Add(-time.Second)))
	assert.False(t, req.Expired(at))
	assert.True(t, req.Expired(at.Add(time.Nanosecond)))
}
