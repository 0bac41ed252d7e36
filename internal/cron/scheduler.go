package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lhdbsbz/botproxy/internal/config"
	"github.com/robfig/cron/v3"
)

const (
	triggerTimeout = time.Minute
	maxRuns        = 1000
)

// Job is a capability invocation fired on a cron schedule.
type Job struct {
	Name        string `json:"name"`
	Schedule    string `json:"schedule"` // cron expression, seconds field optional
	Desc        string `json:"desc"`
	SourceGroup int64  `json:"sourceGroup"`
	Enabled     bool   `json:"enabled"`
}

// RunRecord tracks a job execution.
type RunRecord struct {
	Job       string    `json:"job"`
	StartedAt time.Time `json:"startedAt"`
	Duration  string    `json:"duration"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// TriggerFunc is called when a job fires.
type TriggerFunc func(ctx context.Context, desc string, sourceGroup int64) error

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler runs configured jobs. Jobs are not persisted; they are rebuilt from config.
type Scheduler struct {
	mu       sync.RWMutex
	cron     *cron.Cron
	jobs     map[string]*Job
	entryMap map[string]cron.EntryID // job name → cron entry
	trigger  TriggerFunc
	runs     []RunRecord
}

func NewScheduler(trigger TriggerFunc) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithParser(parser)),
		jobs:     make(map[string]*Job),
		entryMap: make(map[string]cron.EntryID),
		trigger:  trigger,
	}
}

// Load replaces all jobs with cfgs. Invalid or duplicate entries are logged and skipped;
// the returned error joins their reasons.
func (s *Scheduler) Load(cfgs []config.ScheduleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, entryID := range s.entryMap {
		s.cron.Remove(entryID)
		delete(s.entryMap, name)
	}
	clear(s.jobs)

	var errs []error
	for _, c := range cfgs {
		job := &Job{Name: c.Name, Schedule: c.Schedule, Desc: c.Desc, SourceGroup: c.SourceGroup, Enabled: c.Enabled}
		if err := s.addLocked(job); err != nil {
			slog.Error("schedule skipped", "job", c.Name, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d schedule(s) skipped: %v", len(errs), errs)
	}
	return nil
}

func (s *Scheduler) addLocked(job *Job) error {
	if job.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("duplicate schedule %q", job.Name)
	}
	if job.Desc == "" {
		return fmt.Errorf("schedule %q: desc is required", job.Name)
	}
	if _, err := parser.Parse(job.Schedule); err != nil {
		return fmt.Errorf("schedule %q: invalid cron expression: %w", job.Name, err)
	}
	s.jobs[job.Name] = job
	if !job.Enabled {
		return nil
	}
	entryID, err := s.cron.AddFunc(job.Schedule, func() { s.executeJob(job) })
	if err != nil {
		delete(s.jobs, job.Name)
		return fmt.Errorf("schedule %q: %w", job.Name, err)
	}
	s.entryMap[job.Name] = entryID
	return nil
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("cron scheduler started", "jobs", len(s.List()))
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// List returns all jobs sorted by name.
func (s *Scheduler) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, *j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Name < jobs[k].Name })
	return jobs
}

// Runs returns a copy of the recent execution records.
func (s *Scheduler) Runs() []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RunRecord(nil), s.runs...)
}

// RunNow triggers a job synchronously, enabled or not.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	return s.executeJob(job)
}

func (s *Scheduler) executeJob(job *Job) error {
	start := time.Now()
	slog.Info("cron job executing", "job", job.Name, "desc", job.Desc)

	ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
	defer cancel()

	err := s.trigger(ctx, job.Desc, job.SourceGroup)
	duration := time.Since(start)

	record := RunRecord{
		Job:       job.Name,
		StartedAt: start,
		Duration:  duration.String(),
		Success:   err == nil,
	}
	if err != nil {
		record.Error = err.Error()
		slog.Error("cron job failed", "job", job.Name, "error", err, "duration", duration)
	} else {
		slog.Info("cron job completed", "job", job.Name, "duration", duration)
	}

	s.mu.Lock()
	s.runs = append(s.runs, record)
	if len(s.runs) > maxRuns {
		s.runs = s.runs[len(s.runs)-maxRuns/2:]
	}
	s.mu.Unlock()
	return err
}
