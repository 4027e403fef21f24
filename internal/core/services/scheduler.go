package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/ports/driving"
	"github.com/custodia-labs/replica/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driven.JobScheduler = (*Scheduler)(nil)

// historyLimit is the number of task results kept.
const historyLimit = 100

// Scheduler runs the periodic sync task and one-shot delayed jobs.
// It is a pure core service with no external control API.
type Scheduler struct {
	syncSvc  driving.SyncService
	interval time.Duration

	// ctx is cancelled by Stop; jobs run under it
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	task    domain.ScheduledTask
	history []domain.TaskResult
	timers  map[*time.Timer]func(ctx context.Context) error
}

// NewScheduler creates a scheduler syncing every interval.
// A non-positive interval disables the periodic task; one-shot jobs still run.
func NewScheduler(syncSvc driving.SyncService, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		syncSvc:  syncSvc,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
		task:     domain.ScheduledTask{ID: domain.TaskIDSync, Interval: interval},
		timers:   make(map[*time.Timer]func(ctx context.Context) error),
	}
}

// Bind sets the sync service run by the periodic task. The sync engine
// takes the scheduler at construction, so it is bound afterwards.
func (s *Scheduler) Bind(syncSvc driving.SyncService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncSvc = syncSvc
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	return s.run(ctx)
}

// Stop cancels pending jobs and waits for running ones to finish.
// Pending jobs are called once with the cancelled context.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.running = false
	close(s.stopCh)
	s.cancel()
	var cancelled []func(ctx context.Context) error
	for t, fn := range s.timers {
		if t.Stop() {
			// the job never started
			cancelled = append(cancelled, fn)
			s.wg.Done()
		}
		delete(s.timers, t)
	}
	s.mu.Unlock()

	for _, fn := range cancelled {
		_ = fn(s.ctx)
	}
	s.wg.Wait()
	return nil
}

// ScheduleOnce runs fn after delay without blocking the caller. Jobs
// scheduled after Stop are dropped.
func (s *Scheduler) ScheduleOnce(id string, delay time.Duration, fn func(ctx context.Context) error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		logger.Warn("scheduler: dropping job %s, scheduler stopped", id)
		return false
	}

	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()

		if s.ctx.Err() != nil {
			_ = fn(s.ctx)
			return
		}
		logger.Debug("scheduler: running job %s", id)
		if err := fn(s.ctx); err != nil {
			logger.Warn("scheduler: job %s failed: %v", id, err)
		}
	})
	s.timers[t] = fn
	return true
}

// Task returns the state of the periodic sync task.
func (s *Scheduler) Task() domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

// History returns recent task results, oldest first.
func (s *Scheduler) History() []domain.TaskResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TaskResult(nil), s.history...)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	if s.interval <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		}
	}

	// Sync immediately on startup
	s.runSync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.runSync(ctx)
		}
	}
}

// runSync executes the periodic sync task and records its result.
func (s *Scheduler) runSync(ctx context.Context) {
	result := domain.TaskResult{
		TaskID:    domain.TaskIDSync,
		StartedAt: time.Now(),
	}

	s.mu.Lock()
	syncSvc := s.syncSvc
	s.mu.Unlock()
	if syncSvc == nil {
		logger.Warn("scheduler: no sync service bound, skipping run")
		return
	}

	res, err := syncSvc.Sync(ctx, "")
	result.EndedAt = time.Now()
	result.ItemsProcessed = res.ItemsSynced

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		result.Error = err.Error()
		s.task.LastError = err.Error()
		logger.Warn("scheduler: sync failed: %v", err)
	} else {
		result.Success = true
		s.task.LastError = ""
		s.task.LastSuccess = result.EndedAt
	}
	s.task.Runs++
	s.task.LastRun = result.StartedAt
	s.task.NextRun = result.EndedAt.Add(s.interval)

	s.history = append(s.history, result)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}
