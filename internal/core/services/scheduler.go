package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Scheduler periodically enqueues a stale-refresh task so worker nodes
// re-ingest documents whose content may have drifted.
//
// For multi-worker deployments, configure a DistributedLock to prevent
// duplicate enqueuing across instances.
type Scheduler struct {
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	interval time.Duration
	lockTTL  time.Duration
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	TaskQueue driven.TaskQueue
	// Lock is optional: distributed lock for multi-instance coordination.
	Lock   driven.DistributedLock
	Logger *slog.Logger
	// RefreshInterval is how often a refresh task is enqueued (default: 1h).
	RefreshInterval time.Duration
	// LockTTL is the TTL for the distributed lock (default: 2x interval).
	LockTTL time.Duration
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = time.Hour
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 2 * interval
	}

	return &Scheduler{
		taskQueue: cfg.TaskQueue,
		lock:      cfg.Lock,
		logger:    logger,
		interval:  interval,
		lockTTL:   lockTTL,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "refresh_interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.enqueueRefresh(ctx)
		}
	}
}

// enqueueRefresh enqueues one stale-refresh task. With a lock configured,
// only one instance per interval wins the enqueue.
func (s *Scheduler) enqueueRefresh(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, "scheduler:refresh", s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire scheduler lock", "error", err)
			return
		}
		if !acquired {
			s.logger.Debug("scheduler lock held by another instance, skipping cycle")
			return
		}
		// Held for the full TTL; expiry gates the next cycle's winner.
	}

	task := domain.NewRefreshStaleTask()
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		s.logger.Error("failed to enqueue refresh task", "task_id", task.ID, "error", err)
		return
	}

	s.logger.Info("enqueued stale refresh task", "task_id", task.ID)
}

// TriggerNow immediately enqueues a stale-refresh task, ignoring the
// interval and any lock.
func (s *Scheduler) TriggerNow(ctx context.Context) (*domain.Task, error) {
	task := domain.NewRefreshStaleTask()
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("manually triggered stale refresh", "task_id", task.ID)
	return task, nil
}
