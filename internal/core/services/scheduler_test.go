package services

import (
	"context"
	"testing"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven/mocks"
)

func TestScheduler_EnqueuesOnInterval(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	scheduler := NewScheduler(SchedulerConfig{
		TaskQueue:       queue,
		RefreshInterval: 10 * time.Millisecond,
	})

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		stats, _ := queue.Stats(context.Background())
		if stats.PendingCount > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no refresh task enqueued within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
	scheduler.Stop()

	task, err := queue.DequeueWithTimeout(context.Background(), 0)
	if err != nil || task == nil {
		t.Fatalf("dequeue: task=%v err=%v", task, err)
	}
	if task.Type != domain.TaskTypeRefreshStale {
		t.Errorf("task type = %q, want refresh_stale", task.Type)
	}
}

func TestScheduler_LockPreventsDuplicateEnqueue(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	lock := mocks.NewMockDistributedLock()
	scheduler := NewScheduler(SchedulerConfig{
		TaskQueue:       queue,
		Lock:            lock,
		RefreshInterval: time.Hour,
	})

	lock.SetLockHeld("scheduler:refresh", time.Minute)
	scheduler.enqueueRefresh(context.Background())

	stats, _ := queue.Stats(context.Background())
	if stats.PendingCount != 0 {
		t.Errorf("expected no enqueue while lock held elsewhere, got %d", stats.PendingCount)
	}
}

func TestScheduler_TriggerNow(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	scheduler := NewScheduler(SchedulerConfig{TaskQueue: queue, RefreshInterval: time.Hour})

	task, err := scheduler.TriggerNow(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type != domain.TaskTypeRefreshStale {
		t.Errorf("task type = %q, want refresh_stale", task.Type)
	}

	queued, err := queue.GetTask(context.Background(), task.ID)
	if err != nil || queued == nil {
		t.Fatalf("task not in queue: %v", err)
	}
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	scheduler := NewScheduler(SchedulerConfig{
		TaskQueue:       mocks.NewMockTaskQueue(),
		RefreshInterval: time.Hour,
	})

	ctx := context.Background()
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
	scheduler.Stop()
	scheduler.Stop()
}
