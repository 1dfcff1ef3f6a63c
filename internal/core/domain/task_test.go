package domain

import (
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == "" || id2 == "" {
		t.Error("expected non-empty IDs")
	}
	if id1 == id2 {
		t.Error("expected unique IDs")
	}
	// Canonical UUID string form
	if len(id1) != 36 {
		t.Errorf("expected ID length 36, got %d", len(id1))
	}
}

func TestNewIngestTask(t *testing.T) {
	opts := DefaultIngestOptions()
	opts.DeepCrawl = true

	task := NewIngestTask("https://example.com/docs", opts)

	if task.ID == "" {
		t.Error("expected non-empty ID")
	}
	if task.Type != TaskTypeIngestURL {
		t.Errorf("expected type %s, got %s", TaskTypeIngestURL, task.Type)
	}
	if task.URL != "https://example.com/docs" {
		t.Errorf("unexpected URL %s", task.URL)
	}
	if !task.Options.DeepCrawl {
		t.Error("expected options to be carried")
	}
	if task.Status != TaskStatusPending {
		t.Errorf("expected status pending, got %s", task.Status)
	}
	if task.MaxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", task.MaxAttempts)
	}
}

func TestTaskLifecycle(t *testing.T) {
	task := NewIngestTask("https://example.com", DefaultIngestOptions())

	if !task.IsReady() {
		t.Error("new task should be ready")
	}

	task.MarkProcessing()
	if task.Status != TaskStatusProcessing {
		t.Errorf("expected processing, got %s", task.Status)
	}
	if task.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", task.Attempts)
	}
	if task.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}

	task.MarkCompleted()
	if task.Status != TaskStatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	if task.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
}

func TestTaskRetryBackoff(t *testing.T) {
	task := NewIngestTask("https://example.com", DefaultIngestOptions())

	task.MarkProcessing()
	before := time.Now()
	task.Retry("fetch failed")

	if task.Status != TaskStatusPending {
		t.Errorf("expected pending after retry, got %s", task.Status)
	}
	if task.Error != "fetch failed" {
		t.Errorf("expected error recorded, got %q", task.Error)
	}
	if !task.ScheduledFor.After(before) {
		t.Error("expected retry to be scheduled in the future")
	}
}

func TestTaskCanRetry(t *testing.T) {
	task := NewIngestTask("https://example.com", DefaultIngestOptions())
	task.MaxAttempts = 2

	if !task.CanRetry() {
		t.Error("fresh task should be retryable")
	}

	task.MarkProcessing()
	task.MarkProcessing()
	if task.CanRetry() {
		t.Error("task at max attempts should not be retryable")
	}
}

func TestTaskMarshalRoundTrip(t *testing.T) {
	task := NewIngestTask("https://example.com", DefaultIngestOptions())

	data, err := task.Marshal()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	decoded, err := UnmarshalTask(data)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.ID != task.ID || decoded.URL != task.URL || decoded.Type != task.Type {
		t.Errorf("round trip mismatch: %+v vs %+v", decoded, task)
	}
}
