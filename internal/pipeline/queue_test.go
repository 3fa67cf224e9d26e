package pipeline

import (
	"testing"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

func queuedJob(id string, priority domain.Priority) *domain.Job {
	return &domain.Job{
		ID:       id,
		Priority: priority,
		Status:   domain.JobStatusPending,
	}
}

func TestJobQueuePriorityOrdering(t *testing.T) {
	queue := NewJobQueue()
	queue.Enqueue(queuedJob("low-1", domain.PriorityLow))
	queue.Enqueue(queuedJob("normal-1", domain.PriorityNormal))
	queue.Enqueue(queuedJob("high-1", domain.PriorityHigh))
	queue.Enqueue(queuedJob("high-2", domain.PriorityHigh))
	queue.Enqueue(queuedJob("normal-2", domain.PriorityNormal))

	expected := []string{"high-1", "high-2", "normal-1", "normal-2", "low-1"}
	for _, want := range expected {
		job, ok := queue.Dequeue()
		if !ok {
			t.Fatalf("queue empty, expected job %s", want)
		}
		if job.ID != want {
			t.Fatalf("expected job %s, got %s", want, job.ID)
		}
	}
	if _, ok := queue.Dequeue(); ok {
		t.Fatalf("expected empty queue after draining")
	}
}

func TestJobQueueEmptyDequeueIsNotAnError(t *testing.T) {
	queue := NewJobQueue()
	job, ok := queue.Dequeue()
	if ok || job != nil {
		t.Fatalf("expected (nil, false) from empty queue, got (%v, %v)", job, ok)
	}
}

func TestJobQueueRemove(t *testing.T) {
	queue := NewJobQueue()
	queue.Enqueue(queuedJob("a", domain.PriorityNormal))
	queue.Enqueue(queuedJob("b", domain.PriorityNormal))
	queue.Enqueue(queuedJob("c", domain.PriorityNormal))

	if !queue.Remove("b") {
		t.Fatalf("expected removal of queued job")
	}
	if queue.Remove("b") {
		t.Fatalf("expected second removal to report absence")
	}
	if queue.Len() != 2 {
		t.Fatalf("expected 2 remaining jobs, got %d", queue.Len())
	}

	first, _ := queue.Dequeue()
	second, _ := queue.Dequeue()
	if first.ID != "a" || second.ID != "c" {
		t.Fatalf("expected a then c, got %s then %s", first.ID, second.ID)
	}
}

func TestJobQueueSnapshotDoesNotMutate(t *testing.T) {
	queue := NewJobQueue()
	queue.Enqueue(queuedJob("n", domain.PriorityNormal))
	queue.Enqueue(queuedJob("h", domain.PriorityHigh))

	snapshot := queue.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected snapshot of 2 jobs, got %d", len(snapshot))
	}
	if snapshot[0].ID != "h" || snapshot[1].ID != "n" {
		t.Fatalf("expected dequeue order h, n in snapshot, got %s, %s", snapshot[0].ID, snapshot[1].ID)
	}
	if queue.Len() != 2 {
		t.Fatalf("snapshot must not drain the queue, len=%d", queue.Len())
	}
}

func TestJobQueueUnknownPriorityFallsBackToNormal(t *testing.T) {
	queue := NewJobQueue()
	queue.Enqueue(queuedJob("odd", domain.Priority("urgent")))
	queue.Enqueue(queuedJob("high", domain.PriorityHigh))

	job, _ := queue.Dequeue()
	if job.ID != "high" {
		t.Fatalf("unknown priority must not outrank high, got %s first", job.ID)
	}
}
