package pipeline

import (
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

// JobQueue holds pending jobs in three FIFO tiers, one per priority.
// Dequeue drains the highest non-empty tier first. The queue performs no
// locking of its own: the manager serializes every access under its state
// mutex.
type JobQueue struct {
	high   []*domain.Job
	normal []*domain.Job
	low    []*domain.Job
}

func NewJobQueue() *JobQueue {
	return &JobQueue{}
}

// Enqueue appends the job to the tail of its priority tier. Jobs with an
// unrecognized priority land in the normal tier.
func (q *JobQueue) Enqueue(job *domain.Job) {
	switch job.Priority {
	case domain.PriorityHigh:
		q.high = append(q.high, job)
	case domain.PriorityLow:
		q.low = append(q.low, job)
	default:
		q.normal = append(q.normal, job)
	}
}

// Dequeue removes and returns the head of the highest non-empty tier.
// The second result is false when every tier is empty; absence of work is
// not an error.
func (q *JobQueue) Dequeue() (*domain.Job, bool) {
	for _, tier := range []*[]*domain.Job{&q.high, &q.normal, &q.low} {
		if len(*tier) == 0 {
			continue
		}
		job := (*tier)[0]
		(*tier)[0] = nil
		*tier = (*tier)[1:]
		return job, true
	}
	return nil, false
}

// Remove deletes the job with the given id from whichever tier holds it and
// reports whether it was present.
func (q *JobQueue) Remove(jobID string) bool {
	for _, tier := range []*[]*domain.Job{&q.high, &q.normal, &q.low} {
		for index, job := range *tier {
			if job.ID != jobID {
				continue
			}
			*tier = append((*tier)[:index], (*tier)[index+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns the queued jobs in dequeue order. The slice is freshly
// allocated; queue state is not mutated.
func (q *JobQueue) Snapshot() []*domain.Job {
	snapshot := make([]*domain.Job, 0, q.Len())
	snapshot = append(snapshot, q.high...)
	snapshot = append(snapshot, q.normal...)
	snapshot = append(snapshot, q.low...)
	return snapshot
}

func (q *JobQueue) Len() int {
	return len(q.high) + len(q.normal) + len(q.low)
}
