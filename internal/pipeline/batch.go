package pipeline

import (
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

// Batch accounting. The batch record never drives execution; it only
// aggregates member outcomes. In parallel mode every member job settles one
// counter slot on its terminal transition; in sequential mode the composite
// job settles one slot per URL as the loop advances.

// settleMember updates batch counters for one terminal member outcome and
// emits batch-updated.
func (m *Manager) settleMember(batchID string, status domain.JobStatus) {
	m.mu.Lock()
	snapshot := m.settleMemberLocked(batchID, status)
	m.mu.Unlock()
	m.emitBatchUpdated(snapshot)
}

// settleRemaining counts URLs a cancelled composite job never reached as
// failed so the batch record can still settle.
func (m *Manager) settleRemaining(batchID string, count int) {
	for i := 0; i < count; i++ {
		m.settleMember(batchID, domain.JobStatusFailed)
	}
}

// settleCancelledMemberLocked settles batch accounting for a member
// cancelled before dispatch. A composite member settles every URL it would
// have imported.
func (m *Manager) settleCancelledMemberLocked(job *domain.Job) *domain.Batch {
	if job.BatchID == "" {
		return nil
	}
	if len(job.SourceURLs) > 0 {
		var snapshot *domain.Batch
		for range job.SourceURLs {
			snapshot = m.settleMemberLocked(job.BatchID, domain.JobStatusCancelled)
		}
		return snapshot
	}
	return m.settleMemberLocked(job.BatchID, domain.JobStatusCancelled)
}

// settleMemberLocked moves one member outcome into the batch counters and
// derives the batch status. Counters only advance toward TotalJobs, never
// past it. A cancelled member counts as failed for aggregation: the batch
// cannot be complete when one of its imports never happened.
func (m *Manager) settleMemberLocked(batchID string, status domain.JobStatus) *domain.Batch {
	if batchID == "" {
		return nil
	}
	batch, ok := m.batches[batchID]
	if !ok {
		return nil
	}
	if batch.CompletedJobs+batch.FailedJobs >= batch.TotalJobs {
		return nil
	}

	if status == domain.JobStatusCompleted {
		batch.CompletedJobs++
	} else {
		batch.FailedJobs++
	}
	batch.UpdatedAt = time.Now().UTC()

	if batch.CompletedJobs+batch.FailedJobs == batch.TotalJobs {
		if batch.FailedJobs == 0 {
			batch.Status = domain.BatchStatusCompleted
		} else {
			batch.Status = domain.BatchStatusPartial
		}
	} else {
		batch.Status = domain.BatchStatusProcessing
	}

	snapshot := *batch
	return &snapshot
}

func (m *Manager) markBatchProcessingLocked(batchID string, now time.Time) *domain.Batch {
	if batchID == "" {
		return nil
	}
	batch, ok := m.batches[batchID]
	if !ok || batch.Status != domain.BatchStatusPending {
		return nil
	}
	batch.Status = domain.BatchStatusProcessing
	batch.UpdatedAt = now
	snapshot := *batch
	return &snapshot
}
