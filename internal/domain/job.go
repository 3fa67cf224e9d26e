package domain

import "time"

type JobType string

const (
	JobTypeSingle      JobType = "single"
	JobTypeBatchMember JobType = "batch-member"
)

// Priority controls queue ordering: higher tiers are dequeued first,
// FIFO within a tier.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	default:
		return false
	}
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether no further status transition is allowed.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// StageErrorRecord is one failed attempt kept in a job's error history.
type StageErrorRecord struct {
	Stage     int       `json:"stage"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Job is one schedulable unit carrying a source through the import pipeline.
// SourceURLs is set only for sequential batch jobs, which iterate the list
// inside a single execution slot.
type Job struct {
	ID       string
	Type     JobType
	BatchID  string
	Priority Priority
	Status   JobStatus
	// CurrentStage is -1 until the first stage starts, then the 0-based
	// index of the stage being (or last) executed.
	CurrentStage int
	// Attempts counts tries of the current stage and resets on advance.
	Attempts   int
	SourceURL  string
	SourceURLs []string
	Errors     []StageErrorRecord
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusPartial    BatchStatus = "partial"
)

func (s BatchStatus) Terminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusPartial
}

// Batch aggregates the jobs created from one multi-URL import request.
// Status is always derived from member terminal states, never set directly
// by callers. TotalJobs is fixed at creation.
type Batch struct {
	ID            string
	TotalJobs     int
	CompletedJobs int
	FailedJobs    int
	Status        BatchStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
