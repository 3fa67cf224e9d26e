package pipeline

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

var (
	ErrSourceRequired  = errors.New("pipeline: source url is required")
	ErrEmptyBatch      = errors.New("pipeline: batch requires at least one url")
	ErrAlreadyStarted  = errors.New("pipeline: manager already started")
	ErrMissingStageSet = errors.New("pipeline: stage set is incomplete")
)

// Stats is a point-in-time view of the manager's job tables.
type Stats struct {
	QueuedJobs    int     `json:"queued_jobs"`
	ActiveJobs    int     `json:"active_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	FailedJobs    int     `json:"failed_jobs"`
	CancelledJobs int     `json:"cancelled_jobs"`
	SuccessRate   float64 `json:"success_rate"`
}

type jobRecord struct {
	job             *domain.Job
	cancel          context.CancelFunc
	cancelRequested bool
}

// Manager is the process-wide pipeline coordinator: it admits jobs, drains
// the queue under the concurrency ceiling, drives each job through the four
// stages via the retry executor, owns every job/batch state transition, and
// emits lifecycle events. Construct one per application; tests construct
// their own independent instances.
type Manager struct {
	logger *log.Logger
	stages StageSet
	bus    *Bus
	kick   chan struct{}

	mu      sync.Mutex
	cfg     Config
	queue   *JobQueue
	jobs    map[string]*jobRecord
	batches map[string]*domain.Batch
	active  int
	started bool

	wg sync.WaitGroup
}

func NewManager(cfg Config, stages StageSet, logger *log.Logger) (*Manager, error) {
	if err := stages.validate(); err != nil {
		return nil, err
	}
	return &Manager{
		logger:  logger,
		stages:  stages,
		bus:     NewBus(logger),
		kick:    make(chan struct{}, 1),
		cfg:     cfg.normalized(),
		queue:   NewJobQueue(),
		jobs:    make(map[string]*jobRecord),
		batches: make(map[string]*domain.Batch),
	}, nil
}

// Start launches the scheduling loop and the housekeeping task. Jobs may be
// created before Start; they stay queued until the loop runs. The manager
// stops when ctx is cancelled; in-flight jobs observe the cancellation at
// their next stage boundary.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(2)
	go m.schedule(ctx)
	go m.housekeep(ctx)
	m.kickScheduler()
	return nil
}

// Wait blocks until the scheduling loop and housekeeping task have exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Subscribe registers an event listener; see Bus.Subscribe.
func (m *Manager) Subscribe(fn Listener, kinds ...EventKind) int {
	return m.bus.Subscribe(fn, kinds...)
}

// Unsubscribe removes a previously registered listener.
func (m *Manager) Unsubscribe(id int) bool {
	return m.bus.Unsubscribe(id)
}

// CreateSingleJob admits one import job and returns its id. The call never
// blocks on execution; the scheduling loop picks the job up asynchronously.
func (m *Manager) CreateSingleJob(sourceURL string, priority domain.Priority) (string, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return "", ErrSourceRequired
	}
	if !priority.Valid() {
		priority = domain.PriorityNormal
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:           uuid.NewString(),
		Type:         domain.JobTypeSingle,
		Priority:     priority,
		Status:       domain.JobStatusPending,
		CurrentStage: -1,
		SourceURL:    sourceURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	m.mu.Lock()
	m.jobs[job.ID] = &jobRecord{job: job}
	snapshot := cloneJob(job)
	m.mu.Unlock()

	// The created event goes out before the job is enqueued, so listeners
	// always observe it ahead of job-started even when the scheduling loop
	// is already awake.
	m.emitJobEvent(EventJobCreated, snapshot, "")

	m.enqueuePending(job)
	m.kickScheduler()
	return job.ID, nil
}

// enqueuePending publishes a freshly admitted job to the queue. The job is
// skipped when it was cancelled between admission and enqueue.
func (m *Manager) enqueuePending(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record, ok := m.jobs[job.ID]; ok && record.job.Status == domain.JobStatusPending {
		m.queue.Enqueue(job)
	}
}

// CreateBatchJob admits a multi-URL import and returns the batch id. In
// parallel mode every URL becomes an independent job scheduled under the
// same global concurrency ceiling. In sequential mode a single composite job
// iterates the URL list inside one execution slot.
func (m *Manager) CreateBatchJob(sourceURLs []string, priority domain.Priority, parallel bool) (string, error) {
	urls := make([]string, 0, len(sourceURLs))
	for _, raw := range sourceURLs {
		if url := strings.TrimSpace(raw); url != "" {
			urls = append(urls, url)
		}
	}
	if len(urls) == 0 {
		return "", ErrEmptyBatch
	}
	if !priority.Valid() {
		priority = domain.PriorityNormal
	}

	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:        uuid.NewString(),
		TotalJobs: len(urls),
		Status:    domain.BatchStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	members := make([]*domain.Job, 0, len(urls))
	if parallel {
		for _, url := range urls {
			members = append(members, &domain.Job{
				ID:           uuid.NewString(),
				Type:         domain.JobTypeBatchMember,
				BatchID:      batch.ID,
				Priority:     priority,
				Status:       domain.JobStatusPending,
				CurrentStage: -1,
				SourceURL:    url,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}
	} else {
		members = append(members, &domain.Job{
			ID:           uuid.NewString(),
			Type:         domain.JobTypeBatchMember,
			BatchID:      batch.ID,
			Priority:     priority,
			Status:       domain.JobStatusPending,
			CurrentStage: -1,
			SourceURLs:   urls,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	m.mu.Lock()
	m.batches[batch.ID] = batch
	snapshots := make([]*domain.Job, 0, len(members))
	for _, job := range members {
		m.jobs[job.ID] = &jobRecord{job: job}
		snapshots = append(snapshots, cloneJob(job))
	}
	m.mu.Unlock()

	// Same ordering rule as CreateSingleJob: every member's created event
	// is published before that member becomes schedulable.
	for _, snapshot := range snapshots {
		m.emitJobEvent(EventJobCreated, snapshot, "")
	}
	for _, job := range members {
		m.enqueuePending(job)
	}
	m.kickScheduler()
	return batch.ID, nil
}

// CancelJob requests cooperative cancellation. A pending job is removed from
// the queue and marked cancelled immediately; a processing job keeps its
// in-flight stage but will not start another. The call reports true exactly
// once per job: repeated calls, unknown ids and terminal jobs yield false.
func (m *Manager) CancelJob(jobID string) bool {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return false
	}

	switch rec.job.Status {
	case domain.JobStatusPending:
		m.queue.Remove(jobID)
		rec.job.Status = domain.JobStatusCancelled
		rec.job.UpdatedAt = time.Now().UTC()
		snapshot := cloneJob(rec.job)
		batchSnapshot := m.settleCancelledMemberLocked(rec.job)
		m.mu.Unlock()

		m.emitJobEvent(EventJobCancelled, snapshot, "")
		m.emitBatchUpdated(batchSnapshot)
		return true
	case domain.JobStatusProcessing:
		if rec.cancelRequested {
			m.mu.Unlock()
			return false
		}
		rec.cancelRequested = true
		cancel := rec.cancel
		m.mu.Unlock()

		// Interrupts a backoff sleep or an in-flight attempt's context;
		// the job transitions at the next stage boundary.
		if cancel != nil {
			cancel()
		}
		return true
	default:
		m.mu.Unlock()
		return false
	}
}

// JobStatus returns a snapshot of the job, or false when the id is unknown
// or already evicted.
func (m *Manager) JobStatus(jobID string) (domain.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[jobID]
	if !ok {
		return domain.Job{}, false
	}
	return *cloneJob(rec.job), true
}

// BatchStatus returns a snapshot of the batch record, or false when unknown.
func (m *Manager) BatchStatus(batchID string) (domain.Batch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[batchID]
	if !ok {
		return domain.Batch{}, false
	}
	return *batch, true
}

// Statistics computes queue depth, active count and terminal outcomes.
// SuccessRate is completed / (completed + failed); cancellations are not
// failures and 0 is returned before any job reaches a terminal state.
func (m *Manager) Statistics() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{QueuedJobs: m.queue.Len()}
	for _, rec := range m.jobs {
		switch rec.job.Status {
		case domain.JobStatusProcessing:
			stats.ActiveJobs++
		case domain.JobStatusCompleted:
			stats.CompletedJobs++
		case domain.JobStatusFailed:
			stats.FailedJobs++
		case domain.JobStatusCancelled:
			stats.CancelledJobs++
		}
	}
	if terminal := stats.CompletedJobs + stats.FailedJobs; terminal > 0 {
		stats.SuccessRate = float64(stats.CompletedJobs) / float64(terminal)
	}
	return stats
}

// ActiveJobs returns snapshots of currently processing jobs, oldest first.
func (m *Manager) ActiveJobs() []domain.Job {
	return m.selectJobs(func(job *domain.Job) bool {
		return job.Status == domain.JobStatusProcessing
	})
}

// QueuedJobs returns snapshots of pending jobs in dequeue order.
func (m *Manager) QueuedJobs() []domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	queued := m.queue.Snapshot()
	jobs := make([]domain.Job, 0, len(queued))
	for _, job := range queued {
		jobs = append(jobs, *cloneJob(job))
	}
	return jobs
}

// CompletedJobs returns snapshots of terminal jobs, most recently finished
// first.
func (m *Manager) CompletedJobs() []domain.Job {
	jobs := m.selectJobs(func(job *domain.Job) bool {
		return job.Status.Terminal()
	})
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].UpdatedAt.After(jobs[j].UpdatedAt)
	})
	return jobs
}

func (m *Manager) selectJobs(keep func(*domain.Job) bool) []domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]domain.Job, 0)
	for _, rec := range m.jobs {
		if keep(rec.job) {
			jobs = append(jobs, *cloneJob(rec.job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Config returns the live configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// UpdateConfig merges a partial update into the live configuration and
// returns the result. Jobs already dispatched keep the parameters captured
// at dequeue time.
func (m *Manager) UpdateConfig(update ConfigUpdate) Config {
	m.mu.Lock()
	m.cfg = m.cfg.apply(update).normalized()
	cfg := m.cfg
	m.mu.Unlock()

	// The ceiling may have been raised.
	m.kickScheduler()
	return cfg
}

// CleanupCompletedJobs evicts terminal jobs whose last update is older than
// maxAge, then drops terminal batch records with no surviving members.
// Pending and processing jobs are never evicted. Returns the number of jobs
// removed.
func (m *Manager) CleanupCompletedJobs(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, rec := range m.jobs {
		if rec.job.Status.Terminal() && rec.job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}

	survivors := make(map[string]struct{})
	for _, rec := range m.jobs {
		if rec.job.BatchID != "" {
			survivors[rec.job.BatchID] = struct{}{}
		}
	}
	for id, batch := range m.batches {
		if _, held := survivors[id]; held {
			continue
		}
		if batch.Status.Terminal() && batch.UpdatedAt.Before(cutoff) {
			delete(m.batches, id)
		}
	}
	return removed
}

// schedule is the continuously-rearmed dispatch loop. Every admission and
// every freed slot kicks it; it drains the queue until the ceiling or the
// queue stops it.
func (m *Manager) schedule(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.kick:
			m.dispatch(ctx)
		}
	}
}

func (m *Manager) kickScheduler() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

func (m *Manager) dispatch(ctx context.Context) {
	for {
		m.mu.Lock()
		if m.active >= m.cfg.MaxConcurrentJobs {
			m.mu.Unlock()
			return
		}
		job, ok := m.queue.Dequeue()
		if !ok {
			m.mu.Unlock()
			return
		}
		rec := m.jobs[job.ID]
		now := time.Now().UTC()
		rec.job.Status = domain.JobStatusProcessing
		rec.job.UpdatedAt = now
		m.active++
		jobCtx, cancel := context.WithCancel(ctx)
		rec.cancel = cancel
		cfg := m.cfg
		jobSnapshot := cloneJob(rec.job)
		batchSnapshot := m.markBatchProcessingLocked(rec.job.BatchID, now)
		m.mu.Unlock()

		m.emitJobEvent(EventJobStarted, jobSnapshot, "")
		m.emitBatchUpdated(batchSnapshot)

		m.wg.Add(1)
		go m.runJob(jobCtx, rec, cfg)
	}
}

func (m *Manager) runJob(ctx context.Context, rec *jobRecord, cfg Config) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
		m.kickScheduler()
	}()

	if len(rec.job.SourceURLs) > 0 {
		m.runComposite(ctx, rec, cfg)
		return
	}

	sc := domain.NewStageContext(rec.job.SourceURL, stageOptionsFrom(cfg))
	outcome := m.runStages(ctx, rec, cfg, sc, -1)
	m.finishJob(rec, outcome, true)
}

type stageOutcome struct {
	status domain.JobStatus
	err    error
}

// runStages drives one source through the fixed stage sequence. The
// cancellation flag is checked before every stage; a stage already in flight
// runs to completion or timeout but the job never advances past a boundary
// once cancelled.
func (m *Manager) runStages(ctx context.Context, rec *jobRecord, cfg Config, sc *domain.StageContext, urlIndex int) stageOutcome {
	stages := m.stages.list()
	for index := 0; index < NumStages; index++ {
		if m.cancelObserved(ctx, rec) {
			return stageOutcome{status: domain.JobStatusCancelled}
		}

		m.beginStage(rec, index)
		executor := &Executor{
			Policy: retryPolicyFrom(cfg),
			OnRetry: func(attempt int, delay time.Duration, err error) {
				m.noteRetry(rec, index, attempt, delay, err, urlIndex)
			},
		}
		history, err := executor.Run(ctx, stages[index], sc)
		m.recordAttempts(rec, index, history)
		if err != nil {
			if m.cancelObserved(ctx, rec) {
				return stageOutcome{status: domain.JobStatusCancelled}
			}
			return stageOutcome{status: domain.JobStatusFailed, err: err}
		}
		m.emitStageCompleted(rec, index, urlIndex)
	}
	return stageOutcome{status: domain.JobStatusCompleted}
}

// runComposite executes a sequential batch job: the URL list is imported one
// source at a time inside this job's single slot. A failing URL is counted
// against the batch and the loop moves on, mirroring parallel-batch
// semantics where one member's failure never cancels its siblings.
// Cancellation stops the loop; unprocessed URLs are settled as failed so the
// batch record still reaches a terminal state.
func (m *Manager) runComposite(ctx context.Context, rec *jobRecord, cfg Config) {
	urls := rec.job.SourceURLs
	failures := 0
	var lastErr error

	for index, url := range urls {
		if m.cancelObserved(ctx, rec) {
			m.settleRemaining(rec.job.BatchID, len(urls)-index)
			m.finishJob(rec, stageOutcome{status: domain.JobStatusCancelled}, false)
			return
		}

		sc := domain.NewStageContext(url, stageOptionsFrom(cfg))
		outcome := m.runStages(ctx, rec, cfg, sc, index)
		switch outcome.status {
		case domain.JobStatusCompleted:
			m.settleMember(rec.job.BatchID, domain.JobStatusCompleted)
		case domain.JobStatusFailed:
			failures++
			lastErr = outcome.err
			m.settleMember(rec.job.BatchID, domain.JobStatusFailed)
		case domain.JobStatusCancelled:
			m.settleRemaining(rec.job.BatchID, len(urls)-index)
			m.finishJob(rec, stageOutcome{status: domain.JobStatusCancelled}, false)
			return
		}
	}

	status := domain.JobStatusCompleted
	if failures == len(urls) {
		status = domain.JobStatusFailed
	}
	m.finishJob(rec, stageOutcome{status: status, err: lastErr}, false)
}

func (m *Manager) cancelObserved(ctx context.Context, rec *jobRecord) bool {
	if ctx.Err() != nil {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return rec.cancelRequested
}

func (m *Manager) beginStage(rec *jobRecord, index int) {
	m.mu.Lock()
	rec.job.CurrentStage = index
	rec.job.Attempts = 1
	rec.job.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()
}

func (m *Manager) noteRetry(rec *jobRecord, index, attempt int, delay time.Duration, err error, urlIndex int) {
	m.mu.Lock()
	rec.job.Attempts = attempt + 1
	rec.job.UpdatedAt = time.Now().UTC()
	snapshot := cloneJob(rec.job)
	m.mu.Unlock()

	m.bus.Emit(Event{
		Kind:      EventJobRetry,
		JobID:     snapshot.ID,
		BatchID:   snapshot.BatchID,
		Stage:     index,
		StageName: StageName(index),
		Attempt:   attempt,
		Delay:     delay,
		URLIndex:  urlIndex,
		Err:       err.Error(),
		Job:       snapshot,
	})
}

func (m *Manager) recordAttempts(rec *jobRecord, index int, history []AttemptError) {
	if len(history) == 0 {
		return
	}
	m.mu.Lock()
	for _, attempt := range history {
		rec.job.Errors = append(rec.job.Errors, domain.StageErrorRecord{
			Stage:     index,
			Kind:      attempt.Kind,
			Message:   attempt.Err.Error(),
			Timestamp: attempt.At,
		})
	}
	rec.job.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()
}

func (m *Manager) emitStageCompleted(rec *jobRecord, index, urlIndex int) {
	m.mu.Lock()
	snapshot := cloneJob(rec.job)
	m.mu.Unlock()

	m.bus.Emit(Event{
		Kind:      EventJobStageCompleted,
		JobID:     snapshot.ID,
		BatchID:   snapshot.BatchID,
		Stage:     index,
		StageName: StageName(index),
		URLIndex:  urlIndex,
		Job:       snapshot,
	})
}

// finishJob applies the terminal transition and releases the job's cancel
// context. settleBatch is false for composite jobs, whose batch counters
// were already settled per URL.
func (m *Manager) finishJob(rec *jobRecord, outcome stageOutcome, settleBatch bool) {
	m.mu.Lock()
	rec.job.Status = outcome.status
	rec.job.UpdatedAt = time.Now().UTC()
	snapshot := cloneJob(rec.job)
	cancel := rec.cancel
	var batchSnapshot *domain.Batch
	if settleBatch {
		batchSnapshot = m.settleMemberLocked(rec.job.BatchID, outcome.status)
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	errMessage := ""
	if outcome.err != nil {
		errMessage = outcome.err.Error()
	}
	switch outcome.status {
	case domain.JobStatusCompleted:
		m.emitJobEvent(EventJobCompleted, snapshot, "")
	case domain.JobStatusFailed:
		m.emitJobEvent(EventJobFailed, snapshot, errMessage)
	case domain.JobStatusCancelled:
		m.emitJobEvent(EventJobCancelled, snapshot, "")
	}
	m.emitBatchUpdated(batchSnapshot)

	if m.logger != nil {
		m.logger.Printf("job finished id=%s status=%s stage=%d attempts=%d", snapshot.ID, snapshot.Status, snapshot.CurrentStage, snapshot.Attempts)
	}
}

// housekeep periodically logs progress and evicts terminal jobs past the
// retention window. Eviction is a scheduled duty, not a call the embedding
// application has to remember.
func (m *Manager) housekeep(ctx context.Context) {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		interval := m.cfg.ProgressReportingInterval
		retention := m.cfg.CompletedJobRetention
		m.mu.Unlock()
		if interval <= 0 {
			interval = 10 * time.Second
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		stats := m.Statistics()
		if m.logger != nil {
			m.logger.Printf(
				"pipeline progress queued=%d active=%d completed=%d failed=%d cancelled=%d success_rate=%.2f",
				stats.QueuedJobs, stats.ActiveJobs, stats.CompletedJobs, stats.FailedJobs, stats.CancelledJobs, stats.SuccessRate,
			)
		}
		if retention > 0 {
			if evicted := m.CleanupCompletedJobs(retention); evicted > 0 && m.logger != nil {
				m.logger.Printf("evicted %d terminal jobs older than %s", evicted, retention)
			}
		}
	}
}

func (m *Manager) emitJobEvent(kind EventKind, snapshot *domain.Job, errMessage string) {
	event := Event{
		Kind:     kind,
		JobID:    snapshot.ID,
		BatchID:  snapshot.BatchID,
		Stage:    snapshot.CurrentStage,
		URLIndex: -1,
		Err:      errMessage,
		Job:      snapshot,
	}
	if snapshot.CurrentStage >= 0 {
		event.StageName = StageName(snapshot.CurrentStage)
	}
	m.bus.Emit(event)
}

func (m *Manager) emitBatchUpdated(snapshot *domain.Batch) {
	if snapshot == nil {
		return
	}
	m.bus.Emit(Event{
		Kind:     EventBatchUpdated,
		BatchID:  snapshot.ID,
		Stage:    -1,
		URLIndex: -1,
		Batch:    snapshot,
	})
}

func retryPolicyFrom(cfg Config) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        cfg.RetryAttempts,
		BaseDelay:         cfg.RetryDelay,
		BackoffMultiplier: cfg.RetryBackoffMultiplier,
		MaxDelay:          cfg.MaxRetryDelay,
		AttemptTimeout:    cfg.StageTimeout,
	}
}

func stageOptionsFrom(cfg Config) domain.StageOptions {
	return domain.StageOptions{
		DuplicateDetection:        cfg.EnableDuplicateDetection,
		QualityAssessment:         cfg.EnableQualityAssessment,
		InteractiveTransformation: cfg.EnableInteractiveTransformation,
	}
}

func cloneJob(job *domain.Job) *domain.Job {
	clone := *job
	clone.SourceURLs = append([]string(nil), job.SourceURLs...)
	clone.Errors = append([]domain.StageErrorRecord(nil), job.Errors...)
	return &clone
}
