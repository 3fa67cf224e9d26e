package pipeline

import (
	"log"
	"sync"
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

// EventKind is the closed set of lifecycle notifications the manager emits.
type EventKind string

const (
	EventJobCreated        EventKind = "job-created"
	EventJobStarted        EventKind = "job-started"
	EventJobStageCompleted EventKind = "job-stage-completed"
	EventJobRetry          EventKind = "job-retry"
	EventJobCompleted      EventKind = "job-completed"
	EventJobFailed         EventKind = "job-failed"
	EventJobCancelled      EventKind = "job-cancelled"
	EventBatchUpdated      EventKind = "batch-updated"
)

// Event is the payload delivered to listeners. Job and Batch are snapshots
// taken at emission time; listeners may retain them without racing the
// scheduler. Stage is -1 for events not tied to a stage.
type Event struct {
	Kind      EventKind
	JobID     string
	BatchID   string
	Stage     int
	StageName string
	// Attempt is set on job-retry events: the attempt number that failed.
	Attempt int
	// Delay is set on job-retry events: the backoff before the next attempt.
	Delay time.Duration
	// URLIndex is set on sequential batch progress events, -1 otherwise.
	URLIndex  int
	Err       string
	Job       *domain.Job
	Batch     *domain.Batch
	Timestamp time.Time
}

// Listener receives events synchronously on the scheduler's goroutine.
// A panicking listener is recovered and logged; it never stops other
// listeners or the scheduling loop.
type Listener func(Event)

type subscription struct {
	id    int
	kinds map[EventKind]struct{}
	fn    Listener
}

func (s subscription) wants(kind EventKind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Bus is an in-process publish/subscribe fan-out for pipeline lifecycle
// events. Emission order matches the order state transitions occur.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
	logger *log.Logger
}

func NewBus(logger *log.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a listener for the given kinds (all kinds when none
// are given) and returns an id for Unsubscribe.
func (b *Bus) Subscribe(fn Listener, kinds ...EventKind) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := subscription{id: b.nextID, fn: fn}
	if len(kinds) > 0 {
		sub.kinds = make(map[EventKind]struct{}, len(kinds))
		for _, kind := range kinds {
			sub.kinds[kind] = struct{}{}
		}
	}
	b.subs = append(b.subs, sub)
	return sub.id
}

// Unsubscribe removes the listener with the given id and reports whether it
// was registered.
func (b *Bus) Unsubscribe(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for index, sub := range b.subs {
		if sub.id != id {
			continue
		}
		b.subs = append(b.subs[:index], b.subs[index+1:]...)
		return true
	}
	return false
}

// Emit delivers the event to every matching listener in subscription order.
func (b *Bus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if !sub.wants(event.Kind) {
			continue
		}
		b.deliver(sub, event)
	}
}

func (b *Bus) deliver(sub subscription, event Event) {
	defer func() {
		if recovered := recover(); recovered != nil && b.logger != nil {
			b.logger.Printf("event listener panic kind=%s listener=%d: %v", event.Kind, sub.id, recovered)
		}
	}()
	sub.fn(event)
}
