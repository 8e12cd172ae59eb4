// Package notify is a self-expiring queue of user-facing success/error messages.
package notify

import (
	"iter"
	"sync"
	"time"
)

type Kind int

const (
	Success Kind = iota
	Error
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// DefaultTTL is how long a notification stays live unless dismissed.
const DefaultTTL = 3 * time.Second

type Notification struct {
	ID        uint64
	Message   string
	Kind      Kind
	CreatedAt time.Time
}

type entry struct {
	n     Notification
	timer *time.Timer
}

// Queue is safe for concurrent use. Expiry timers fire on their own goroutines and
// remove entries through the same lock as manual dismissal, so whichever runs first wins.
type Queue struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	nextID  uint64
	entries []*entry
	closed  bool
	changes chan struct{}
}

type Option func(*Queue)

// WithTTL sets the expiry delay. Zero or negative disables expiry.
func WithTTL(d time.Duration) Option {
	return func(q *Queue) { q.ttl = d }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

func New(opts ...Option) *Queue {
	q := &Queue{
		ttl:     DefaultTTL,
		now:     time.Now,
		changes: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Push appends a notification and returns its id. Ids are strictly increasing for the
// lifetime of the queue and never reused.
func (q *Queue) Push(message string, kind Kind) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	id := q.nextID
	e := &entry{n: Notification{ID: id, Message: message, Kind: kind, CreatedAt: q.now()}}
	if !q.closed && q.ttl > 0 {
		e.timer = time.AfterFunc(q.ttl, func() { q.Remove(id) })
	}
	q.entries = append(q.entries, e)
	q.signalLocked()
	return id
}

func (q *Queue) Success(message string) uint64 { return q.Push(message, Success) }

func (q *Queue) Error(message string) uint64 { return q.Push(message, Error) }

// Remove drops the notification with id. It reports false when no such entry is live.
func (q *Queue) Remove(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.n.ID != id {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		q.signalLocked()
		return true
	}
	return false
}

// All yields the live notifications in insertion order. Each iteration works on a
// snapshot taken when it starts, so the sequence can be ranged over repeatedly.
func (q *Queue) All() iter.Seq[Notification] {
	return func(yield func(Notification) bool) {
		for _, n := range q.Snapshot() {
			if !yield(n) {
				return
			}
		}
	}
}

func (q *Queue) Snapshot() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.n
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Changes receives a value after any push or removal. Signals coalesce: a reader that
// falls behind sees one pending value, not one per change.
func (q *Queue) Changes() <-chan struct{} { return q.changes }

// Close stops all pending expiry timers. Live entries stay until removed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for _, e := range q.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
}

func (q *Queue) signalLocked() {
	select {
	case q.changes <- struct{}{}:
	default:
	}
}
