// Package notify keeps short-lived user-facing messages.
//
// Every message expires on its own timer. Several messages can be
// pending at once and identical messages are not merged.
package notify

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultTTL is how long a message stays visible when no TTL is given.
const DefaultTTL = 2500 * time.Millisecond

// Kind classifies a message for display.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is one pending message.
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Notifier accepts messages for display.
type Notifier interface {
	Notify(message string, kind Kind, ttl time.Duration)
}

// Queue is an in-memory Notifier whose entries remove themselves after
// their TTL. It is safe for concurrent use.
type Queue struct {
	defaultTTL time.Duration
	log        log.FieldLogger

	mu     sync.Mutex
	nextID int64
	items  []Notification
	timers map[int64]*time.Timer
	closed bool
}

// NewQueue creates a queue. A non-positive defaultTTL falls back to DefaultTTL.
func NewQueue(defaultTTL time.Duration, logger log.FieldLogger) *Queue {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Queue{
		defaultTTL: defaultTTL,
		log:        logger,
		timers:     make(map[int64]*time.Timer),
	}
}

// Notify appends a message and schedules its removal after ttl.
func (q *Queue) Notify(message string, kind Kind, ttl time.Duration) {
	if ttl <= 0 {
		ttl = q.defaultTTL
	}
	now := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.nextID++
	id := q.nextID
	q.items = append(q.items, Notification{
		ID:        id,
		Message:   message,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	q.timers[id] = time.AfterFunc(ttl, func() { q.Dismiss(id) })

	q.log.WithFields(log.Fields{"kind": kind, "ttl": ttl}).Debug(message)
}

// Pending returns a copy of the messages that have not expired yet,
// oldest first.
func (q *Queue) Pending() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Dismiss removes a message before its TTL runs out.
// It reports whether the message was still pending.
func (q *Queue) Dismiss(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Close stops all timers and drops pending messages. Later calls to
// Notify are ignored.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.items = nil
	q.closed = true
}
