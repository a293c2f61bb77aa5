package duration

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// failureMemo remembers recent probe failures so repeated lookups of a broken
// item return the same estimate without probing again until ttl passes.
// It is process-local and never persisted.
type failureMemo struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[uuid.UUID]time.Time
}

func newFailureMemo(ttl time.Duration) *failureMemo {
	return &failureMemo{ttl: ttl, entries: make(map[uuid.UUID]time.Time)}
}

// get returns when the item last failed, if that failure is still within ttl
func (m *failureMemo) get(id uuid.UUID, now time.Time) (time.Time, bool) {
	if m.ttl <= 0 {
		return time.Time{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	failedAt, ok := m.entries[id]
	if !ok {
		return time.Time{}, false
	}
	if now.Sub(failedAt) >= m.ttl {
		delete(m.entries, id)
		return time.Time{}, false
	}
	return failedAt, true
}

func (m *failureMemo) add(id uuid.UUID, at time.Time) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[id] = at
	m.mu.Unlock()
}

func (m *failureMemo) clear(id uuid.UUID) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
}

func (m *failureMemo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
