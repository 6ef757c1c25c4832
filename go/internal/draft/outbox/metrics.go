package outbox

import (
	"sync"
	"time"
)

// Stats counts what the listener has relayed.
type Stats struct {
	mu            sync.Mutex
	published     uint64
	failed        uint64
	lastEventTime time.Time
}

func (s *Stats) RecordPublished(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published++
	s.lastEventTime = at
}

func (s *Stats) RecordFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

// Snapshot returns published and failed counts and the time of the last
// successful publish.
func (s *Stats) Snapshot() (published, failed uint64, last time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published, s.failed, s.lastEventTime
}
