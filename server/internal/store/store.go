package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/netpulse/netpulse/server/internal/engine"
)

// Entry is an event together with the time the store received it.
type Entry struct {
	Event      engine.Event
	ReceivedAt time.Time
}

// Store is a thread-safe, bounded in-memory event log. It subscribes to the
// engine and keeps the most recent capacity events. A background goroutine
// (Run) evicts entries older than the retention window.
type Store struct {
	mu        sync.RWMutex
	entries   []Entry // oldest first
	capacity  int
	retention time.Duration
	now       func() time.Time // injectable for deterministic tests
}

var _ engine.Subscriber = (*Store)(nil)

// New creates a Store holding at most capacity events. A zero retention
// keeps events until newer ones displace them.
func New(capacity int, retention time.Duration) *Store {
	if capacity <= 0 {
		capacity = 1
	}
	return &Store{
		entries:   make([]Entry, 0, capacity),
		capacity:  capacity,
		retention: retention,
		now:       time.Now,
	}
}

// HandleEvent appends ev, displacing the oldest entry when full.
func (s *Store) HandleEvent(ev engine.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Entry{Event: ev, ReceivedAt: s.now()}
	if len(s.entries) < s.capacity {
		s.entries = append(s.entries, e)
		return nil
	}
	copy(s.entries, s.entries[1:])
	s.entries[len(s.entries)-1] = e
	return nil
}

// Recent returns up to limit events, newest first. A limit of zero or less
// returns every retained event.
func (s *Store) Recent(limit int) []engine.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]engine.Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i].Event)
	}
	return out
}

// Count returns the number of events currently held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Capacity returns the maximum number of events held.
func (s *Store) Capacity() int {
	return s.capacity
}

// Evict removes entries received at or before now minus the retention
// window. It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	if s.retention <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.retention)
	keep := 0
	for keep < len(s.entries) && !s.entries[keep].ReceivedAt.After(cutoff) {
		keep++
	}
	if keep == 0 {
		return 0
	}
	s.entries = append(s.entries[:0], s.entries[keep:]...)
	return keep
}

// Run starts the background retention loop. It ticks at half the retention
// window (minimum 1 second). Run blocks until ctx is cancelled and returns
// immediately when retention is disabled.
func (s *Store) Run(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	interval := s.retention / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted expired events", "count", n)
			}
		}
	}
}
