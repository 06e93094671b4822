package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// scheduler fires a callback every interval. At most one ticker is active.
type scheduler struct {
	clock    clock.Clock
	interval time.Duration
	fire     func(stop <-chan struct{})

	mu     sync.Mutex
	stop   chan struct{} // nil while stopped
	done   chan struct{} // closed when the loop goroutine exits
	firing *atomic.Bool  // the current loop goroutine is inside fire
}

// start begins firing. It reports false when the scheduler was already running.
func (s *scheduler) start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return false
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.firing = new(atomic.Bool)
	go s.loop(s.clock.Ticker(s.interval), s.stop, s.done, s.firing)
	return true
}

// halt cancels the ticker. When no fire is in progress it waits for the loop
// to exit. When one is, it returns at once: the fire may be the caller
// itself, and fire rechecks stop before doing any work. Either way no fire
// begins after halt returns. It reports false when the scheduler was not
// running.
func (s *scheduler) halt() bool {
	s.mu.Lock()
	stop, done, firing := s.stop, s.done, s.firing
	s.stop, s.done, s.firing = nil, nil, nil
	s.mu.Unlock()

	if stop == nil {
		return false
	}
	close(stop)
	if !firing.Load() {
		<-done
	}
	return true
}

func (s *scheduler) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *scheduler) loop(t *clock.Ticker, stop, done chan struct{}, firing *atomic.Bool) {
	defer close(done)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			// firing is raised before the stop check so halt either sees it
			// or this check sees the closed channel.
			firing.Store(true)
			select {
			case <-stop:
				firing.Store(false)
				return
			default:
			}
			s.fire(stop)
			firing.Store(false)
		}
	}
}
