package engine

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

// seqRand replays vals in order, wrapping around at the end.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

// steady returns a source that never changes status, latency or connections.
func steady() *seqRand { return &seqRand{vals: []float64{0.5}} }

// recorder is a subscriber that keeps every event it receives.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) HandleEvent(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range r.all() {
		if ev.Type() == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// failing is a subscriber that errors or panics on every event.
type failing struct{ panics bool }

func (f *failing) HandleEvent(Event) error {
	if f.panics {
		panic("subscriber exploded")
	}
	return errors.New("subscriber refused event")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine builds an engine on a mock clock with the given names and source.
func newTestEngine(t *testing.T, r Rand, names ...string) (*Engine, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	e, err := New(Options{
		Nodes:  names,
		Rand:   r,
		Clock:  mock,
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	return e, mock
}

// setNode overwrites mutable fields of node i for test fixtures.
func setNode(e *Engine, i int, fn func(n *Node)) {
	e.reg.update(i, fn)
}
