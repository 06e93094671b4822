package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Defaults applied by New for zero-valued Options fields.
const (
	DefaultTickInterval = 2 * time.Second
	DefaultHistoryDepth = 20
)

// DefaultNodeNames is the fleet created when Options.Nodes is empty.
var DefaultNodeNames = []string{
	"Node-US-East",
	"Node-US-West",
	"Node-EU-Central",
	"Node-Asia-Pacific",
	"Node-South-America",
}

// Options configures an Engine. The zero value is valid.
type Options struct {
	// Nodes lists the display names of the fleet, one node per name.
	Nodes []string

	// TickInterval is the period between ticks once started.
	TickInterval time.Duration

	// HistoryDepth bounds each node's latency history.
	HistoryDepth int

	// Rand is the random source. Defaults to a randomly seeded PCG.
	Rand Rand

	// Clock drives the scheduler and event timestamps. Defaults to the wall clock.
	Clock clock.Clock

	// Logger receives subscriber and transition failures. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics receives instrumentation. Defaults to a no-op.
	Metrics Metrics
}

// Engine owns the simulated fleet. It advances node state on each tick,
// emits events to subscribers and serves snapshots.
//
// All exported methods are safe for concurrent use. Ticks never overlap:
// tick N completes, including fan-out, before tick N+1 begins.
type Engine struct {
	reg     *registry
	trans   *transition
	subs    *subscriptions
	emitter *emitter
	sched   *scheduler

	clock   clock.Clock
	log     *slog.Logger
	metrics Metrics

	tickMu sync.Mutex
	ticks  atomic.Uint64
}

// New builds an engine and creates its nodes. The engine is idle until Start.
func New(opts Options) (*Engine, error) {
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}

	e := &Engine{
		clock:   opts.Clock,
		log:     opts.Logger,
		metrics: opts.Metrics,
		subs:    &subscriptions{},
	}
	e.reg = newRegistry(opts.Nodes, opts.HistoryDepth, opts.TickInterval, opts.Clock.Now(), opts.Rand)
	e.trans = &transition{rand: opts.Rand, depth: opts.HistoryDepth, newID: uuid.NewString}
	e.emitter = &emitter{subs: e.subs, log: opts.Logger, metrics: opts.Metrics}
	e.sched = &scheduler{clock: opts.Clock, interval: opts.TickInterval, fire: e.scheduledTick}
	return e, nil
}

func (o *Options) applyDefaults() error {
	if len(o.Nodes) == 0 {
		o.Nodes = DefaultNodeNames
	}
	seen := make(map[string]bool, len(o.Nodes))
	for i, name := range o.Nodes {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("engine: node %d has an empty name", i+1)
		}
		if seen[name] {
			return fmt.Errorf("engine: duplicate node name %q", name)
		}
		seen[name] = true
	}
	switch {
	case o.TickInterval < 0:
		return errors.New("engine: tick interval must not be negative")
	case o.TickInterval == 0:
		o.TickInterval = DefaultTickInterval
	}
	switch {
	case o.HistoryDepth < 0:
		return errors.New("engine: history depth must not be negative")
	case o.HistoryDepth == 0:
		o.HistoryDepth = DefaultHistoryDepth
	}
	if o.Rand == nil {
		o.Rand = NewRand(0)
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	return nil
}

// Start begins ticking every interval. Calling Start on a running engine is a no-op.
func (e *Engine) Start() {
	if e.sched.start() {
		e.log.Info("engine: started", "interval", e.sched.interval, "nodes", e.reg.len())
	}
}

// Stop cancels the ticker. No tick begins after Stop returns. A tick already
// running is not rolled back: when Stop is called from outside a tick it
// waits for that tick, and when called from a Subscriber it returns at once
// and the current tick runs to completion. Calling Stop on a stopped engine
// is a no-op.
func (e *Engine) Stop() {
	if e.sched.halt() {
		e.log.Info("engine: stopped", "ticks", e.ticks.Load())
	}
}

// Running reports whether the ticker is active.
func (e *Engine) Running() bool {
	return e.sched.running()
}

// Interval returns the configured tick period.
func (e *Engine) Interval() time.Duration {
	return e.sched.interval
}

// Ticks returns the number of completed ticks.
func (e *Engine) Ticks() uint64 {
	return e.ticks.Load()
}

// Subscribe registers s for all future events. Subscribing the same
// subscriber twice has no additional effect.
func (e *Engine) Subscribe(s Subscriber) {
	e.subs.add(s)
}

// Unsubscribe removes s. Unsubscribing an absent subscriber is a no-op.
func (e *Engine) Unsubscribe(s Subscriber) {
	e.subs.remove(s)
}

// Nodes returns a point-in-time copy of every node in creation order.
func (e *Engine) Nodes() []Node {
	return e.reg.snapshot()
}

// Node returns a copy of the node with the given id, or false if there is none.
func (e *Engine) Node(id string) (Node, bool) {
	return e.reg.get(id)
}

// Tick advances every node once, in creation order, delivering each node's
// events before the next node is processed. The scheduler calls Tick on
// every fire; callers may also step the engine directly.
func (e *Engine) Tick() {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.tick()
}

// scheduledTick is the scheduler's fire. It drops the tick when Stop closed
// stop while the fire waited for tickMu.
func (e *Engine) scheduledTick(stop <-chan struct{}) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	select {
	case <-stop:
		return
	default:
	}
	e.tick()
}

// tick runs one tick. The caller holds tickMu.
func (e *Engine) tick() {
	start := e.clock.Now()
	for i := 0; i < e.reg.len(); i++ {
		for _, ev := range e.advance(i, e.clock.Now()) {
			e.emitter.emit(ev)
		}
	}
	e.ticks.Add(1)
	e.metrics.TickCompleted(e.clock.Since(start))
}

// advance applies the transition rules to node i. A panic inside the rules
// is logged and confined to that node.
func (e *Engine) advance(i int, now time.Time) (events []Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("engine: node transition failed", "index", i, "panic", r)
			events = nil
		}
	}()
	e.reg.update(i, func(n *Node) {
		events = e.trans.advance(n, now)
	})
	return events
}
