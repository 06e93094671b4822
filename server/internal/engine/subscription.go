package engine

import "sync"

// Subscriber receives every event the engine emits. HandleEvent runs on the
// tick goroutine; it must not block and must not call Engine.Stop.
//
// Subscribers are tracked by identity, so implementations must be comparable.
// Use pointer receivers, or wrap a function with NewFuncSubscriber.
type Subscriber interface {
	HandleEvent(Event) error
}

// FuncSubscriber adapts a function to the Subscriber interface. Always use it
// through the pointer returned by NewFuncSubscriber.
type FuncSubscriber struct {
	fn func(Event) error
}

// NewFuncSubscriber wraps fn. Each call returns a distinct subscriber.
func NewFuncSubscriber(fn func(Event) error) *FuncSubscriber {
	return &FuncSubscriber{fn: fn}
}

// HandleEvent calls the wrapped function.
func (f *FuncSubscriber) HandleEvent(ev Event) error {
	return f.fn(ev)
}

// subscriptions is an identity set of subscribers kept in registration order.
type subscriptions struct {
	mu   sync.Mutex
	subs []Subscriber
}

// add registers s. Adding a subscriber already present is a no-op.
func (ss *subscriptions) add(s Subscriber) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for _, cur := range ss.subs {
		if cur == s {
			return false
		}
	}
	ss.subs = append(ss.subs, s)
	return true
}

// remove unregisters s. Removing an absent subscriber is a no-op.
func (ss *subscriptions) remove(s Subscriber) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for i, cur := range ss.subs {
		if cur == s {
			ss.subs = append(ss.subs[:i:i], ss.subs[i+1:]...)
			return true
		}
	}
	return false
}

// list returns a copy of the current set so delivery can proceed while
// subscribers add or remove themselves.
func (ss *subscriptions) list() []Subscriber {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	out := make([]Subscriber, len(ss.subs))
	copy(out, ss.subs)
	return out
}

func (ss *subscriptions) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.subs)
}
