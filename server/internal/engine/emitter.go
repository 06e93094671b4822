package engine

import (
	"fmt"
	"log/slog"
)

// emitter fans events out to the subscription set. Subscriber failures,
// returned errors and panics alike, stop at this boundary.
type emitter struct {
	subs    *subscriptions
	log     *slog.Logger
	metrics Metrics
}

func (em *emitter) emit(ev Event) {
	em.metrics.EventEmitted(ev)
	for _, s := range em.subs.list() {
		if err := em.deliver(s, ev); err != nil {
			em.metrics.SubscriberFailed()
			em.log.Error("engine: subscriber failed",
				"event", ev.Type(),
				"node", ev.NodeID,
				"err", err,
			)
		}
	}
}

func (em *emitter) deliver(s Subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.HandleEvent(ev)
}
