package engine

import (
	"fmt"
	"sync"
	"time"
)

// Initial value ranges for freshly created nodes, as [lo, hi).
const (
	initialConnectionsLo = 50
	initialConnectionsHi = 150
	initialLatencyLo     = 50
	initialLatencyHi     = 250
)

// registry holds the authoritative state of every node in creation order.
// Only the tick goroutine writes; readers take copies under the read lock.
type registry struct {
	mu    sync.RWMutex
	nodes []*Node
	byID  map[string]*Node
	depth int
}

// newRegistry creates one online node per name. Each node's history is
// pre-seeded with depth synthetic points spaced interval apart, the newest
// one interval before now.
func newRegistry(names []string, depth int, interval time.Duration, now time.Time, r Rand) *registry {
	reg := &registry{
		nodes: make([]*Node, 0, len(names)),
		byID:  make(map[string]*Node, len(names)),
		depth: depth,
	}
	for i, name := range names {
		n := &Node{
			ID:             fmt.Sprintf("node-%d", i+1),
			Name:           name,
			Status:         StatusOnline,
			Connections:    intIn(r, initialConnectionsLo, initialConnectionsHi),
			Latency:        intIn(r, initialLatencyLo, initialLatencyHi),
			LastUpdate:     now,
			LatencyHistory: make([]LatencyPoint, 0, depth),
		}
		for j := 0; j < depth; j++ {
			n.LatencyHistory = append(n.LatencyHistory, LatencyPoint{
				Time:    now.Add(-time.Duration(depth-j) * interval),
				Latency: intIn(r, initialLatencyLo, initialLatencyHi),
			})
		}
		reg.nodes = append(reg.nodes, n)
		reg.byID[n.ID] = n
	}
	return reg
}

// snapshot returns copies of all nodes in creation order.
func (reg *registry) snapshot() []Node {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]Node, 0, len(reg.nodes))
	for _, n := range reg.nodes {
		out = append(out, n.clone())
	}
	return out
}

// get returns a copy of the node with the given id.
func (reg *registry) get(id string) (Node, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	n, ok := reg.byID[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// update runs fn against the live node at index i under the write lock.
func (reg *registry) update(i int, fn func(n *Node)) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	fn(reg.nodes[i])
}

func (reg *registry) len() int {
	return len(reg.nodes)
}
