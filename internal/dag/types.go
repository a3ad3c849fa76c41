package dag

import "sync"

// Graph is a collection of nodes and their dependencies. All operations on
// the graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	// order holds nodes by declaration index.
	order []*node
}

// node is un-exported so the graph is only manipulated through string IDs.
type node struct {
	id    string
	index int
	// deps and dependents keep insertion order.
	deps       []*node
	dependents []*node
}

func (n *node) hasDep(id string) bool {
	for _, d := range n.deps {
		if d.id == id {
			return true
		}
	}
	return false
}
