package dag

import "fmt"

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds a node with the given ID. Adding an existing ID is a no-op
// and keeps the original declaration index.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	n := &node{id: id, index: len(g.order)}
	g.nodes[id] = n
	g.order = append(g.order, n)
}

// AddEdge records that toID depends on fromID. Both nodes must exist.
// Repeated edges are ignored.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return &CyclicDependencyError{Path: []string{fromID, fromID}}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source %w", &UnknownNodeError{ID: fromID})
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination %w", &UnknownNodeError{ID: toID})
	}
	if to.hasDep(fromID) {
		return nil
	}
	to.deps = append(to.deps, from)
	from.dependents = append(from.dependents, to)
	return nil
}

// Has reports whether id was added.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all node IDs in declaration order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return ids(g.order)
}

// Dependencies returns the IDs id depends on, in the order they were added.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, &UnknownNodeError{ID: id}
	}
	return ids(n.deps), nil
}

// Dependents returns the IDs that depend on id.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, &UnknownNodeError{ID: id}
	}
	return ids(n.dependents), nil
}

// Closure returns the given nodes and everything they transitively depend
// on, in declaration order.
func (g *Graph) Closure(roots ...string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	seen := make(map[string]bool)
	var stack []*node
	for _, id := range roots {
		n, ok := g.nodes[id]
		if !ok {
			return nil, &UnknownNodeError{ID: id}
		}
		stack = append(stack, n)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n.id] {
			continue
		}
		seen[n.id] = true
		stack = append(stack, n.deps...)
	}

	out := make([]string, 0, len(seen))
	for _, n := range g.order {
		if seen[n.id] {
			out = append(out, n.id)
		}
	}
	return out, nil
}

func ids(nodes []*node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}
