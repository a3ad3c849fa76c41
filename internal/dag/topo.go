package dag

import "container/heap"

// DetectCycles checks the whole graph and returns a *CyclicDependencyError
// naming one cycle when there is any.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if order := g.kahn(nil); len(order) == len(g.order) {
		return nil
	}
	return &CyclicDependencyError{Path: g.findCycle()}
}

// TopologicalOrder orders the given subset (all nodes when empty) so that
// every node comes after its dependencies. Among nodes that are ready at the
// same time the one declared first wins. Edges leaving the subset are
// ignored.
func (g *Graph) TopologicalOrder(subset ...string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var include map[int]bool
	if len(subset) > 0 {
		include = make(map[int]bool, len(subset))
		for _, id := range subset {
			n, ok := g.nodes[id]
			if !ok {
				return nil, &UnknownNodeError{ID: id}
			}
			include[n.index] = true
		}
	}

	order := g.kahn(include)
	want := len(g.order)
	if include != nil {
		want = len(include)
	}
	if len(order) != want {
		return nil, &CyclicDependencyError{Path: g.findCycle()}
	}
	return order, nil
}

type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// kahn runs Kahn's algorithm over the included indices (all when nil) with a
// min-heap of declaration indices as the ready queue.
func (g *Graph) kahn(include map[int]bool) []string {
	in := func(i int) bool { return include == nil || include[i] }

	indeg := make([]int, len(g.order))
	for _, n := range g.order {
		if !in(n.index) {
			continue
		}
		for _, d := range n.deps {
			if in(d.index) {
				indeg[n.index]++
			}
		}
	}

	ready := &indexHeap{}
	for _, n := range g.order {
		if in(n.index) && indeg[n.index] == 0 {
			heap.Push(ready, n.index)
		}
	}

	var out []string
	for ready.Len() > 0 {
		n := g.order[heap.Pop(ready).(int)]
		out = append(out, n.id)
		for _, m := range n.dependents {
			if !in(m.index) {
				continue
			}
			indeg[m.index]--
			if indeg[m.index] == 0 {
				heap.Push(ready, m.index)
			}
		}
	}
	return out
}

// findCycle walks dependency edges depth-first in declaration order and
// returns the first cycle it meets, closed on its first element.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(g.order))
	var stack []*node
	var cycle []string

	var visit func(n *node) bool
	visit = func(n *node) bool {
		color[n.index] = grey
		stack = append(stack, n)
		for _, d := range n.deps {
			switch color[d.index] {
			case white:
				if visit(d) {
					return true
				}
			case grey:
				start := len(stack) - 1
				for stack[start] != d {
					start--
				}
				for _, s := range stack[start:] {
					cycle = append(cycle, s.id)
				}
				cycle = append(cycle, d.id)
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[n.index] = black
		return false
	}

	for _, n := range g.order {
		if color[n.index] == white && visit(n) {
			break
		}
	}
	return cycle
}
