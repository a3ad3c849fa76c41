package executor

import (
	"fmt"

	"github.com/vk/meghabuild/internal/dag"
	"github.com/vk/meghabuild/internal/task"
)

// TaskGraph is the set of tasks known to one invocation.
type TaskGraph struct {
	tasks   map[string]*task.Task
	ordered []*task.Task
	workers int
}

// Option configures a TaskGraph.
type Option func(*TaskGraph)

// WithWorkers sets the size of the worker pool. Values below one mean one.
func WithWorkers(n int) Option {
	return func(g *TaskGraph) {
		if n < 1 {
			n = 1
		}
		g.workers = n
	}
}

// New creates an empty graph.
func New(opts ...Option) *TaskGraph {
	g := &TaskGraph{tasks: make(map[string]*task.Task), workers: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register adds a task. Names must be unique; dependencies may refer to
// tasks registered later.
func (g *TaskGraph) Register(t *task.Task) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("task must have a name")
	}
	if _, dup := g.tasks[t.Name]; dup {
		return fmt.Errorf("task %s registered twice", t.Name)
	}
	g.tasks[t.Name] = t
	g.ordered = append(g.ordered, t)
	return nil
}

// Task returns a registered task.
func (g *TaskGraph) Task(name string) (*task.Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// Tasks returns every task in registration order.
func (g *TaskGraph) Tasks() []*task.Task {
	out := make([]*task.Task, len(g.ordered))
	copy(out, g.ordered)
	return out
}

// build turns the registered tasks into a dag.Graph and validates it.
func (g *TaskGraph) build() (*dag.Graph, error) {
	d := dag.New()
	for _, t := range g.ordered {
		d.AddNode(t.Name)
	}
	for _, t := range g.ordered {
		for _, dep := range t.DependsOn {
			if !d.Has(dep) {
				return nil, &UnknownTaskError{Name: dep, RequiredBy: t.Name}
			}
			if err := d.AddEdge(dep, t.Name); err != nil {
				return nil, err
			}
		}
	}
	if err := d.DetectCycles(); err != nil {
		return nil, err
	}
	return d, nil
}

// resolve maps requested targets to task names. A bare name selects that
// task in every module.
func (g *TaskGraph) resolve(targets []string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	for _, target := range targets {
		matched := false
		for _, t := range g.ordered {
			if t.Matches(target) {
				matched = true
				if !seen[t.Name] {
					seen[t.Name] = true
					names = append(names, t.Name)
				}
			}
		}
		if !matched {
			return nil, &UnknownTaskError{Name: target}
		}
	}
	return names, nil
}

// Plan returns the tasks Run would execute for targets, in the order a
// single worker would run them.
func (g *TaskGraph) Plan(targets ...string) ([]*task.Task, error) {
	d, err := g.build()
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no target task given")
	}
	roots, err := g.resolve(targets)
	if err != nil {
		return nil, err
	}
	closure, err := d.Closure(roots...)
	if err != nil {
		return nil, err
	}
	order, err := d.TopologicalOrder(closure...)
	if err != nil {
		return nil, err
	}
	out := make([]*task.Task, len(order))
	for i, name := range order {
		out[i] = g.tasks[name]
	}
	return out, nil
}
