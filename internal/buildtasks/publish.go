package buildtasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/meghabuild/internal/ctxlog"
	"github.com/vk/meghabuild/internal/publish"
	"github.com/vk/meghabuild/internal/task"
)

// Reports collects publish reports from concurrently running tasks.
type Reports struct {
	mu    sync.Mutex
	items []*publish.Report
}

// Add records a report.
func (r *Reports) Add(rep *publish.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, rep)
}

// All returns the reports in the order they were added.
func (r *Reports) All() []*publish.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*publish.Report, len(r.items))
	copy(out, r.items)
	return out
}

// publishTasks creates one publishTo<Target> task per target of the module
// and the publish task depending on all of them. Publishing has side
// effects outside the build directory, so these tasks have no stamp.
func (b *moduleBuilder) publishTasks() ([]*task.Task, error) {
	var (
		tasks []*task.Task
		names []string
	)
	for _, name := range b.m.Publish {
		target, ok := b.bc.Project().Targets[name]
		if !ok {
			return nil, fmt.Errorf("unknown publish target %q", name)
		}
		t := b.task(PublishToName(name), "publishing", fmt.Sprintf("Publishes the shaded jar to %s.", name))
		t.StampPath = ""
		t.DependsOn = []string{b.dep(ShadowJar)}
		t.Action = func(ctx context.Context) error {
			a := publish.ArtifactFromModule(b.m, b.layout.Artifact())
			report, err := b.c.Publisher.Publish(ctx, a, target)
			if report != nil {
				b.c.Reports.Add(report)
			}
			return err
		}
		tasks = append(tasks, t)
		names = append(names, t.Name)
	}

	all := b.task(Publish, "publishing", "Publishes the shaded jar to every target of the module.")
	all.StampPath = ""
	all.DependsOn = names
	if len(names) == 0 {
		all.Action = func(ctx context.Context) error {
			ctxlog.FromContext(ctx).Warn("Module has no publish targets.", "module", b.m.Name)
			return nil
		}
	}
	return append(tasks, all), nil
}
