package executor

import (
	"context"
	"sync"
	"time"

	"github.com/vk/meghabuild/internal/ctxlog"
	"github.com/vk/meghabuild/internal/task"
)

// run holds the shared state of one Run call.
type run struct {
	wg      sync.WaitGroup
	stopped chan struct{}
	stop    sync.Once

	mu       sync.Mutex
	firstErr *TaskActionError
}

func (r *run) abort(err *TaskActionError) {
	r.mu.Lock()
	if r.firstErr == nil {
		r.firstErr = err
	}
	r.mu.Unlock()
	r.stop.Do(func() { close(r.stopped) })
}

func (r *run) aborted() bool {
	select {
	case <-r.stopped:
		return true
	default:
		return false
	}
}

// Run executes the targets and their transitive dependencies. The returned
// Result is non-nil whenever execution started. A failing task makes Run
// return a *TaskActionError for the first failure.
func (g *TaskGraph) Run(ctx context.Context, targets ...string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	plan, err := g.Plan(targets...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Execution plan ready.", "targets", targets, "tasks", len(plan))

	nodes := make(map[string]*runNode, len(plan))
	for _, t := range plan {
		nodes[t.Name] = &runNode{task: t}
	}
	for _, n := range nodes {
		for _, dep := range n.task.DependsOn {
			d := nodes[dep]
			d.dependents = append(d.dependents, n)
			n.depCount.Add(1)
		}
	}

	r := &run{stopped: make(chan struct{})}
	readyChan := make(chan *runNode, len(plan))
	r.wg.Add(len(plan))

	// Roots are queued in plan order so that a single worker follows the plan.
	for _, t := range plan {
		if n := nodes[t.Name]; n.depCount.Load() == 0 {
			readyChan <- n
		}
	}

	logger.Debug("Starting worker pool.", "workers", g.workers)
	for i := 0; i < g.workers; i++ {
		go g.worker(ctx, r, readyChan, i)
	}

	r.wg.Wait()
	close(readyChan)

	res := &Result{Tasks: make([]TaskResult, len(plan))}
	for i, t := range plan {
		n := nodes[t.Name]
		res.Tasks[i] = TaskResult{Name: t.Name, Outcome: n.outcome, Duration: n.duration, Err: n.err}
	}

	if r.firstErr != nil {
		logger.Error("Build failed.", "task", r.firstErr.Task, "error", r.firstErr.Err,
			"skipped", res.Count(Skipped))
		return res, r.firstErr
	}
	logger.Info("🏁 Build finished.", "executed", res.Count(Executed), "up_to_date", res.Count(UpToDate))
	return res, nil
}

// skip marks n and everything downstream of it as never started.
func (g *TaskGraph) skip(ctx context.Context, r *run, n *runNode) {
	n.settle.Do(func() {
		ctxlog.FromContext(ctx).Debug("Skipping task.", "task", n.task.Name)
		n.outcome = Skipped
		r.wg.Done()
		for _, d := range n.dependents {
			g.skip(ctx, r, d)
		}
	})
}

// worker is the processing loop of one worker.
func (g *TaskGraph) worker(ctx context.Context, r *run, readyChan chan *runNode, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range readyChan {
		if r.aborted() || ctx.Err() != nil {
			g.skip(ctx, r, n)
			continue
		}
		taskCtx := ctxlog.With(ctx, "workerID", workerID, "task", n.task.Name)
		outcome, took, err := execute(taskCtx, n.task)

		if err != nil {
			actionErr := &TaskActionError{Task: n.task.Name, Err: err}
			n.settle.Do(func() {
				n.outcome, n.err, n.duration = Failed, actionErr, took
				r.wg.Done()
			})
			r.abort(actionErr)
			for _, d := range n.dependents {
				g.skip(ctx, r, d)
			}
			continue
		}

		settled := false
		n.settle.Do(func() {
			n.outcome, n.duration = outcome, took
			settled = true
		})
		for _, d := range n.dependents {
			if d.depCount.Add(-1) == 0 {
				readyChan <- d
			}
		}
		if settled {
			r.wg.Done()
		}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// execute runs the up-to-date check and, when needed, the action.
func execute(ctx context.Context, t *task.Task) (Outcome, time.Duration, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	upToDate, err := t.IsUpToDate(ctx)
	if err != nil {
		return Failed, time.Since(start), err
	}
	if upToDate {
		logger.Info("⏭️ Task up to date.")
		return UpToDate, time.Since(start), nil
	}

	logger.Info("▶️ Running task.")
	if t.Action != nil {
		if err := t.Action(ctx); err != nil {
			logger.Error("❌ Task failed.", "error", err)
			return Failed, time.Since(start), err
		}
	}
	if err := t.Completed(); err != nil {
		return Failed, time.Since(start), err
	}
	took := time.Since(start)
	logger.Info("✅ Task finished.", "duration", took)
	return Executed, took, nil
}
