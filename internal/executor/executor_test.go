package executor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/meghabuild/internal/ctxlog"
	"github.com/vk/meghabuild/internal/dag"
	"github.com/vk/meghabuild/internal/task"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	buf := &SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("MEGHABUILD_TEST_LOGS") == "true" {
			t.Logf("--- Log output for %s ---\n%s", t.Name(), buf.String())
		}
	})
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

// recorder tracks the order in which actions ran.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) action(name string, err error) task.Action {
	return func(context.Context) error {
		r.mu.Lock()
		r.order = append(r.order, name)
		r.mu.Unlock()
		return err
	}
}

func (r *recorder) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func register(t *testing.T, g *TaskGraph, tasks ...*task.Task) {
	t.Helper()
	for _, tk := range tasks {
		require.NoError(t, g.Register(tk))
	}
}

func TestRun_DependencyOrder(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	g := New()
	register(t, g,
		&task.Task{Name: "server:shadowJar", DependsOn: []string{"server:classes"}, Action: rec.action("shadowJar", nil)},
		&task.Task{Name: "server:classes", DependsOn: []string{"server:embedVersion"}, Action: rec.action("classes", nil)},
		&task.Task{Name: "server:embedVersion", DependsOn: []string{"server:processResources"}, Action: rec.action("embedVersion", nil)},
		&task.Task{Name: "server:processResources", Action: rec.action("processResources", nil)},
		&task.Task{Name: "server:clean", Action: rec.action("clean", nil)},
	)

	res, err := g.Run(testContext(t), "shadowJar")
	require.NoError(t, err)

	assert.Equal(t, []string{"processResources", "embedVersion", "classes", "shadowJar"}, rec.ran())
	assert.Equal(t, 4, res.Count(Executed))
	_, planned := res.Outcome("server:clean")
	assert.False(t, planned, "clean is not part of the closure")
}

func TestRun_DeclarationOrderTieBreak(t *testing.T) {
	t.Parallel()
	for i := 0; i < 10; i++ {
		rec := &recorder{}
		g := New(WithWorkers(1))
		register(t, g,
			&task.Task{Name: "c", Action: rec.action("c", nil)},
			&task.Task{Name: "a", Action: rec.action("a", nil)},
			&task.Task{Name: "b", Action: rec.action("b", nil)},
			&task.Task{Name: "all", DependsOn: []string{"b", "a", "c"}},
		)
		_, err := g.Run(testContext(t), "all")
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b"}, rec.ran())
	}
}

func TestRun_CycleRunsNothing(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	g := New(WithWorkers(4))
	register(t, g,
		&task.Task{Name: "free", Action: rec.action("free", nil)},
		&task.Task{Name: "a", DependsOn: []string{"b"}, Action: rec.action("a", nil)},
		&task.Task{Name: "b", DependsOn: []string{"a"}, Action: rec.action("b", nil)},
	)

	res, err := g.Run(testContext(t), "free")
	var cyc *dag.CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Nil(t, res)
	assert.Empty(t, rec.ran())
}

func TestRun_UpToDateSkipsActionButCompletes(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	g := New()
	register(t, g,
		&task.Task{
			Name:     "gen",
			UpToDate: func(context.Context) (bool, error) { return true, nil },
			Action:   rec.action("gen", nil),
		},
		&task.Task{Name: "use", DependsOn: []string{"gen"}, Action: rec.action("use", nil)},
	)

	res, err := g.Run(testContext(t), "use")
	require.NoError(t, err)
	assert.Equal(t, []string{"use"}, rec.ran())
	outcome, _ := res.Outcome("gen")
	assert.Equal(t, UpToDate, outcome)
}

func TestRun_FailureAborts(t *testing.T) {
	t.Parallel()
	boom := errors.New("javac exited with status 1")
	rec := &recorder{}
	g := New(WithWorkers(1))
	register(t, g,
		&task.Task{Name: "server:classes", Action: rec.action("classes", boom)},
		&task.Task{Name: "server:shadowJar", DependsOn: []string{"server:classes"}, Action: rec.action("shadowJar", nil)},
		&task.Task{Name: "setup:classes", Action: rec.action("setup", nil)},
	)

	res, err := g.Run(testContext(t), "shadowJar", "setup:classes")

	var actionErr *TaskActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "server:classes", actionErr.Task)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"classes"}, rec.ran())

	got := map[string]Outcome{}
	for _, tr := range res.Tasks {
		got[tr.Name] = tr.Outcome
	}
	assert.Equal(t, map[string]Outcome{
		"server:classes":   Failed,
		"server:shadowJar": Skipped,
		"setup:classes":    Skipped,
	}, got)
}

func TestRun_InFlightTasksFinish(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	var slowDone bool

	g := New(WithWorkers(2))
	register(t, g,
		&task.Task{Name: "slow", Action: func(context.Context) error {
			close(started)
			<-release
			// Give the failing worker time to record the abort.
			time.Sleep(100 * time.Millisecond)
			slowDone = true
			return nil
		}},
		&task.Task{Name: "bad", Action: func(context.Context) error {
			<-started
			defer close(release)
			return errors.New("bad")
		}},
		&task.Task{Name: "after-slow", DependsOn: []string{"slow"}, Action: func(context.Context) error {
			return errors.New("must not start after the run was aborted")
		}},
	)

	res, err := g.Run(testContext(t), "after-slow", "bad")
	require.Error(t, err)
	assert.True(t, slowDone)
	outcome, _ := res.Outcome("slow")
	assert.Equal(t, Executed, outcome)
	outcome, _ = res.Outcome("after-slow")
	assert.Equal(t, Skipped, outcome)
}

func TestRun_Parallel(t *testing.T) {
	t.Parallel()
	var wg sync.WaitGroup
	wg.Add(2)
	meet := func(context.Context) error {
		wg.Done()
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("tasks did not run concurrently")
		}
	}
	g := New(WithWorkers(2))
	register(t, g,
		&task.Task{Name: "server:shadowJar", Action: meet},
		&task.Task{Name: "setup:shadowJar", Action: meet},
	)

	res, err := g.Run(testContext(t), "shadowJar")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count(Executed))
}

func TestRun_UpToDateCheckError(t *testing.T) {
	t.Parallel()
	g := New()
	register(t, g, &task.Task{
		Name:     "x",
		UpToDate: func(context.Context) (bool, error) { return false, errors.New("stat failed") },
	})
	_, err := g.Run(testContext(t), "x")
	var actionErr *TaskActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "x", actionErr.Task)
}

func TestPlanErrors(t *testing.T) {
	t.Parallel()
	g := New()
	register(t, g, &task.Task{Name: "a", DependsOn: []string{"ghost"}})

	_, err := g.Plan("a")
	var unknown *UnknownTaskError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.Name)
	assert.Equal(t, "a", unknown.RequiredBy)

	g = New()
	register(t, g, &task.Task{Name: "a"})
	_, err = g.Plan("b")
	require.ErrorAs(t, err, &unknown)
	assert.EqualError(t, err, "task b not found")

	assert.Error(t, g.Register(&task.Task{Name: "a"}))
	_, err = g.Plan()
	assert.Error(t, err)
}
