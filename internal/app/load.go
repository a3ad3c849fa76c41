package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/meghabuild/internal/buildtasks"
	"github.com/vk/meghabuild/internal/ctxlog"
	"github.com/vk/meghabuild/internal/deps"
	"github.com/vk/meghabuild/internal/executor"
	"github.com/vk/meghabuild/internal/publish"
	"github.com/vk/meghabuild/internal/version"
)

// ErrConfiguration marks failures that happen before any task runs.
var ErrConfiguration = errors.New("configuration error")

// Build is one loaded invocation: its immutable context and task graph.
type Build struct {
	Context *buildtasks.Context
	Graph   *executor.TaskGraph
	Reports *buildtasks.Reports
}

// Load reads the descriptor, resolves every module's version once and
// registers the built-in tasks.
func (a *App) Load(ctx context.Context) (*Build, error) {
	ctx = a.context(ctx)
	logger := ctxlog.FromContext(ctx)

	project, err := a.loader.Load(ctx, a.config.buildPaths()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	logger.Debug("Build descriptor loaded.", "project", project.Name, "modules", len(project.Modules))

	// One timestamp for every module of the invocation.
	started := a.now()
	opts := append([]version.Option{version.WithClock(func() time.Time { return started })}, a.versionOpts...)
	resolver := version.NewResolver(opts...)
	versions := make(map[string]version.Record, len(project.Modules))
	for _, m := range project.Modules {
		rec, err := resolver.Resolve(ctx, a.config.ProjectDir, m.DeclaredVersion)
		if err != nil {
			return nil, fmt.Errorf("%w: module %s: %w", ErrConfiguration, m.Name, err)
		}
		versions[m.Name] = rec
		logger.Info("Version resolved.", "module", m.Name, "version", rec.LongVersion(), "branch", rec.Branch, "buildDate", rec.BuildDate())
	}

	bc, err := buildtasks.NewContext(a.config.ProjectDir, a.config.UserHome, project, versions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	roots := append(append([]string{}, project.Repositories...), deps.DefaultRoot(a.config.UserHome))
	graph := executor.New(executor.WithWorkers(a.config.WorkerCount))
	reports := &buildtasks.Reports{}
	err = buildtasks.Register(graph, bc, buildtasks.Collaborators{
		Compiler:  a.compiler,
		Resolver:  deps.NewLocalRepository(roots...),
		Shader:    a.shader,
		Publisher: publish.NewPipeline(a.creds, a.publishOpts...),
		Reports:   reports,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	logger.Debug("Tasks registered.", "count", len(graph.Tasks()))
	return &Build{Context: bc, Graph: graph, Reports: reports}, nil
}
