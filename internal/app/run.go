package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/vk/meghabuild/internal/buildtasks"
	"github.com/vk/meghabuild/internal/ctxlog"
	"github.com/vk/meghabuild/internal/executor"
	"github.com/vk/meghabuild/internal/fsutil"
	"github.com/vk/meghabuild/internal/publish"
)

// Run executes the requested target tasks. Clean targets run to completion
// before any other target starts.
func (a *App) Run(ctx context.Context, targets ...string) error {
	ctx = a.context(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Run method started.", "targets", targets)

	if len(targets) == 0 {
		return fmt.Errorf("%w: no target task given", ErrConfiguration)
	}
	b, err := a.Load(ctx)
	if err != nil {
		return err
	}

	cleans, rest := splitClean(targets)
	for _, batch := range [][]string{cleans, rest} {
		if len(batch) == 0 {
			continue
		}
		logger.Info("🚀 Starting build...", "targets", batch, "workers", a.config.WorkerCount)
		res, err := b.Graph.Run(ctx, batch...)
		if err != nil {
			if reportErr := a.writeReport(b.Reports.All()); reportErr != nil {
				logger.Error("Could not write publish report.", "error", reportErr)
			}
			if res == nil {
				return fmt.Errorf("%w: %w", ErrConfiguration, err)
			}
			return fmt.Errorf("build failed: %w", err)
		}
	}
	if err := a.writeReport(b.Reports.All()); err != nil {
		return fmt.Errorf("writing publish report: %w", err)
	}
	logger.Debug("App.Run method finished.")
	return nil
}

func splitClean(targets []string) (cleans, rest []string) {
	for _, t := range targets {
		if t == buildtasks.Clean || strings.HasSuffix(t, ":"+buildtasks.Clean) {
			cleans = append(cleans, t)
		} else {
			rest = append(rest, t)
		}
	}
	return cleans, rest
}

type reportFile struct {
	Reports []*publish.Report `yaml:"reports"`
}

func (a *App) writeReport(reports []*publish.Report) error {
	if a.config.ReportPath == "" || len(reports) == 0 {
		return nil
	}
	return fsutil.WriteAtomic(a.config.ReportPath, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reportFile{Reports: reports}); err != nil {
			return err
		}
		return enc.Close()
	})
}

// Tasks writes the tasks targets would run, in execution order. Without
// targets every registered task is listed.
func (a *App) Tasks(ctx context.Context, w io.Writer, targets ...string) error {
	b, err := a.Load(ctx)
	if err != nil {
		return err
	}
	tasks := b.Graph.Tasks()
	if len(targets) > 0 {
		if tasks, err = b.Graph.Plan(targets...); err != nil {
			var unknown *executor.UnknownTaskError
			if errors.As(err, &unknown) {
				return fmt.Errorf("%w: %w", ErrConfiguration, err)
			}
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range tasks {
		name := t.Name
		if len(t.Aliases) > 0 {
			name += " (" + strings.Join(t.Aliases, ", ") + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, t.Group, t.Description)
	}
	return tw.Flush()
}

// Versions writes the resolved version of every module.
func (a *App) Versions(ctx context.Context, w io.Writer) error {
	b, err := a.Load(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range b.Context.Modules() {
		rec := b.Context.Version(m.Name)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.ArtifactFileName(), rec.LongVersion(), rec.BuildDate())
	}
	return tw.Flush()
}
