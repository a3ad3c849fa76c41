package publish

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/ctxlog"
)

// Publisher uploads an artifact to one target. Implementations must leave
// the target unchanged when they return an error.
type Publisher interface {
	Publish(ctx context.Context, a *Artifact, creds Credentials) ([]string, error)
}

// Factory creates the publisher for a target.
type Factory func(t *config.PublishTarget) (Publisher, error)

// Pipeline publishes artifacts to any number of targets.
type Pipeline struct {
	creds     CredentialSource
	factories map[config.TargetKind]Factory
	parallel  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFactory registers the publisher factory for a target kind.
func WithFactory(kind config.TargetKind, f Factory) Option {
	return func(p *Pipeline) { p.factories[kind] = f }
}

// WithParallelism limits how many targets are published at once.
func WithParallelism(n int) Option {
	return func(p *Pipeline) { p.parallel = n }
}

// NewPipeline creates a pipeline with the Maven and S3 publishers.
func NewPipeline(creds CredentialSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		creds: creds,
		factories: map[config.TargetKind]Factory{
			config.TargetMaven: func(t *config.PublishTarget) (Publisher, error) { return NewMavenPublisher(t), nil },
			config.TargetS3:    func(t *config.PublishTarget) (Publisher, error) { return NewS3Publisher(t), nil },
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish releases a to every target concurrently. The report always
// covers every target; the error is non-nil when at least one failed.
func (p *Pipeline) Publish(ctx context.Context, a *Artifact, targets ...*config.PublishTarget) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	report := &Report{Artifact: a.Coordinate(), Targets: make([]TargetReport, len(targets))}

	var g errgroup.Group
	if p.parallel > 0 {
		g.SetLimit(p.parallel)
	}
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			report.Targets[i] = p.publishOne(ctx, a, t)
			return nil
		})
	}
	_ = g.Wait()

	if err := report.Err(); err != nil {
		logger.Error("Publishing failed.", "artifact", report.Artifact, "error", err)
		return report, err
	}
	logger.Info("📦 Artifact published.", "artifact", report.Artifact, "targets", len(targets))
	return report, nil
}

func (p *Pipeline) publishOne(ctx context.Context, a *Artifact, t *config.PublishTarget) TargetReport {
	ctx = ctxlog.With(ctx, "target", t.Name)
	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	rep := TargetReport{Target: t.Name, Kind: string(t.Kind)}

	fail := func(err error) TargetReport {
		rep.Status = StatusFailed
		rep.err = &TargetError{Target: t.Name, Err: err}
		rep.Error = err.Error()
		rep.Duration = time.Since(start)
		logger.Error("❌ Target failed.", "error", err)
		return rep
	}

	creds, err := p.credentials(t)
	if err != nil {
		return fail(err)
	}
	factory, ok := p.factories[t.Kind]
	if !ok {
		return fail(fmt.Errorf("no publisher for target kind %q", t.Kind))
	}
	pub, err := factory(t)
	if err != nil {
		return fail(err)
	}

	logger.Info("🚀 Publishing artifact.", "artifact", a.Coordinate())
	files, err := pub.Publish(ctx, a, creds)
	if err != nil {
		return fail(err)
	}
	rep.Status = StatusPublished
	rep.Files = files
	rep.Duration = time.Since(start)
	logger.Info("✅ Target published.", "files", len(files), "duration", rep.Duration)
	return rep
}

// credentials resolves every credential the target names.
func (p *Pipeline) credentials(t *config.PublishTarget) (Credentials, error) {
	var c Credentials
	if t.UsernameEnv != "" {
		v, ok := p.creds.Lookup(t.UsernameEnv)
		if !ok {
			return c, &MissingCredentialError{Target: t.Name, Name: t.UsernameEnv}
		}
		c.Username = v
	}
	if t.SecretEnv != "" {
		v, ok := p.creds.Lookup(t.SecretEnv)
		if !ok {
			return c, &MissingCredentialError{Target: t.Name, Name: t.SecretEnv}
		}
		c.Secret = v
	}
	return c, nil
}
