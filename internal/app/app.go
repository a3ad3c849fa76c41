package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/vk/meghabuild/internal/buildtasks"
	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/ctxlog"
	"github.com/vk/meghabuild/internal/executil"
	"github.com/vk/meghabuild/internal/hcl"
	"github.com/vk/meghabuild/internal/javac"
	"github.com/vk/meghabuild/internal/publish"
	"github.com/vk/meghabuild/internal/shade"
	"github.com/vk/meghabuild/internal/version"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	loader      config.Loader
	compiler    javac.Compiler
	shader      buildtasks.Shader
	creds       publish.CredentialSource
	publishOpts []publish.Option
	versionOpts []version.Option
	now         func() time.Time
}

// Option overrides a collaborator of the App.
type Option func(*App)

// WithLoader replaces the HCL descriptor loader.
func WithLoader(l config.Loader) Option {
	return func(a *App) { a.loader = l }
}

// WithCompiler replaces javac.
func WithCompiler(c javac.Compiler) Option {
	return func(a *App) { a.compiler = c }
}

// WithCredentials replaces the environment as credential source.
func WithCredentials(src publish.CredentialSource) Option {
	return func(a *App) { a.creds = src }
}

// WithPublishOptions configures the publish pipeline.
func WithPublishOptions(opts ...publish.Option) Option {
	return func(a *App) { a.publishOpts = append(a.publishOpts, opts...) }
}

// WithVersionOptions configures the version resolver.
func WithVersionOptions(opts ...version.Option) Option {
	return func(a *App) { a.versionOpts = append(a.versionOpts, opts...) }
}

// WithClock sets the source of the build timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// NewApp is the constructor for the main application. Logs go to outW.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: hcl.NewLoader(hcl.Vars{
			ProjectDir: cfg.ProjectDir,
			Home:       cfg.UserHome,
			JavaHome:   cfg.JavaHome,
		}),
		compiler: javac.New(executil.OSRunner{}, cfg.JavaHome),
		shader:   shade.New(),
		creds:    publish.EnvSource{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	logger.Debug("Logger configured successfully.")
	return a
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
