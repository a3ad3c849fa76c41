package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vk/meghabuild/internal/app"
	"github.com/vk/meghabuild/internal/dag"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
}

// AppFactory creates the application for a validated configuration. Logs
// are written to logW.
type AppFactory func(logW io.Writer, cfg *app.Config) *app.App

// DefaultFactory builds the production application.
func DefaultFactory(logW io.Writer, cfg *app.Config) *app.App {
	return app.NewApp(logW, cfg)
}

// Flags are the options shared by every command.
type Flags struct {
	Project   string
	Files     []string
	LogLevel  string
	LogFormat string
	Workers   int
	Home      string
	JavaHome  string
	Report    string
}

// Config validates the flags into an application configuration.
func (f Flags) Config() (*app.Config, error) {
	home := f.Home
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, usageError(fmt.Errorf("cannot determine home directory, use --home: %w", err))
		}
		home = h
	}
	cfg, err := app.NewConfig(app.Config{
		ProjectDir:  f.Project,
		BuildFiles:  f.Files,
		UserHome:    home,
		JavaHome:    f.JavaHome,
		ReportPath:  f.Report,
		LogFormat:   f.LogFormat,
		LogLevel:    f.LogLevel,
		WorkerCount: f.Workers,
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// Execute runs the command line args and maps failures to *ExitError.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, newApp AppFactory) error {
	cmd := NewRootCommand(newApp)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return toExitError(cmd.ExecuteContext(ctx))
}

func toExitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	var cycle *dag.CyclicDependencyError
	if errors.Is(err, app.ErrConfiguration) || errors.As(err, &cycle) {
		return usageError(err)
	}
	return &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}
