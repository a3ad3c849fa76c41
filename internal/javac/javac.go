// Package javac compiles module sources by invoking the JDK compiler.
package javac

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/meghabuild/internal/ctxlog"
	"github.com/vk/meghabuild/internal/executil"
	"github.com/vk/meghabuild/internal/fsutil"
)

// Request describes one compilation.
type Request struct {
	Module    string
	SourceDir string
	OutputDir string
	Classpath []string
	// Release is passed as --release when set, e.g. "8".
	Release string
}

// Compiler turns sources into class files.
type Compiler interface {
	Compile(ctx context.Context, req Request) error
}

// Javac runs the javac executable of a JDK.
type Javac struct {
	runner   executil.Runner
	javaHome string
}

// New creates a compiler. With an empty javaHome, javac is looked up on
// PATH.
func New(runner executil.Runner, javaHome string) *Javac {
	return &Javac{runner: runner, javaHome: javaHome}
}

func (j *Javac) binary() (string, error) {
	if j.javaHome != "" {
		return filepath.Join(j.javaHome, "bin", "javac"), nil
	}
	p, err := j.runner.LookPath("javac")
	if err != nil {
		return "", fmt.Errorf("javac not found, set java_home: %w", err)
	}
	return p, nil
}

// Compile implements Compiler. A module without sources only gets an empty
// output directory.
func (j *Javac) Compile(ctx context.Context, req Request) error {
	logger := ctxlog.FromContext(ctx)
	sources, err := fsutil.FindFilesByExtension(req.SourceDir, ".java")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return err
	}
	if len(sources) == 0 {
		logger.Debug("No sources to compile.", "dir", req.SourceDir)
		return nil
	}

	bin, err := j.binary()
	if err != nil {
		return err
	}
	args := []string{"-d", req.OutputDir, "-encoding", "UTF-8"}
	if req.Release != "" {
		args = append(args, "--release", req.Release)
	}
	if len(req.Classpath) > 0 {
		args = append(args, "-classpath", strings.Join(req.Classpath, string(os.PathListSeparator)))
	}
	args = append(args, sources...)

	logger.Debug("Running compiler.", "binary", bin, "sources", len(sources))
	_, stderr, err := j.runner.Run(ctx, req.SourceDir, bin, args...)
	if err != nil {
		return fmt.Errorf("compiling %s: %w", req.Module, err)
	}
	if s := strings.TrimSpace(stderr); s != "" {
		logger.Warn("Compiler diagnostics.", "output", s)
	}
	return nil
}
