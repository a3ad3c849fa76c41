// Package executil runs external tools such as javac.
package executil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (stdout string, stderr string, err error)
	LookPath(file string) (string, error)
}

// OSRunner uses os/exec.
type OSRunner struct{}

func (OSRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	if err != nil {
		err = &CommandError{Name: name, Stderr: errBuf.String(), Err: err}
	}
	return outBuf.String(), errBuf.String(), err
}

func (OSRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// CommandError is a failed command with its diagnostic output.
type CommandError struct {
	Name   string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Name, e.Err, msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
