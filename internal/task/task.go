// Package task defines the unit of work scheduled by the executor and the
// input stamps used to decide whether a task is up to date.
package task

import (
	"context"
	"strings"
)

// Action performs the work of a task.
type Action func(ctx context.Context) error

// UpToDateFunc reports whether the action can be skipped.
type UpToDateFunc func(ctx context.Context) (bool, error)

// Task is a named, schedulable unit of work.
type Task struct {
	// Name is unique within a build, e.g. "server:shadowJar".
	Name        string
	Module      string
	Aliases     []string
	Group       string
	Description string

	DependsOn []string

	// Inputs and Outputs are files or directories. When StampPath is set,
	// the task is up to date if every output exists and the stamp recorded
	// by the last successful run matches the current inputs.
	Inputs      []string
	Outputs     []string
	Fingerprint string
	StampPath   string

	// UpToDate overrides the stamp check.
	UpToDate UpToDateFunc
	// Action may be nil for lifecycle tasks that only aggregate dependencies.
	Action Action
}

// ShortName is the name without its module prefix.
func (t *Task) ShortName() string {
	if i := strings.LastIndex(t.Name, ":"); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

// Matches reports whether a requested target selects this task. A target
// is either the full name, the short name or one of the aliases.
func (t *Task) Matches(target string) bool {
	if target == t.Name || target == t.ShortName() {
		return true
	}
	for _, a := range t.Aliases {
		if target == a || (t.Module != "" && target == t.Module+":"+a) {
			return true
		}
	}
	return false
}

// IsUpToDate runs the override or the stamp check. Tasks with neither are
// never up to date.
func (t *Task) IsUpToDate(ctx context.Context) (bool, error) {
	if t.UpToDate != nil {
		return t.UpToDate(ctx)
	}
	if t.StampPath == "" {
		return false, nil
	}
	return CheckStamp(t)
}

// Completed records a successful run so the next IsUpToDate can skip it.
func (t *Task) Completed() error {
	if t.UpToDate != nil || t.StampPath == "" {
		return nil
	}
	return WriteStamp(t)
}
