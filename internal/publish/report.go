package publish

import (
	"errors"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the outcome of one target.
type Status string

const (
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// TargetReport is the outcome of publishing to one target.
type TargetReport struct {
	Target   string        `yaml:"target"`
	Kind     string        `yaml:"kind"`
	Status   Status        `yaml:"status"`
	Files    []string      `yaml:"files,omitempty"`
	Error    string        `yaml:"error,omitempty"`
	Duration time.Duration `yaml:"duration"`

	err error
}

// Err returns the failure of the target, if any.
func (t TargetReport) Err() error {
	return t.err
}

// Report lists every requested target in request order.
type Report struct {
	Artifact string         `yaml:"artifact"`
	Targets  []TargetReport `yaml:"targets"`
}

// Failed reports whether any target failed.
func (r *Report) Failed() bool {
	for _, t := range r.Targets {
		if t.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Err joins the failures of all targets.
func (r *Report) Err() error {
	var errs []error
	for _, t := range r.Targets {
		if t.err != nil {
			errs = append(errs, t.err)
		}
	}
	return errors.Join(errs...)
}

// WriteYAML renders the report.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
