package executor

import "time"

// Outcome is the final state of a task in one run.
type Outcome string

const (
	// Executed means the action ran and succeeded.
	Executed Outcome = "executed"
	UpToDate Outcome = "up-to-date"
	Failed   Outcome = "failed"
	// Skipped tasks were never started because the run was aborted.
	Skipped Outcome = "skipped"
)

// TaskResult is the outcome of one task.
type TaskResult struct {
	Name     string
	Outcome  Outcome
	Duration time.Duration
	Err      error
}

// Result lists every planned task in plan order.
type Result struct {
	Tasks []TaskResult
}

// Count returns how many tasks ended with the outcome.
func (r *Result) Count(o Outcome) int {
	n := 0
	for _, t := range r.Tasks {
		if t.Outcome == o {
			n++
		}
	}
	return n
}

// Outcome returns the outcome of the named task.
func (r *Result) Outcome(name string) (Outcome, bool) {
	for _, t := range r.Tasks {
		if t.Name == name {
			return t.Outcome, true
		}
	}
	return "", false
}
