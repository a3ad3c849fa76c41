package executor

import "fmt"

// TaskActionError reports the failure of one task's action or of its
// up-to-date check.
type TaskActionError struct {
	Task string
	Err  error
}

func (e *TaskActionError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.Task, e.Err)
}

func (e *TaskActionError) Unwrap() error {
	return e.Err
}

// UnknownTaskError reports a target or dependency that names no task.
type UnknownTaskError struct {
	Name string
	// RequiredBy is empty for requested targets.
	RequiredBy string
}

func (e *UnknownTaskError) Error() string {
	if e.RequiredBy != "" {
		return fmt.Sprintf("task %s depends on unknown task %s", e.RequiredBy, e.Name)
	}
	return fmt.Sprintf("task %s not found", e.Name)
}
