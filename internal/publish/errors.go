package publish

import "fmt"

// MissingCredentialError reports a credential that the target needs but the
// credential source does not have.
type MissingCredentialError struct {
	Target string
	Name   string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("target %s: missing credential %s", e.Target, e.Name)
}

// TargetError wraps the failure of one target.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("publish to %s failed: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}
