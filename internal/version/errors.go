package version

import "fmt"

// VcsReadError reports VCS metadata that exists but could not be read.
type VcsReadError struct {
	Path string
	Op   string
	Err  error
}

func (e *VcsReadError) Error() string {
	return fmt.Sprintf("vcs read failed at %s (%s): %v", e.Path, e.Op, e.Err)
}

func (e *VcsReadError) Unwrap() error {
	return e.Err
}
