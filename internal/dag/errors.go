package dag

import (
	"fmt"
	"strings"
)

// CyclicDependencyError reports a cycle. Path starts and ends with the same
// node, e.g. [a b a].
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Path, " -> "))
}

// UnknownNodeError reports a reference to a node that was never added.
type UnknownNodeError struct {
	ID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("node not found: %s", e.ID)
}
