package executor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/meghabuild/internal/task"
)

// runNode is the per-run execution state of a task.
type runNode struct {
	task       *task.Task
	dependents []*runNode
	depCount   atomic.Int32

	// settle guarantees a node is finished exactly once, whichever of the
	// worker or the skip cascade gets there first.
	settle   sync.Once
	outcome  Outcome
	err      error
	duration time.Duration
}
