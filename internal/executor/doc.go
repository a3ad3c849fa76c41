// Package executor owns the task graph of a build invocation and runs it
// on a pool of workers.
//
// Tasks are registered up front. Run validates the whole graph for cycles
// before any action executes, narrows it to the requested targets and their
// transitive dependencies, and dispatches tasks whose dependencies have all
// completed. The first failing action stops scheduling: tasks that have not
// started are skipped, tasks already running are allowed to finish.
package executor
