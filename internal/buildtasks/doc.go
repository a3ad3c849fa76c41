// Package buildtasks registers the built-in tasks of every module:
// processResources, embedVersion, classes, shadowJar, publish,
// publishTo<Target>, installToUserHome and clean.
//
// All tasks read from one Context captured at the start of the invocation.
// File-producing tasks declare their inputs and outputs and are skipped
// when the stamp of their last successful run still matches.
package buildtasks
