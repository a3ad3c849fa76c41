// Package deps turns module dependency declarations into archive paths.
//
// Only lookup is implemented: coordinates are searched in local repositories
// laid out like ~/.m2/repository, and explicit file paths are passed
// through. Nothing is downloaded.
package deps
