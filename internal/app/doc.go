// Package app contains the core application logic. It wires the build
// descriptor, version resolution, the task graph and the publishers into one
// invocation, decoupled from any specific entrypoint like the CLI.
package app
