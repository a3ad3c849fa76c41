package config

import "context"

// Loader reads a build descriptor from the given paths and translates it
// into the format-agnostic model.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Project, error)
}
