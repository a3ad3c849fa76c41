// Package config defines the format-agnostic build model: the project, its
// module descriptors and the publish targets they release to.
//
// The model is produced once by a Loader at configuration time and is
// treated as read-only by every later stage. Concrete loaders, such as the
// HCL one, live in their own packages.
package config
