// Package hcl implements config.Loader for build descriptors written in
// HCL. It discovers .hcl files, decodes their top-level blocks with gohcl
// and translates them into the format-agnostic config model.
//
// Attribute expressions are evaluated against a small context exposing the
// project directory, the user's home directory and JAVA_HOME, plus a few
// string functions.
package hcl
