package app

import (
	"errors"
	"fmt"
	"path/filepath"
)

// DefaultBuildFile is the descriptor looked up in the project directory.
const DefaultBuildFile = "build.hcl"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProjectDir string
	// BuildFiles are descriptor files or directories, relative to
	// ProjectDir unless absolute.
	BuildFiles []string

	UserHome string
	JavaHome string
	// ReportPath receives the publish report as YAML when set.
	ReportPath string

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectDir == "" {
		return nil, errors.New("ProjectDir is a required configuration field and cannot be empty")
	}
	abs, err := filepath.Abs(cfg.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}
	cfg.ProjectDir = abs

	if cfg.UserHome == "" {
		return nil, errors.New("UserHome is a required configuration field and cannot be empty")
	}
	if len(cfg.BuildFiles) == 0 {
		cfg.BuildFiles = []string{DefaultBuildFile}
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", cfg.LogFormat)
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	return &cfg, nil
}

// buildPaths resolves BuildFiles against ProjectDir.
func (c *Config) buildPaths() []string {
	out := make([]string, len(c.BuildFiles))
	for i, p := range c.BuildFiles {
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.ProjectDir, p)
		}
		out[i] = p
	}
	return out
}
