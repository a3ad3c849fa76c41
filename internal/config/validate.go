package config

import (
	"errors"
	"fmt"

	"github.com/vk/meghabuild/internal/version"
)

// Validate checks the cross-references of a loaded project.
func (p *Project) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for _, m := range p.Modules {
		if seen[m.Name] {
			errs = append(errs, fmt.Errorf("module %q declared twice", m.Name))
		}
		seen[m.Name] = true

		if m.AppName == "" {
			errs = append(errs, fmt.Errorf("module %q: app_name is required", m.Name))
		}
		if err := version.ValidateDeclared(m.DeclaredVersion); err != nil {
			errs = append(errs, fmt.Errorf("module %q: %w", m.Name, err))
		}
		for _, name := range m.Publish {
			if _, ok := p.Targets[name]; !ok {
				errs = append(errs, fmt.Errorf("module %q: unknown publish target %q", m.Name, name))
			}
		}
	}
	for name, t := range p.Targets {
		switch t.Kind {
		case TargetMaven:
			if t.URL == "" {
				errs = append(errs, fmt.Errorf("target %q: url is required for maven targets", name))
			}
		case TargetS3:
			if t.Bucket == "" {
				errs = append(errs, fmt.Errorf("target %q: bucket is required for s3 targets", name))
			}
		default:
			errs = append(errs, fmt.Errorf("target %q: unknown kind %q", name, t.Kind))
		}
	}
	return errors.Join(errs...)
}
