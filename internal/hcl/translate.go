package hcl

import (
	"fmt"
	"path/filepath"

	"github.com/vk/meghabuild/internal/config"
)

const (
	defaultSourceDir       = "src/main/java"
	defaultResourceDir     = "src/main/resources"
	defaultVersionTemplate = "VERSION"
)

func (l *Loader) translateModule(b *moduleBlock) (*config.Module, error) {
	dir := b.Dir
	if dir == "" {
		dir = b.Name
	}
	dir = l.abs(dir)

	m := &config.Module{
		Name:              b.Name,
		Dir:               dir,
		AppName:           b.AppName,
		DeclaredVersion:   b.Version,
		Group:             b.Group,
		ArtifactID:        b.ArtifactID,
		MainClass:         b.MainClass,
		Description:       b.Description,
		JavaRelease:       b.JavaRelease,
		SourceDir:         inDir(dir, b.SourceDir, defaultSourceDir),
		ResourceDir:       inDir(dir, b.ResourceDir, defaultResourceDir),
		VersionTemplate:   orDefault(b.VersionTemplate, defaultVersionTemplate),
		Exclusions:        b.Exclude,
		MergeServiceFiles: b.MergeServices == nil || *b.MergeServices,
		Publish:           b.Publish,
		Install:           b.Install,
	}

	for _, d := range b.Dependencies {
		dep, err := translateDependency(d)
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", b.Name, err)
		}
		if dep.IsLocal() {
			dep.Path = inDir(dir, dep.Path, "")
		}
		m.Dependencies = append(m.Dependencies, dep)
	}
	for _, r := range b.Relocations {
		m.Relocations = append(m.Relocations, config.Relocation{From: r.From, To: r.To})
	}
	return m, nil
}

func translateDependency(b *dependencyBlock) (config.Dependency, error) {
	if b.Path != "" {
		if b.Version != "" {
			return config.Dependency{}, fmt.Errorf("dependency %q: path and version are mutually exclusive", b.Name)
		}
		return config.Dependency{Path: b.Path}, nil
	}
	dep, err := config.ParseCoordinate(b.Name)
	if err != nil {
		return config.Dependency{}, err
	}
	if b.Version != "" {
		if dep.Constraint != "" {
			return config.Dependency{}, fmt.Errorf("dependency %q: version given twice", b.Name)
		}
		dep.Constraint = b.Version
	}
	if dep.Constraint == "" {
		return config.Dependency{}, fmt.Errorf("dependency %q: version is required", b.Name)
	}
	return dep, nil
}

func translateTarget(b *targetBlock) *config.PublishTarget {
	return &config.PublishTarget{
		Name:        b.Name,
		Kind:        config.TargetKind(b.Kind),
		URL:         b.URL,
		Bucket:      b.Bucket,
		Region:      b.Region,
		Prefix:      b.Prefix,
		Endpoint:    b.Endpoint,
		UsernameEnv: b.UsernameEnv,
		SecretEnv:   b.SecretEnv,
	}
}

func inDir(dir, p, def string) string {
	if p == "" {
		p = def
	}
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
