package buildtasks

import (
	"fmt"
	"maps"
	"path/filepath"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/version"
)

// StateDirName is the per-module directory the running application keeps
// its caches in. clean removes it together with the build directory.
const StateDirName = ".meghanada"

// Context is the immutable state of one invocation. It is built once
// before any task runs and only read afterwards.
type Context struct {
	projectDir string
	userHome   string
	project    *config.Project
	versions   map[string]version.Record
}

// NewContext captures the invocation state. Every module of project must
// have a version record.
func NewContext(projectDir, userHome string, project *config.Project, versions map[string]version.Record) (*Context, error) {
	for _, m := range project.Modules {
		if _, ok := versions[m.Name]; !ok {
			return nil, fmt.Errorf("no version record for module %s", m.Name)
		}
	}
	return &Context{
		projectDir: projectDir,
		userHome:   userHome,
		project:    project,
		versions:   maps.Clone(versions),
	}, nil
}

func (c *Context) ProjectDir() string        { return c.projectDir }
func (c *Context) UserHome() string          { return c.userHome }
func (c *Context) Project() *config.Project  { return c.project }
func (c *Context) Modules() []*config.Module { return c.project.Modules }

// Version returns the version record of a module.
func (c *Context) Version(module string) version.Record {
	return c.versions[module]
}

// Layout is where a module's tasks read and write.
type Layout struct {
	m    *config.Module
	home string
}

// Layout returns the directory layout of m.
func (c *Context) Layout(m *config.Module) Layout {
	return Layout{m: m, home: c.userHome}
}

func (l Layout) BuildDir() string     { return filepath.Join(l.m.Dir, "build") }
func (l Layout) StateDir() string     { return filepath.Join(l.m.Dir, StateDirName) }
func (l Layout) ClassesDir() string   { return filepath.Join(l.BuildDir(), "classes", "java", "main") }
func (l Layout) ResourcesDir() string { return filepath.Join(l.BuildDir(), "resources", "main") }
func (l Layout) LibsDir() string      { return filepath.Join(l.BuildDir(), "libs") }

// VersionTemplate is the template read by embedVersion.
func (l Layout) VersionTemplate() string {
	return filepath.Join(l.m.ResourceDir, filepath.FromSlash(l.m.VersionTemplate))
}

// VersionResource is the expanded template.
func (l Layout) VersionResource() string {
	return filepath.Join(l.ResourcesDir(), filepath.FromSlash(l.m.VersionTemplate))
}

// Artifact is the shaded jar.
func (l Layout) Artifact() string {
	return filepath.Join(l.LibsDir(), l.m.ArtifactFileName())
}

// InstallPath is where installToUserHome puts the jar.
func (l Layout) InstallPath() string {
	return filepath.Join(l.home, ".emacs.d", "meghanada", l.m.ArtifactFileName())
}

// Stamp is the stamp file of one task, partitioned per task.
func (l Layout) Stamp(task string) string {
	return filepath.Join(l.BuildDir(), "tmp", task, "stamp")
}
