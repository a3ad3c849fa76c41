package config

import (
	"fmt"
	"path"
	"strings"
)

// Project is the root of a build descriptor.
type Project struct {
	Name    string
	Group   string
	Modules []*Module
	Targets map[string]*PublishTarget
	// Repositories are local artifact repository roots searched in order.
	Repositories []string
}

// Module returns the module with the given name.
func (p *Project) Module(name string) (*Module, bool) {
	for _, m := range p.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Module is the descriptor of one buildable component.
type Module struct {
	Name            string
	Dir             string
	AppName         string
	DeclaredVersion string
	Group           string
	ArtifactID      string
	MainClass       string
	Description     string
	// JavaRelease is the --release level handed to the compiler.
	JavaRelease     string

	SourceDir       string
	ResourceDir     string
	VersionTemplate string

	Dependencies      []Dependency
	Relocations       []Relocation
	Exclusions        []string
	MergeServiceFiles bool

	// Publish lists the target names this module is released to.
	Publish []string
	Install bool
}

// ArtifactFileName is the name of the shaded jar.
func (m *Module) ArtifactFileName() string {
	return m.AppName + "-" + m.DeclaredVersion + ".jar"
}

// PublishedArtifactID falls back to the application name.
func (m *Module) PublishedArtifactID() string {
	if m.ArtifactID != "" {
		return m.ArtifactID
	}
	return m.AppName
}

// Dependency is either a coordinate with a version constraint or a local
// archive path.
type Dependency struct {
	Group      string
	Artifact   string
	Constraint string
	Path       string
}

// ParseCoordinate splits "group:artifact[:version]".
func ParseCoordinate(s string) (Dependency, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Dependency{}, fmt.Errorf("invalid coordinate %q: want group:artifact[:version]", s)
	}
	for _, p := range parts {
		if p == "" {
			return Dependency{}, fmt.Errorf("invalid coordinate %q: empty segment", s)
		}
	}
	d := Dependency{Group: parts[0], Artifact: parts[1]}
	if len(parts) == 3 {
		d.Constraint = parts[2]
	}
	return d, nil
}

// IsLocal reports whether the dependency names a file rather than a coordinate.
func (d Dependency) IsLocal() bool {
	return d.Path != ""
}

// FileName is the archive name a dependency resolves to.
func (d Dependency) FileName() string {
	if d.IsLocal() {
		return path.Base(strings.ReplaceAll(d.Path, "\\", "/"))
	}
	return d.Artifact + "-" + d.Constraint + ".jar"
}

func (d Dependency) String() string {
	if d.IsLocal() {
		return d.Path
	}
	if d.Constraint == "" {
		return d.Group + ":" + d.Artifact
	}
	return d.Group + ":" + d.Artifact + ":" + d.Constraint
}

// Relocation moves a dotted package namespace to another.
type Relocation struct {
	From string
	To   string
}

// TargetKind selects the publisher implementation.
type TargetKind string

const (
	TargetMaven TargetKind = "maven"
	TargetS3    TargetKind = "s3"
)

// PublishTarget describes one remote repository.
type PublishTarget struct {
	Name string
	Kind TargetKind

	URL string

	Bucket   string
	Region   string
	Prefix   string
	Endpoint string

	// UsernameEnv and SecretEnv name credentials, never their values.
	UsernameEnv string
	SecretEnv   string
}

// CredentialNames lists every credential the target needs.
func (t *PublishTarget) CredentialNames() []string {
	var names []string
	if t.UsernameEnv != "" {
		names = append(names, t.UsernameEnv)
	}
	if t.SecretEnv != "" {
		names = append(names, t.SecretEnv)
	}
	return names
}
