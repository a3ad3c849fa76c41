package publish

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/vk/meghabuild/internal/config"
)

// Artifact is one versioned archive ready for release.
type Artifact struct {
	Group       string
	ArtifactID  string
	Version     string
	Description string
	JarPath     string
	// Dependencies are listed in the generated POM.
	Dependencies []config.Dependency
}

// ArtifactFromModule describes the shaded jar of m.
func ArtifactFromModule(m *config.Module, jarPath string) *Artifact {
	return &Artifact{
		Group:        m.Group,
		ArtifactID:   m.PublishedArtifactID(),
		Version:      m.DeclaredVersion,
		Description:  m.Description,
		JarPath:      jarPath,
		Dependencies: m.Dependencies,
	}
}

// Coordinate is "group:artifact:version".
func (a *Artifact) Coordinate() string {
	return fmt.Sprintf("%s:%s:%s", a.Group, a.ArtifactID, a.Version)
}

// BaseName is the file name stem used in repository layouts.
func (a *Artifact) BaseName() string {
	return a.ArtifactID + "-" + a.Version
}

// ArtifactDir is the repository directory of the artifact, without version.
func (a *Artifact) ArtifactDir() string {
	return strings.ReplaceAll(a.Group, ".", "/") + "/" + a.ArtifactID
}

// VersionDir is the repository directory holding this version's files.
func (a *Artifact) VersionDir() string {
	return a.ArtifactDir() + "/" + a.Version
}

// file is one object of an upload.
type file struct {
	Name string
	Data []byte
}

// files returns the jar, the POM and their checksums, in upload order.
func (a *Artifact) files() ([]file, error) {
	if a.Group == "" || a.ArtifactID == "" || a.Version == "" {
		return nil, fmt.Errorf("artifact coordinate %q is incomplete", a.Coordinate())
	}
	jar, err := os.ReadFile(a.JarPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	pom, err := a.pom()
	if err != nil {
		return nil, err
	}
	var out []file
	out = append(out, withChecksums(a.BaseName()+".jar", jar)...)
	out = append(out, withChecksums(a.BaseName()+".pom", pom)...)
	return out, nil
}

func withChecksums(name string, data []byte) []file {
	s1 := sha1.Sum(data)
	m5 := md5.Sum(data)
	return []file{
		{Name: name, Data: data},
		{Name: name + ".sha1", Data: []byte(hex.EncodeToString(s1[:]))},
		{Name: name + ".md5", Data: []byte(hex.EncodeToString(m5[:]))},
	}
}
