package publish

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

type pomProject struct {
	XMLName        xml.Name        `xml:"project"`
	Xmlns          string          `xml:"xmlns,attr"`
	XsiNS          string          `xml:"xmlns:xsi,attr"`
	SchemaLocation string          `xml:"xsi:schemaLocation,attr"`
	ModelVersion   string          `xml:"modelVersion"`
	GroupID        string          `xml:"groupId"`
	ArtifactID     string          `xml:"artifactId"`
	Version        string          `xml:"version"`
	Description    string          `xml:"description,omitempty"`
	Dependencies   []pomDependency `xml:"dependencies>dependency,omitempty"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

// pom renders a minimal POM. Dependencies are shaded into the jar, so they
// are declared with provided scope for information only.
func (a *Artifact) pom() ([]byte, error) {
	p := pomProject{
		Xmlns:          "http://maven.apache.org/POM/4.0.0",
		XsiNS:          "http://www.w3.org/2001/XMLSchema-instance",
		SchemaLocation: "http://maven.apache.org/POM/4.0.0 http://maven.apache.org/xsd/maven-4.0.0.xsd",
		ModelVersion:   "4.0.0",
		GroupID:        a.Group,
		ArtifactID:     a.ArtifactID,
		Version:        a.Version,
		Description:    a.Description,
	}
	for _, d := range a.Dependencies {
		if d.IsLocal() {
			continue
		}
		p.Dependencies = append(p.Dependencies, pomDependency{
			GroupID:    d.Group,
			ArtifactID: d.Artifact,
			Version:    d.Constraint,
			Scope:      "provided",
		})
	}
	var b bytes.Buffer
	b.WriteString(xml.Header)
	enc := xml.NewEncoder(&b)
	enc.Indent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("rendering pom: %w", err)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
