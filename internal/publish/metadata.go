package publish

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"
)

const metadataName = "maven-metadata.xml"

type mavenMetadata struct {
	XMLName    xml.Name `xml:"metadata"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Versioning struct {
		Latest      string   `xml:"latest"`
		Release     string   `xml:"release"`
		Versions    []string `xml:"versions>version"`
		LastUpdated string   `xml:"lastUpdated"`
	} `xml:"versioning"`
}

// mergeMetadata adds the artifact's version to existing metadata, which may
// be empty.
func mergeMetadata(existing []byte, a *Artifact, now time.Time) ([]byte, error) {
	var md mavenMetadata
	if len(bytes.TrimSpace(existing)) > 0 {
		if err := xml.Unmarshal(existing, &md); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", metadataName, err)
		}
	}
	md.GroupID = a.Group
	md.ArtifactID = a.ArtifactID
	found := false
	for _, v := range md.Versioning.Versions {
		if v == a.Version {
			found = true
			break
		}
	}
	if !found {
		md.Versioning.Versions = append(md.Versioning.Versions, a.Version)
	}
	md.Versioning.Latest = a.Version
	md.Versioning.Release = a.Version
	md.Versioning.LastUpdated = now.UTC().Format("20060102150405")

	var b bytes.Buffer
	b.WriteString(xml.Header)
	enc := xml.NewEncoder(&b)
	enc.Indent("", "  ")
	if err := enc.Encode(md); err != nil {
		return nil, err
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
