package version

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// TimestampLayout is the local-time layout embedded into version resources.
const TimestampLayout = "2006-01-02T15:04:05"

// ReleaseRevision marks a build made from a tree without VCS metadata.
const ReleaseRevision = "release"

// Record identifies one build of one module.
type Record struct {
	DeclaredVersion string
	// Revision is the abbreviated HEAD hash or ReleaseRevision.
	Revision string
	// Branch is informational only and never part of any artifact name.
	Branch    string
	Timestamp time.Time
}

// LongVersion is the declared version suffixed with the revision.
func (r Record) LongVersion() string {
	return r.DeclaredVersion + "-" + r.Revision
}

// BuildDate formats the timestamp for embedding.
func (r Record) BuildDate() string {
	return r.Timestamp.Format(TimestampLayout)
}

// IsRelease reports whether the build was made outside a repository.
func (r Record) IsRelease() bool {
	return r.Revision == ReleaseRevision
}

// ValidateDeclared checks that v is a semantic version. Versions like
// "1.2" are accepted the same way the semver parser accepts them.
func ValidateDeclared(v string) error {
	if v == "" {
		return fmt.Errorf("declared version is empty")
	}
	if _, err := semver.NewVersion(v); err != nil {
		return fmt.Errorf("declared version %q is not a semantic version: %w", v, err)
	}
	return nil
}
