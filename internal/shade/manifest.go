package shade

import (
	"bytes"
	"sort"
)

const manifestPath = "META-INF/MANIFEST.MF"

// manifestLineMax is the byte limit of a manifest line, JAR spec.
const manifestLineMax = 72

// buildManifest renders the main section. Main-Class is omitted when empty
// and extra attributes are written in name order.
func buildManifest(mainClass string, extra map[string]string) []byte {
	var b bytes.Buffer
	writeManifestLine(&b, "Manifest-Version", "1.0")
	writeManifestLine(&b, "Created-By", "meghabuild")
	if mainClass != "" {
		writeManifestLine(&b, "Main-Class", mainClass)
	}
	names := make([]string, 0, len(extra))
	for k := range extra {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		writeManifestLine(&b, k, extra[k])
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// writeManifestLine wraps long lines with continuation lines starting with
// a single space.
func writeManifestLine(b *bytes.Buffer, name, value string) {
	line := []byte(name + ": " + value)
	limit := manifestLineMax
	for len(line) > limit {
		b.Write(line[:limit])
		b.WriteString("\r\n ")
		line = line[limit:]
		limit = manifestLineMax - 1
	}
	b.Write(line)
	b.WriteString("\r\n")
}
