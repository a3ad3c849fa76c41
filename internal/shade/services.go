package shade

import (
	"bufio"
	"bytes"
	"strings"
)

const servicesDir = "META-INF/services/"

func isServiceFile(name string) bool {
	return strings.HasPrefix(name, servicesDir) && len(name) > len(servicesDir) &&
		!strings.Contains(name[len(servicesDir):], "/")
}

// mergeServices concatenates provider lists, dropping blank lines, comments
// and repeated providers while keeping first-seen order. Provider names
// are relocated.
func mergeServices(parts [][]byte, r *relocator) []byte {
	var out bytes.Buffer
	seen := make(map[string]bool)
	for _, part := range parts {
		sc := bufio.NewScanner(bytes.NewReader(part))
		for sc.Scan() {
			line := sc.Text()
			if i := strings.IndexByte(line, '#'); i >= 0 {
				line = line[:i]
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if relocated, ok := r.relocateString(line); ok {
				line = relocated
			}
			if seen[line] {
				continue
			}
			seen[line] = true
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	return out.Bytes()
}
