package shade

import (
	"path"
	"strings"
)

// matcher decides which inputs and entries are left out of the archive.
type matcher struct {
	patterns []string
}

// signature files are invalidated by any rewrite of the archive.
var signatureSuffixes = []string{".SF", ".DSA", ".RSA", ".EC"}

func isSignature(name string) bool {
	dir, file := path.Split(name)
	if dir != "META-INF/" {
		return false
	}
	upper := strings.ToUpper(file)
	for _, s := range signatureSuffixes {
		if strings.HasSuffix(upper, s) {
			return true
		}
	}
	return strings.HasPrefix(upper, "SIG-")
}

// matches reports whether name, an entry path or an archive file name,
// matches a pattern. A pattern matches the whole path, its base name, or,
// when ending in "/**", everything below a directory.
func (m matcher) matches(name string) bool {
	base := path.Base(name)
	for _, p := range m.patterns {
		if strings.HasSuffix(p, "/**") {
			if strings.HasPrefix(name, strings.TrimSuffix(p, "**")) {
				return true
			}
			continue
		}
		if ok, _ := path.Match(p, name); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := path.Match(p, base); ok {
				return true
			}
		}
	}
	return false
}
