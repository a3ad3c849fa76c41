package shade

import (
	"sort"
	"strings"

	"github.com/vk/meghabuild/internal/config"
)

type rule struct {
	// fromDot and toDot are binary names, fromSlash and toSlash their
	// internal forms.
	fromDot, toDot     string
	fromSlash, toSlash string
}

// relocator applies a validated set of relocation rules.
type relocator struct {
	// rules are sorted longest source first so nested namespaces win.
	rules []rule
}

func newRelocator(rels []config.Relocation) (*relocator, error) {
	bySource := make(map[string]config.Relocation)
	byTarget := make(map[string]config.Relocation)
	r := &relocator{}
	for _, rel := range rels {
		from := strings.Trim(rel.From, ".")
		to := strings.Trim(rel.To, ".")
		if from == "" || to == "" {
			return nil, &RelocationConflictError{From: rel.From, To: rel.To, Reason: "empty namespace"}
		}
		if prev, ok := bySource[from]; ok {
			return nil, &RelocationConflictError{From: from, To: to, Reason: "source already relocated to " + prev.To}
		}
		if prev, ok := byTarget[to]; ok {
			return nil, &RelocationConflictError{From: from, To: to, Reason: "target already used by " + prev.From}
		}
		norm := config.Relocation{From: from, To: to}
		bySource[from] = norm
		byTarget[to] = norm
		r.rules = append(r.rules, rule{
			fromDot:   from,
			toDot:     to,
			fromSlash: strings.ReplaceAll(from, ".", "/"),
			toSlash:   strings.ReplaceAll(to, ".", "/"),
		})
	}
	sort.SliceStable(r.rules, func(i, j int) bool {
		return len(r.rules[i].fromSlash) > len(r.rules[j].fromSlash)
	})
	return r, nil
}

func (r *relocator) empty() bool {
	return r == nil || len(r.rules) == 0
}

// matchPath returns the rule relocating an internal-form path, if any.
func (r *relocator) matchPath(p string) (rule, bool) {
	if r.empty() {
		return rule{}, false
	}
	for _, rl := range r.rules {
		if strings.HasPrefix(p, rl.fromSlash+"/") {
			return rl, true
		}
	}
	return rule{}, false
}

const versionsPrefix = "META-INF/versions/"

// relocatePath renames an archive entry. Multi-release entries keep their
// version prefix.
func (r *relocator) relocatePath(p string) (string, bool) {
	prefix := ""
	rest := p
	if strings.HasPrefix(p, versionsPrefix) {
		if i := strings.IndexByte(p[len(versionsPrefix):], '/'); i >= 0 {
			cut := len(versionsPrefix) + i + 1
			prefix, rest = p[:cut], p[cut:]
		}
	}
	rl, ok := r.matchPath(rest)
	if !ok {
		return p, false
	}
	return prefix + rl.toSlash + rest[len(rl.fromSlash):], true
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// atBoundary reports whether a class name may start at s[i]: at the start
// of the string, after a descriptor "L", after a leading "/" of an absolute
// resource name, or after any byte that cannot be part of a name.
func atBoundary(s string, i int) bool {
	if i == 0 {
		return true
	}
	prev := s[i-1]
	switch {
	case prev == 'L':
		return i == 1 || !isIdentByte(s[i-2]) && s[i-2] != '/' && s[i-2] != '.'
	case prev == '/':
		return i == 1
	case prev == '.':
		return false
	default:
		return !isIdentByte(prev)
	}
}

// relocateString rewrites every class or package reference in s, in either
// internal ("a/b/C") or binary ("a.b.C") form.
func (r *relocator) relocateString(s string) (string, bool) {
	if r.empty() {
		return s, false
	}
	var b strings.Builder
	changed := false
	last := 0
	for i := 0; i < len(s); {
		if !atBoundary(s, i) {
			i++
			continue
		}
		matched := false
		for _, rl := range r.rules {
			from, to, ok := rl.fromSlash, rl.toSlash, false
			switch {
			case hasNamespace(s[i:], rl.fromSlash, '/'):
				ok = true
			case hasNamespace(s[i:], rl.fromDot, '.'):
				from, to, ok = rl.fromDot, rl.toDot, true
			}
			if !ok {
				continue
			}
			b.WriteString(s[last:i])
			b.WriteString(to)
			i += len(from)
			last = i
			changed, matched = true, true
			break
		}
		if !matched {
			i++
		}
	}
	if !changed {
		return s, false
	}
	b.WriteString(s[last:])
	return b.String(), true
}

// hasNamespace reports whether s starts with ns followed by sep or a byte
// that ends a name, or is exactly ns.
func hasNamespace(s, ns string, sep byte) bool {
	if !strings.HasPrefix(s, ns) {
		return false
	}
	if len(s) == len(ns) {
		return true
	}
	next := s[len(ns)]
	return next == sep || (!isIdentByte(next) && next != '/' && next != '.')
}
