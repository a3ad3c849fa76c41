package deps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/ctxlog"
)

// Resolver maps dependencies to archive files, in declaration order.
type Resolver interface {
	Resolve(ctx context.Context, deps []config.Dependency) ([]string, error)
}

// NotFoundError reports a dependency missing from every repository.
type NotFoundError struct {
	Dependency string
	Searched   []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dependency %s not found (searched %s)", e.Dependency, strings.Join(e.Searched, ", "))
}

// LocalRepository resolves coordinates against directories using the
// Maven repository layout.
type LocalRepository struct {
	roots []string
}

// NewLocalRepository searches roots in order.
func NewLocalRepository(roots ...string) *LocalRepository {
	return &LocalRepository{roots: roots}
}

// DefaultRoot is the user's local Maven repository.
func DefaultRoot(home string) string {
	return filepath.Join(home, ".m2", "repository")
}

// Resolve implements Resolver. All failures are reported together.
func (r *LocalRepository) Resolve(ctx context.Context, deps []config.Dependency) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	var (
		out  []string
		errs []error
	)
	for _, d := range deps {
		p, err := r.resolveOne(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug("Dependency resolved.", "dependency", d.String(), "path", p)
		out = append(out, p)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LocalRepository) resolveOne(d config.Dependency) (string, error) {
	if d.IsLocal() {
		if _, err := os.Stat(d.Path); err != nil {
			return "", &NotFoundError{Dependency: d.String(), Searched: []string{d.Path}}
		}
		return d.Path, nil
	}

	var searched []string
	for _, root := range r.roots {
		dir := filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(d.Group, ".", "/")), d.Artifact)
		searched = append(searched, dir)
		version, err := pickVersion(dir, d.Constraint)
		if err != nil {
			return "", fmt.Errorf("dependency %s: %w", d, err)
		}
		if version == "" {
			continue
		}
		jar := filepath.Join(dir, version, d.Artifact+"-"+version+".jar")
		if _, err := os.Stat(jar); err == nil {
			return jar, nil
		}
	}
	return "", &NotFoundError{Dependency: d.String(), Searched: searched}
}

// pickVersion returns the installed version matching constraint. A
// constraint that is not a semver range, such as "28.2-jre", must match a
// directory name exactly. Ranges select the highest installed match.
func pickVersion(dir, constraint string) (string, error) {
	if fi, err := os.Stat(filepath.Join(dir, constraint)); err == nil && fi.IsDir() {
		return constraint, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var matches []*semver.Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := semver.NewVersion(e.Name())
		if err != nil || !c.Check(v) {
			continue
		}
		matches = append(matches, v)
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Sort(semver.Collection(matches))
	return matches[len(matches)-1].Original(), nil
}
