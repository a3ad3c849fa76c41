package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/ctxlog"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	vars Vars
}

// NewLoader creates a loader evaluating expressions against vars.
func NewLoader(vars Vars) *Loader {
	return &Loader{vars: vars}
}

// Load parses every .hcl file found under paths and merges their blocks
// into one project. Files are visited in lexical order so declaration order
// is stable across runs.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Project, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl build descriptor found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	project := &config.Project{Targets: make(map[string]*config.PublishTarget)}
	parser := hclparse.NewParser()
	evalCtx := l.vars.evalContext()
	projectSeen := false

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, p := range root.Projects {
			if projectSeen {
				return nil, fmt.Errorf("%s: only one project block is allowed", file)
			}
			projectSeen = true
			project.Name = p.Name
			project.Group = p.Group
			for _, repo := range p.Repositories {
				project.Repositories = append(project.Repositories, l.abs(repo))
			}
		}
		for _, t := range root.Targets {
			if _, dup := project.Targets[t.Name]; dup {
				return nil, fmt.Errorf("%s: target %q declared twice", file, t.Name)
			}
			project.Targets[t.Name] = translateTarget(t)
		}
		for _, m := range root.Modules {
			mod, err := l.translateModule(m)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			project.Modules = append(project.Modules, mod)
		}
	}

	for _, m := range project.Modules {
		if m.Group == "" {
			m.Group = project.Group
		}
	}
	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("invalid build descriptor: %w", err)
	}

	logger.Debug("HCL loading complete.", "modules", len(project.Modules), "targets", len(project.Targets))
	return project, nil
}

func (l *Loader) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.vars.ProjectDir, p)
}

// findAllHCLFiles walks all given paths and returns a sorted, de-duplicated
// list of .hcl files. Paths that don't exist are skipped.
func findAllHCLFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var all []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && p != path && (d.Name() == "build" || d.Name()[0] == '.') {
				return filepath.SkipDir
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(all)
	return all, nil
}
