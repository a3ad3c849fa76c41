package buildtasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/ctxlog"
	"github.com/vk/meghabuild/internal/fsutil"
	"github.com/vk/meghabuild/internal/javac"
	"github.com/vk/meghabuild/internal/shade"
	"github.com/vk/meghabuild/internal/task"
	"github.com/vk/meghabuild/internal/version"
)

// moduleBuilder creates the tasks of one module.
type moduleBuilder struct {
	bc     *Context
	c      Collaborators
	m      *config.Module
	layout Layout
	rec    version.Record
}

func (b *moduleBuilder) task(short, group, description string) *task.Task {
	return &task.Task{
		Name:        Name(b.m.Name, short),
		Module:      b.m.Name,
		Group:       group,
		Description: description,
		StampPath:   b.layout.Stamp(short),
	}
}

func (b *moduleBuilder) dep(short string) string {
	return Name(b.m.Name, short)
}

// localDependencies are the dependency files known before resolution.
func (b *moduleBuilder) localDependencies() []string {
	var out []string
	for _, d := range b.m.Dependencies {
		if d.IsLocal() {
			out = append(out, d.Path)
		}
	}
	return out
}

func fingerprint(parts ...string) string {
	return strings.Join(parts, "\x00")
}

func (b *moduleBuilder) dependencyFingerprint() string {
	var parts []string
	for _, d := range b.m.Dependencies {
		parts = append(parts, d.String())
	}
	return "deps=" + strings.Join(parts, ",")
}

func (b *moduleBuilder) processResources() *task.Task {
	t := b.task(ProcessResources, "build", "Copies the module resources into the build directory.")
	out := b.layout.ResourcesDir()
	template := filepath.ToSlash(b.m.VersionTemplate)
	t.Inputs = []string{b.m.ResourceDir}
	t.Outputs = []string{out}
	t.Fingerprint = fingerprint("exclude=" + template)
	t.Action = func(ctx context.Context) error {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		// The template is owned by embedVersion; copying it would clobber
		// the expanded resource.
		n, err := fsutil.CopyTree(b.m.ResourceDir, out, func(rel string) bool { return rel == template })
		if err != nil {
			return err
		}
		ctxlog.FromContext(ctx).Debug("Resources copied.", "files", n, "to", out)
		return nil
	}
	return t
}

func (b *moduleBuilder) embedVersion() *task.Task {
	t := b.task(EmbedVersion, "build", "Writes the version resource with build date, version and application name.")
	src := b.layout.VersionTemplate()
	dst := b.layout.VersionResource()
	t.DependsOn = []string{b.dep(ProcessResources)}
	t.Inputs = []string{src}
	t.Outputs = []string{dst}
	// The build date is left out so that an unchanged tree stays up to date.
	t.Fingerprint = fingerprint("version="+b.rec.LongVersion(), "app="+b.m.AppName)
	t.Action = func(ctx context.Context) error {
		raw, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("reading version template: %w", err)
		}
		expanded := version.Expand(string(raw), b.rec, b.m.AppName)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, []byte(expanded), 0o644); err != nil {
			return err
		}
		ctxlog.FromContext(ctx).Debug("Version resource written.", "path", dst, "version", b.rec.LongVersion(), "buildDate", b.rec.BuildDate())
		return nil
	}
	return t
}

func (b *moduleBuilder) classes() *task.Task {
	t := b.task(Classes, "build", "Compiles the module sources.")
	out := b.layout.ClassesDir()
	t.DependsOn = []string{b.dep(EmbedVersion)}
	t.Inputs = append([]string{b.m.SourceDir}, b.localDependencies()...)
	t.Outputs = []string{out}
	t.Fingerprint = fingerprint(b.dependencyFingerprint(), "release="+b.m.JavaRelease)
	t.Action = func(ctx context.Context) error {
		classpath, err := b.c.Resolver.Resolve(ctx, b.m.Dependencies)
		if err != nil {
			return err
		}
		return b.c.Compiler.Compile(ctx, javac.Request{
			Module:    b.m.Name,
			SourceDir: b.m.SourceDir,
			OutputDir: out,
			Classpath: classpath,
			Release:   b.m.JavaRelease,
		})
	}
	return t
}

func (b *moduleBuilder) shadeSpec(jars []string) shade.Spec {
	return shade.Spec{
		Output:            b.layout.Artifact(),
		Dirs:              []string{b.layout.ClassesDir(), b.layout.ResourcesDir()},
		Jars:              jars,
		Relocations:       b.m.Relocations,
		Exclusions:        b.m.Exclusions,
		MergeServiceFiles: b.m.MergeServiceFiles,
		MainClass:         b.m.MainClass,
		ManifestAttributes: map[string]string{
			"Implementation-Title":   b.m.AppName,
			"Implementation-Version": b.rec.LongVersion(),
		},
	}
}

func (b *moduleBuilder) shadowJar() *task.Task {
	t := b.task(ShadowJar, "build", "Assembles the shaded application jar.")
	t.DependsOn = []string{b.dep(Classes)}
	t.Inputs = append([]string{b.layout.ClassesDir(), b.layout.ResourcesDir()}, b.localDependencies()...)
	t.Outputs = []string{b.layout.Artifact()}

	var relocations []string
	for _, r := range b.m.Relocations {
		relocations = append(relocations, r.From+"=>"+r.To)
	}
	t.Fingerprint = fingerprint(
		b.dependencyFingerprint(),
		"relocate="+strings.Join(relocations, ","),
		"exclude="+strings.Join(b.m.Exclusions, ","),
		fmt.Sprintf("services=%t", b.m.MergeServiceFiles),
		"main="+b.m.MainClass,
		"version="+b.rec.LongVersion(),
	)
	t.Action = func(ctx context.Context) error {
		jars, err := b.c.Resolver.Resolve(ctx, b.m.Dependencies)
		if err != nil {
			return err
		}
		stats, err := b.c.Shader.Assemble(ctx, b.shadeSpec(jars))
		if err != nil {
			return err
		}
		ctxlog.FromContext(ctx).Info("📦 Shaded jar assembled.",
			"path", b.layout.Artifact(),
			"entries", stats.Entries,
			"relocated", stats.Relocated,
			"zip64", stats.Zip64,
		)
		return nil
	}
	return t
}

func (b *moduleBuilder) installToUserHome() *task.Task {
	t := b.task(InstallToUserHome, "install", "Copies the shaded jar into the editor's home directory.")
	src := b.layout.Artifact()
	dst := b.layout.InstallPath()
	t.Aliases = []string{installEmacsHome}
	t.DependsOn = []string{b.dep(ShadowJar)}
	t.Inputs = []string{src}
	t.Outputs = []string{dst}
	t.Fingerprint = fingerprint("dest=" + dst)
	t.Action = func(ctx context.Context) error {
		if err := fsutil.CopyFile(src, dst); err != nil {
			return fmt.Errorf("installing %s: %w", filepath.Base(src), err)
		}
		ctxlog.FromContext(ctx).Info("📦 Installed.", "path", dst)
		return nil
	}
	return t
}

func (b *moduleBuilder) clean() *task.Task {
	t := b.task(Clean, "build", "Deletes the build and state directories.")
	// Never up to date.
	t.StampPath = ""
	t.Action = func(ctx context.Context) error {
		for _, dir := range []string{b.layout.BuildDir(), b.layout.StateDir()} {
			if err := os.RemoveAll(dir); err != nil {
				return err
			}
			ctxlog.FromContext(ctx).Debug("Removed directory.", "path", dir)
		}
		return nil
	}
	return t
}
