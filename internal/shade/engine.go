package shade

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/ctxlog"
)

// zip64EntryLimit is the classic zip limit on the number of entries.
const zip64EntryLimit = 0xFFFF

// entryTime is stamped on every entry so identical inputs produce
// byte-identical archives.
var entryTime = time.Date(1980, 2, 1, 0, 0, 0, 0, time.UTC)

// Spec describes one archive to assemble.
type Spec struct {
	Output string
	// Dirs are merged first, then Jars, each in order.
	Dirs []string
	Jars []string

	Relocations       []config.Relocation
	Exclusions        []string
	MergeServiceFiles bool

	MainClass          string
	ManifestAttributes map[string]string
}

// Stats summarises an assembled archive.
type Stats struct {
	Entries    int
	Relocated  int
	Duplicates int
	Services   int
	Excluded   int
	Zip64      bool
	Size       int64
}

// Engine assembles shaded archives.
type Engine struct {
	level int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCompressionLevel sets the deflate level, see klauspost/compress/flate.
func WithCompressionLevel(level int) Option {
	return func(e *Engine) { e.level = level }
}

// New creates an Engine using the default deflate level.
func New(opts ...Option) *Engine {
	e := &Engine{level: flate.DefaultCompression}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// source yields the bytes of one input entry.
type source interface {
	open() (io.ReadCloser, error)
	describe() string
}

type fileSource string

func (f fileSource) open() (io.ReadCloser, error) { return os.Open(string(f)) }
func (f fileSource) describe() string              { return string(f) }

type zipSource struct {
	archive string
	file    *zip.File
}

func (z zipSource) open() (io.ReadCloser, error) { return z.file.Open() }
func (z zipSource) describe() string              { return z.archive + "!" + z.file.Name }

type entry struct {
	name    string
	service bool
	// srcs holds every contribution of a service file, or the winning
	// source of any other entry.
	srcs []source
}

type assembly struct {
	spec    Spec
	reloc   *relocator
	exclude matcher
	entries map[string]*entry
	order   []*entry
	// kept lists original paths that were not relocated.
	kept  []string
	stats Stats
}

// Assemble writes the archive described by spec. The output appears
// atomically; on error no partial archive is left behind.
func (e *Engine) Assemble(ctx context.Context, spec Spec) (*Stats, error) {
	logger := ctxlog.FromContext(ctx)

	reloc, err := newRelocator(spec.Relocations)
	if err != nil {
		return nil, err
	}
	a := &assembly{
		spec:    spec,
		reloc:   reloc,
		exclude: matcher{patterns: spec.Exclusions},
		entries: make(map[string]*entry),
	}

	for _, dir := range spec.Dirs {
		if err := a.addDir(dir); err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
	}
	for _, jar := range spec.Jars {
		if a.exclude.matches(filepath.Base(jar)) {
			logger.Debug("Excluding archive.", "archive", jar)
			a.stats.Excluded++
			continue
		}
		rc, err := zip.OpenReader(jar)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", jar, err)
		}
		defer rc.Close()
		for _, f := range rc.File {
			a.add(f.Name, zipSource{archive: jar, file: f}, logger.Debug)
		}
	}

	if err := a.checkTargets(); err != nil {
		return nil, err
	}

	if err := a.write(ctx, e.level); err != nil {
		return nil, err
	}
	if a.stats.Zip64 {
		logger.Info("Archive uses zip64.", "entries", a.stats.Entries, "size", a.stats.Size)
	}
	logger.Debug("Archive assembled.", "output", spec.Output, "entries", a.stats.Entries,
		"relocated", a.stats.Relocated, "duplicates", a.stats.Duplicates, "services", a.stats.Services)
	return &a.stats, nil
}

func (a *assembly) addDir(dir string) error {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		a.add(filepath.ToSlash(rel), fileSource(p), func(string, ...any) {})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// add merges one input entry into the assembly.
func (a *assembly) add(name string, src source, debug func(string, ...any)) {
	if strings.HasSuffix(name, "/") || name == manifestPath || isSignature(name) {
		return
	}
	if a.exclude.matches(name) {
		a.stats.Excluded++
		return
	}

	service := a.spec.MergeServiceFiles && isServiceFile(name)
	target := name
	if service {
		iface := name[len(servicesDir):]
		if relocated, ok := a.reloc.relocateString(iface); ok {
			target = servicesDir + relocated
		}
	} else if relocated, ok := a.reloc.relocatePath(name); ok {
		target = relocated
		a.stats.Relocated++
	} else {
		a.kept = append(a.kept, name)
	}

	existing, ok := a.entries[target]
	switch {
	case !ok:
		en := &entry{name: target, service: service, srcs: []source{src}}
		a.entries[target] = en
		a.order = append(a.order, en)
	case service:
		existing.srcs = append(existing.srcs, src)
	default:
		debug("Duplicate entry, last one wins.", "entry", target,
			"replaced", existing.srcs[0].describe(), "by", src.describe())
		existing.srcs = []source{src}
		a.stats.Duplicates++
	}
}

// checkTargets rejects rules whose target namespace already holds entries
// that stay where they are.
func (a *assembly) checkTargets() error {
	if a.reloc.empty() {
		return nil
	}
	for _, name := range a.kept {
		for _, rl := range a.reloc.rules {
			if strings.HasPrefix(name, rl.toSlash+"/") {
				return &RelocationConflictError{
					From:   rl.fromDot,
					To:     rl.toDot,
					Reason: "target namespace collides with existing entries",
					Path:   name,
				}
			}
		}
	}
	return nil
}

func (a *assembly) write(ctx context.Context, level int) (err error) {
	out := a.spec.Output
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	dirs := make(map[string]bool)
	if err := a.writeEntry(zw, dirs, manifestPath, buildManifest(a.spec.MainClass, a.spec.ManifestAttributes)); err != nil {
		return err
	}
	for _, en := range a.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := a.content(en)
		if err != nil {
			return fmt.Errorf("entry %s: %w", en.name, err)
		}
		if err := a.writeEntry(zw, dirs, en.name, data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	info, err := tmp.Stat()
	if err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	a.stats.Size = info.Size()
	a.stats.Zip64 = a.stats.Entries >= zip64EntryLimit || info.Size() >= 0xFFFFFFFF
	return os.Rename(tmp.Name(), out)
}

// writeEntry emits missing parent directories before the entry itself.
func (a *assembly) writeEntry(zw *zip.Writer, dirs map[string]bool, name string, data []byte) error {
	var missing []string
	for d := path.Dir(name); d != "." && !dirs[d]; d = path.Dir(d) {
		missing = append(missing, d)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		dirs[missing[i]] = true
		if _, err := zw.CreateHeader(&zip.FileHeader{
			Name:     missing[i] + "/",
			Method:   zip.Store,
			Modified: entryTime,
		}); err != nil {
			return err
		}
		a.stats.Entries++
	}

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTime,
	})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	a.stats.Entries++
	return nil
}

func (a *assembly) content(en *entry) ([]byte, error) {
	if en.service {
		parts := make([][]byte, 0, len(en.srcs))
		for _, src := range en.srcs {
			b, err := readSource(src)
			if err != nil {
				return nil, err
			}
			parts = append(parts, b)
		}
		if len(en.srcs) > 1 {
			a.stats.Services++
		}
		return mergeServices(parts, a.reloc), nil
	}

	data, err := readSource(en.srcs[0])
	if err != nil {
		return nil, err
	}
	if a.reloc.empty() || !strings.HasSuffix(en.name, ".class") {
		return data, nil
	}
	rewritten, _, err := rewriteClass(data, a.reloc.relocateString)
	if err != nil {
		return nil, fmt.Errorf("relocating %s: %w", en.srcs[0].describe(), err)
	}
	return rewritten, nil
}

func readSource(src source) ([]byte, error) {
	rc, err := src.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
