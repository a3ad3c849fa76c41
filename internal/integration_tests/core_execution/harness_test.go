package integration_tests

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/vk/meghabuild/internal/app"
	"github.com/vk/meghabuild/internal/javac"
	"github.com/vk/meghabuild/internal/testutil"
)

var buildTime = time.Date(2020, 5, 1, 10, 0, 0, 0, time.Local)

// classFile returns a minimal class file that references each of refs.
func classFile(name string, refs ...string) []byte {
	pool := append([]string{name}, refs...)
	var b []byte
	b = binary.BigEndian.AppendUint32(b, 0xCAFEBABE)
	b = binary.BigEndian.AppendUint16(b, 0)
	b = binary.BigEndian.AppendUint16(b, 52)
	b = binary.BigEndian.AppendUint16(b, uint16(len(pool)+2))
	for _, s := range pool {
		b = append(b, 1)
		b = binary.BigEndian.AppendUint16(b, uint16(len(s)))
		b = append(b, s...)
	}
	b = append(b, 7, 0, 1)
	// access flags, this, super, interfaces, fields, methods, attributes
	return append(b, 0, 0x21, 0, byte(len(pool)+1), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
}

// classCompiler emits one class per module that references Guava.
type classCompiler struct {
	calls int
}

func (c *classCompiler) Compile(_ context.Context, req javac.Request) error {
	c.calls++
	p := filepath.Join(req.OutputDir, "meghanada", "Main.class")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, classFile("meghanada/Main", "com/google/common/collect/ImmutableList", "Lcom/google/common/base/Optional;"), 0o644)
}

func writeJar(t *testing.T, p string, entries map[string][]byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func readJar(t *testing.T, p string) map[string][]byte {
	t.Helper()
	r, err := zip.OpenReader(p)
	require.NoError(t, err)
	defer r.Close()
	out := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b := make([]byte, f.UncompressedSize64)
		_, err = io.ReadFull(rc, b)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = b
	}
	return out
}

// commitAll creates a repository at dir holding every file and returns the
// commit hash.
func commitAll(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddGlob("."))
	hash, err := wt.Commit("release", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: buildTime},
	})
	require.NoError(t, err)
	return hash.String()
}

type harness struct {
	root     string
	home     string
	logs     *testutil.SafeBuffer
	compiler *classCompiler
}

func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()
	h := &harness{root: t.TempDir(), home: t.TempDir(), logs: &testutil.SafeBuffer{}, compiler: &classCompiler{}}
	testutil.DumpLogs(t, h.logs)
	testutil.WriteFiles(t, h.root, files)
	return h
}

func (h *harness) run(t *testing.T, targets ...string) error {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		ProjectDir:  h.root,
		UserHome:    h.home,
		LogLevel:    "debug",
		WorkerCount: 4,
	})
	require.NoError(t, err)
	a := app.NewApp(h.logs, cfg, app.WithCompiler(h.compiler), app.WithClock(func() time.Time { return buildTime }))
	return a.Run(context.Background(), targets...)
}
