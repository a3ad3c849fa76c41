package shade

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/ctxlog"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// classFile builds a minimal class whose constant pool holds the given
// Utf8 strings, a Class entry for the first one, and a Long constant in the
// middle so that two-slot constants are exercised.
func classFile(strs ...string) []byte {
	var pool bytes.Buffer
	count := 1
	for i, s := range strs {
		pool.WriteByte(tagUtf8)
		binary.Write(&pool, binary.BigEndian, uint16(len(s)))
		pool.WriteString(s)
		count++
		if i == 0 {
			pool.WriteByte(tagLong)
			pool.Write(make([]byte, 8))
			count += 2
		}
	}
	pool.WriteByte(tagClass)
	binary.Write(&pool, binary.BigEndian, uint16(1))
	classIdx := count
	count++

	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint32(classMagic))
	binary.Write(&b, binary.BigEndian, uint16(0))
	binary.Write(&b, binary.BigEndian, uint16(52))
	binary.Write(&b, binary.BigEndian, uint16(count))
	b.Write(pool.Bytes())
	// access, this, super, interfaces, fields, methods, attributes
	binary.Write(&b, binary.BigEndian, []uint16{0x21, uint16(classIdx), uint16(classIdx), 0, 0, 0, 0})
	return b.Bytes()
}

// utf8Constants reads back the Utf8 constants of a class file.
func utf8Constants(t *testing.T, data []byte) []string {
	t.Helper()
	var out []string
	_, _, err := rewriteClass(data, func(s string) (string, bool) {
		out = append(out, s)
		return s, false
	})
	require.NoError(t, err)
	return out
}

func writeJar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write(entries[n])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}
}

func readJar(t *testing.T, path string) ([]string, map[string][]byte) {
	t.Helper()
	rc, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer rc.Close()
	var names []string
	contents := make(map[string][]byte)
	for _, f := range rc.File {
		names = append(names, f.Name)
		r, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		r.Close()
		contents[f.Name] = b
	}
	return names, contents
}

type fixture struct {
	dir     string
	classes string
	guava   string
	asm     string
	tools   string
	out     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	fx := &fixture{
		dir:     dir,
		classes: filepath.Join(dir, "build", "classes"),
		guava:   filepath.Join(dir, "guava-28.1-jre.jar"),
		asm:     filepath.Join(dir, "asm-7.2.jar"),
		tools:   filepath.Join(dir, "tools.jar"),
		out:     filepath.Join(dir, "build", "libs", "meghanada-1.3.2.jar"),
	}
	writeTree(t, fx.classes, map[string][]byte{
		"meghanada/Main.class": classFile("meghanada/Main", "Lcom/google/common/base/Joiner;", "org/objectweb/asm/ClassReader", "java/lang/Object"),
		"META-INF/services/com.google.common.Service": []byte("meghanada.LocalService\n"),
		"VERSION": []byte("version=1.3.2-a1b2c3d\n"),
	})
	writeJar(t, fx.guava, map[string][]byte{
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\r\n\r\n"),
		"META-INF/GUAVA.SF":    []byte("signature"),
		"com/google/common/base/Joiner.class":          classFile("com/google/common/base/Joiner", "(Lcom/google/common/base/Joiner;)V"),
		"META-INF/services/com.google.common.Service": []byte("com.google.common.DefaultService\n"),
		"shared.properties":                           []byte("from=guava\n"),
	})
	writeJar(t, fx.asm, map[string][]byte{
		"org/objectweb/asm/ClassReader.class": classFile("org/objectweb/asm/ClassReader"),
		"shared.properties":                   []byte("from=asm\n"),
		"docs/readme.html":                    []byte("<html/>"),
	})
	writeJar(t, fx.tools, map[string][]byte{
		"com/sun/tools/javac/Main.class": classFile("com/sun/tools/javac/Main"),
	})
	return fx
}

func (fx *fixture) spec() Spec {
	return Spec{
		Output: fx.out,
		Dirs:   []string{fx.classes, filepath.Join(fx.dir, "build", "resources-missing")},
		Jars:   []string{fx.guava, fx.asm, fx.tools},
		Relocations: []config.Relocation{
			{From: "com.google", To: "meghanada.com.google"},
			{From: "org.objectweb.asm", To: "meghanada.org.objectweb.asm"},
		},
		Exclusions:         []string{"tools.jar", "docs/**"},
		MergeServiceFiles:  true,
		MainClass:          "meghanada.Main",
		ManifestAttributes: map[string]string{"Implementation-Version": "1.3.2-a1b2c3d"},
	}
}

func TestAssemble(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	stats, err := New().Assemble(testContext(), fx.spec())
	require.NoError(t, err)

	names, contents := readJar(t, fx.out)
	assert.Equal(t, "META-INF/", names[0])
	assert.Equal(t, "META-INF/MANIFEST.MF", names[1])

	t.Run("manifest", func(t *testing.T) {
		mf := string(contents["META-INF/MANIFEST.MF"])
		assert.Contains(t, mf, "Main-Class: meghanada.Main\r\n")
		assert.Contains(t, mf, "Implementation-Version: 1.3.2-a1b2c3d\r\n")
	})

	t.Run("paths are relocated", func(t *testing.T) {
		assert.Contains(t, contents, "meghanada/com/google/common/base/Joiner.class")
		assert.Contains(t, contents, "meghanada/org/objectweb/asm/ClassReader.class")
		assert.NotContains(t, contents, "com/google/common/base/Joiner.class")
		assert.Contains(t, names, "meghanada/com/google/common/base/")
	})

	t.Run("references are relocated", func(t *testing.T) {
		main := utf8Constants(t, contents["meghanada/Main.class"])
		assert.Equal(t, []string{
			"meghanada/Main",
			"Lmeghanada/com/google/common/base/Joiner;",
			"meghanada/org/objectweb/asm/ClassReader",
			"java/lang/Object",
		}, main)
		joiner := utf8Constants(t, contents["meghanada/com/google/common/base/Joiner.class"])
		assert.Equal(t, []string{
			"meghanada/com/google/common/base/Joiner",
			"(Lmeghanada/com/google/common/base/Joiner;)V",
		}, joiner)
	})

	t.Run("service files are merged", func(t *testing.T) {
		svc := contents["META-INF/services/meghanada.com.google.common.Service"]
		assert.Equal(t, "meghanada.LocalService\nmeghanada.com.google.common.DefaultService\n", string(svc))
		assert.NotContains(t, contents, "META-INF/services/com.google.common.Service")
	})

	t.Run("last duplicate wins", func(t *testing.T) {
		assert.Equal(t, "from=asm\n", string(contents["shared.properties"]))
	})

	t.Run("exclusions and signatures", func(t *testing.T) {
		assert.NotContains(t, contents, "com/sun/tools/javac/Main.class")
		assert.NotContains(t, contents, "docs/readme.html")
		assert.NotContains(t, contents, "META-INF/GUAVA.SF")
	})

	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Services)
	assert.Equal(t, 2, stats.Excluded)
	assert.False(t, stats.Zip64)
}

func TestAssemble_Deterministic(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	spec := fx.spec()

	_, err := New().Assemble(testContext(), spec)
	require.NoError(t, err)
	first, err := os.ReadFile(fx.out)
	require.NoError(t, err)

	_, err = New().Assemble(testContext(), spec)
	require.NoError(t, err)
	second, err := os.ReadFile(fx.out)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "archives differ between identical runs")
}

func TestAssemble_ServiceFilesWithoutMerging(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	spec := fx.spec()
	spec.MergeServiceFiles = false

	_, err := New().Assemble(testContext(), spec)
	require.NoError(t, err)
	_, contents := readJar(t, fx.out)
	assert.Equal(t, "com.google.common.DefaultService\n", string(contents["META-INF/services/com.google.common.Service"]))
}

func TestAssemble_TargetCollision(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeTree(t, fx.classes, map[string][]byte{
		"meghanada/com/google/Existing.class": classFile("meghanada/com/google/Existing"),
	})

	_, err := New().Assemble(testContext(), fx.spec())
	var conflict *RelocationConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "meghanada/com/google/Existing.class", conflict.Path)
	_, statErr := os.Stat(fx.out)
	assert.True(t, os.IsNotExist(statErr), "no artifact on conflict")
}

func TestAssemble_DuplicateRule(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	spec := fx.spec()
	spec.Relocations = append(spec.Relocations, config.Relocation{From: "com.google", To: "other.google"})

	_, err := New().Assemble(testContext(), spec)
	var conflict *RelocationConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAssemble_CorruptClassLeavesNoArtifact(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeTree(t, fx.classes, map[string][]byte{"meghanada/Broken.class": []byte("nope")})

	_, err := New().Assemble(testContext(), fx.spec())
	require.Error(t, err)
	entries, readErr := os.ReadDir(filepath.Dir(fx.out))
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestAssemble_Zip64(t *testing.T) {
	if testing.Short() {
		t.Skip("writes more than 65535 entries")
	}
	t.Parallel()
	dir := t.TempDir()
	big := filepath.Join(dir, "big.jar")

	f, err := os.Create(big)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	const n = 70000
	for i := 0; i < n; i++ {
		_, err := zw.CreateHeader(&zip.FileHeader{Name: fmt.Sprintf("r/%05d.txt", i), Method: zip.Store})
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	out := filepath.Join(dir, "out.jar")
	stats, err := New().Assemble(testContext(), Spec{Output: out, Jars: []string{big}})
	require.NoError(t, err)
	assert.True(t, stats.Zip64)

	rc, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer rc.Close()
	// manifest, META-INF/ and r/ directories plus the files
	assert.Len(t, rc.File, n+3)
}
