package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/meghabuild/internal/app"
	"github.com/vk/meghabuild/internal/javac"
	"github.com/vk/meghabuild/internal/testutil"
)

type noopCompiler struct{}

func (noopCompiler) Compile(_ context.Context, req javac.Request) error {
	return os.MkdirAll(req.OutputDir, 0o755)
}

func testFactory(logW io.Writer, cfg *app.Config) *app.App {
	return app.NewApp(logW, cfg, app.WithCompiler(noopCompiler{}))
}

const cliDescriptor = `
project "meghanada" {
  group = "io.github.mopemope"
}

module "setup" {
  app_name   = "meghanada-setup"
  version    = "0.1.0"
  main_class = "meghanada.SetupMain"
  install    = true
}
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, &stdout, &stderr, testFactory)
	if os.Getenv(testutil.LogEnv) == "true" {
		t.Logf("--- stderr of %s ---\n%s", t.Name(), stderr.String())
	}
	return stdout.String(), stderr.String(), err
}

func project(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"build.hcl":                        cliDescriptor,
		"setup/src/main/resources/VERSION": "${version}",
	})
	return root, t.TempDir()
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %T: %v", err, err)
	return exitErr.Code
}

func TestExecute_Help(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "--project")
	assert.Contains(t, out, "tasks")
}

func TestExecute_UsageErrors(t *testing.T) {
	root, home := project(t)
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"run", "--no-such-flag", "shadowJar"}},
		{name: "run without task", args: []string{"run", "-p", root, "--home", home}},
		{name: "bad log level", args: []string{"run", "-p", root, "--home", home, "--log-level", "loud", "shadowJar"}},
		{name: "unknown task", args: []string{"run", "-p", root, "--home", home, "deploy"}},
		{name: "missing descriptor", args: []string{"run", "-p", t.TempDir(), "--home", home, "shadowJar"}},
		{name: "version with args", args: []string{"version", "extra"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.Equal(t, ExitUsage, exitCode(t, err))
		})
	}
}

func TestExecute_RunInstall(t *testing.T) {
	root, home := project(t)

	_, logs, err := execute(t, "run", "-p", root, "--home", home, "--log-format", "json", "--workers", "2", "installEmacsHome")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(home, ".emacs.d", "meghanada", "meghanada-setup-0.1.0.jar"))
	assert.Contains(t, logs, `"level":"INFO"`)
	assert.Contains(t, logs, "Starting build")
}

func TestExecute_TasksAndVersion(t *testing.T) {
	root, home := project(t)

	out, _, err := execute(t, "tasks", "-p", root, "--home", home, "shadowJar")
	require.NoError(t, err)
	assert.Regexp(t, `(?s)setup:processResources.*setup:embedVersion.*setup:classes.*setup:shadowJar`, out)

	out, _, err = execute(t, "version", "-p", root, "--home", home)
	require.NoError(t, err)
	assert.Contains(t, out, "meghanada-setup-0.1.0.jar")
	assert.Contains(t, out, "0.1.0-release")
}

func TestExecute_BuildFailureExitsWithOne(t *testing.T) {
	root, home := project(t)
	require.NoError(t, os.Remove(filepath.Join(root, "setup/src/main/resources/VERSION")))

	_, _, err := execute(t, "run", "-p", root, "--home", home, "embedVersion")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, exitCode(t, err))
	assert.Contains(t, err.Error(), "setup:embedVersion")
}
