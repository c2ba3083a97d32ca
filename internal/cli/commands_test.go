package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Help
// ---------------------------------------------------------------------------

func TestWatch_Help(t *testing.T) {
	stdout, _, err := executeCommand("watch", "--help")
	require.NoError(t, err)

	for _, flag := range []string{"--debounce", "--ext", "--ignore-dir", "--deploy-command", "--deploy-timeout", "--initial"} {
		assert.Contains(t, stdout, flag)
	}
}

func TestServe_Help(t *testing.T) {
	stdout, _, err := executeCommand("serve", "--help")
	require.NoError(t, err)

	for _, flag := range []string{"--port", "--host", "--cors", "--open", "--log-requests", "--watch"} {
		assert.Contains(t, stdout, flag)
	}
}

func TestServe_ExtraArgs(t *testing.T) {
	_, _, err := executeCommand("serve", "a", "b")
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func TestConfig_Render(t *testing.T) {
	stdout, _, err := executeCommand("config", "--quiet", "--debounce", "750ms")
	require.NoError(t, err)

	assert.Contains(t, stdout, "debounce: 750ms")
	assert.Contains(t, stdout, "command: deploy-to-rpi")
	assert.Contains(t, stdout, "port: 8000")
}

func TestConfig_DiffDefaults(t *testing.T) {
	stdout, _, err := executeCommand("config", "--diff", "--quiet")
	require.NoError(t, err)

	// --quiet itself differs from the defaults.
	assert.Contains(t, stdout, "+quiet: true")
}

func TestConfig_DiffFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
deploy:
  command: rsync
  args: ["-a", "site/", "pi:/srv/site"]
`), 0o644))

	stdout, _, err := executeCommand("--config", path, "config", "--diff")
	require.NoError(t, err)

	assert.Contains(t, stdout, "--- defaults")
	assert.Contains(t, stdout, "+++ "+path)
	assert.Contains(t, stdout, "+port: 9000")
	assert.Contains(t, stdout, "+  command: rsync")
}

func TestConfig_NoArgs(t *testing.T) {
	_, _, err := executeCommand("config", "extra")
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// completion
// ---------------------------------------------------------------------------

func TestCompletion_Bash(t *testing.T) {
	stdout, _, err := executeCommand("completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "syncwatch")
}

func TestCompletion_Zsh(t *testing.T) {
	stdout, _, err := executeCommand("completion", "zsh")
	require.NoError(t, err)
	assert.Contains(t, stdout, "syncwatch")
}

func TestCompletion_Fish(t *testing.T) {
	stdout, _, err := executeCommand("completion", "fish")
	require.NoError(t, err)
	assert.Contains(t, stdout, "syncwatch")
}

func TestCompletion_PowerShell(t *testing.T) {
	stdout, _, err := executeCommand("completion", "powershell")
	require.NoError(t, err)
	assert.Contains(t, stdout, "syncwatch")
}

func TestCompletion_InvalidShell(t *testing.T) {
	_, _, err := executeCommand("completion", "tcsh")
	require.Error(t, err)
}

func TestCompletion_NoArgs(t *testing.T) {
	_, _, err := executeCommand("completion")
	require.Error(t, err)
}

func TestCompletion_LogLevelValues(t *testing.T) {
	stdout, _, err := executeCommand("__complete", "--log-level", "")
	require.NoError(t, err)

	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.Contains(t, stdout, level+"\n")
	}
}

func TestCompletion_ExtensionValues(t *testing.T) {
	stdout, _, err := executeCommand("__complete", "watch", "--ext", "")
	require.NoError(t, err)
	assert.Contains(t, stdout, ".html\n")
	assert.Contains(t, stdout, ".md\n")
}

func TestCompletion_DirArgument(t *testing.T) {
	stdout, _, err := executeCommand("__complete", "serve", "")
	require.NoError(t, err)
	assert.Contains(t, stdout, fmt.Sprintf(":%d\n", cobra.ShellCompDirectiveFilterDirs))
}

func TestConfig_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".syncwatch.yaml")

	stdout, _, err := executeCommand("config", "--quiet", "--output", path)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Contains(t, string(data), "debounce: 2s")

	// A second write needs --force.
	_, _, err = executeCommand("config", "--quiet", "--output", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = executeCommand("config", "--quiet", "--output", path, "--force")
	require.NoError(t, err)
}

func TestConfig_DiffAndOutputExclusive(t *testing.T) {
	_, _, err := executeCommand("config", "--diff", "--output", filepath.Join(t.TempDir(), "x.yaml"))
	require.Error(t, err)
}
