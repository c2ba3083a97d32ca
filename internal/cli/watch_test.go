package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/syncwatch/internal/config"
	"github.com/hupe1980/syncwatch/internal/deploy"
	"github.com/hupe1980/syncwatch/internal/watch"
)

func TestWatch_MissingDirExitsOne(t *testing.T) {
	_, _, err := executeCommand("watch", "--quiet", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)

	var initErr *watch.WatchInitError
	assert.ErrorAs(t, err, &initErr)
}

func TestWatch_DeploysOnChange(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell deploy command")
	}

	site := t.TempDir()
	marker := filepath.Join(t.TempDir(), "deployed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRootCommand()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{
		site,
		"--quiet",
		"--no-color",
		"--debounce", "50ms",
		"--deploy-command", "echo ok >> " + marker,
	})

	done := make(chan error, 1)

	go func() {
		done <- cmd.ExecuteContext(ctx)
	}()

	// Let the watcher attach.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"), []byte("<p>hi</p>"), 0o644))

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}

	assert.Contains(t, out.String(), "→ OK")
}

func TestNewDeployCommand(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		c := newDeployCommand(config.Default())

		assert.Equal(t, config.DefaultDeployCommand, c.Path)
		assert.Empty(t, c.Args)
	})

	t.Run("shell line", func(t *testing.T) {
		cfg := config.Default()
		cfg.DeployCommand = "rsync -a . pi:/srv"

		c := newDeployCommand(cfg)
		want := deploy.Shell("rsync -a . pi:/srv")

		assert.Equal(t, want.Path, c.Path)
		assert.Equal(t, want.Args, c.Args)
	})

	t.Run("deploy block", func(t *testing.T) {
		cfg := config.Default()
		cfg.Deploy = &config.DeployConfig{
			Command: "rsync",
			Args:    []string{"-a", "site/"},
			Dir:     "/tmp",
			Env:     map[string]string{"TARGET": "pi"},
			Timeout: "30s",
		}

		c := newDeployCommand(cfg)

		assert.Equal(t, "rsync", c.Path)
		assert.Equal(t, []string{"-a", "site/"}, c.Args)
		assert.Equal(t, "/tmp", c.Dir)
		assert.Equal(t, []string{"TARGET=pi"}, c.Env)
		assert.Equal(t, 30*time.Second, c.Timeout)
	})
}

func TestNewWatchOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Debounce = 300 * time.Millisecond
	cfg.Extensions = []string{".html"}
	cfg.Initial = true
	cfg.NoColor = true

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := newWatchOptions(cfg, logger, "site", io.Discard, nil)

	assert.Equal(t, "site", opts.Root)
	assert.Equal(t, 300*time.Millisecond, opts.Debounce)
	assert.Equal(t, []string{".html"}, opts.Extensions)
	assert.Equal(t, watch.DefaultIgnoreDirs(), opts.IgnoreDirs)
	assert.True(t, opts.Initial)
	assert.True(t, opts.NoColor)
	assert.Equal(t, config.DefaultDeployCommand, opts.Command)
	require.NotNil(t, opts.OnSync)
}

func TestRunDeploy_ReportsFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := runDeploy(context.Background(), deploy.Command{Path: "syncwatch-no-such-deploy-command"}, logger)
	require.Error(t, err)

	var invErr *deploy.InvocationError
	assert.ErrorAs(t, err, &invErr)
}

func TestDirArg(t *testing.T) {
	assert.Equal(t, ".", dirArg(nil))
	assert.Equal(t, "site", dirArg([]string{"site"}))
}
