package cli

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/syncwatch/internal/config"
	"github.com/hupe1980/syncwatch/internal/serve"
)

func TestServe_PortInUseExitsOne(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port

	_, _, err = executeCommand("serve", "--quiet", "--host", "127.0.0.1", "--port", strconv.Itoa(port), t.TempDir())
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)

	var inUse *serve.PortInUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, port, inUse.Port)
}

func TestServe_InvalidPortExitsTwo(t *testing.T) {
	_, _, err := executeCommand("serve", "--quiet", "--port", "70000", t.TempDir())
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestNewServeOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = 9001
	cfg.CORS = true
	cfg.LogRequests = true

	opts := newServeOptions(cfg, "public")

	assert.Equal(t, "public", opts.Dir)
	assert.Equal(t, "127.0.0.1", opts.Host)
	assert.Equal(t, 9001, opts.Port)
	assert.True(t, opts.CORS)
	assert.True(t, opts.LogRequests)
	assert.False(t, opts.Open)
}

func TestServeExit(t *testing.T) {
	require.NoError(t, serveExit(nil))

	err := serveExit(&serve.PortInUseError{Port: 8000})

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, err.Error(), "port 8000 is already in use")
}

func TestServe_WatchMissingDirExitsOne(t *testing.T) {
	port := freePort(t)

	_, _, err := executeCommand("serve", "--watch", "--quiet", "--host", "127.0.0.1", "--port", strconv.Itoa(port), "/nonexistent/site/12345")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	return port
}

func TestServe_WatchStreamsSyncEvents(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses the POSIX true command as deploy command")
	}

	site := t.TempDir()
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{
		"serve", site,
		"--watch",
		"--quiet",
		"--no-color",
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
		"--debounce", "50ms",
		"--deploy-command", "true",
	})

	done := make(chan error, 1)

	go func() {
		done <- cmd.ExecuteContext(ctx)
	}()

	wsURL := "ws://127.0.0.1:" + strconv.Itoa(port) + serve.EventsPath

	var conn *websocket.Conn

	require.Eventually(t, func() bool {
		c, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		if err != nil {
			return false
		}

		conn = c

		return true
	}, 3*time.Second, 20*time.Millisecond)

	defer conn.Close()

	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"), []byte("<p>hi</p>"), 0o644))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var got struct {
		Type    string   `json:"type"`
		OK      bool     `json:"ok"`
		Trigger string   `json:"trigger"`
		Files   []string `json:"files"`
		Error   string   `json:"error"`
	}

	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, "sync", got.Type)
	assert.True(t, got.OK, got.Error)
	assert.Equal(t, "index.html", got.Trigger)
	assert.Equal(t, []string{"index.html"}, got.Files)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve --watch did not stop")
	}
}
