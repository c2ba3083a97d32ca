package output

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStreamWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf)

	data := []byte("debounce: 2s\nport: 8000\n")
	require.NoError(t, w.Write(data))
	assert.Equal(t, string(data), buf.String())
}

func TestStreamWriter_NilDefault(t *testing.T) {
	w := NewStreamWriter(nil)
	assert.NotNil(t, w)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	_, ok := New("", &buf).(*StreamWriter)
	assert.True(t, ok)

	fw, ok := New("out.yaml", &buf).(*FileWriter)
	require.True(t, ok)
	assert.Equal(t, "out.yaml", fw.Path())
}

func TestFileWriter_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config", ".syncwatch.yaml")

	w := NewFileWriter(path, WithLogger(quietLogger()))
	data := []byte("debounce: 2s\n")
	require.NoError(t, w.Write(data))

	got, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, string(data), string(got))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	}

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileWriter_CustomPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on Windows")
	}

	path := filepath.Join(t.TempDir(), "custom.yaml")

	w := NewFileWriter(path, WithPermissions(0o600), WithLogger(quietLogger()))
	require.NoError(t, w.Write([]byte("test")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileWriter_RefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	w := NewFileWriter(path, WithLogger(quietLogger()))
	err := w.Write([]byte("new"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExists)

	got, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestFileWriter_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	var logs bytes.Buffer

	w := NewFileWriter(path, WithOverwrite(true), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, w.Write([]byte("new")))

	got, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	assert.Contains(t, logs.String(), "overwriting existing file")
}
