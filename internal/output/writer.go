// Package output writes generated text, such as a rendered configuration,
// either to a stream or atomically to a file.
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrExists is returned by FileWriter when the target exists and
// overwriting was not requested.
var ErrExists = errors.New("file already exists")

// Writer is an output destination.
type Writer interface {
	Write(data []byte) error
}

// New returns a FileWriter for path, or a StreamWriter on w when path is
// empty.
func New(path string, w io.Writer, opts ...FileWriterOption) Writer {
	if path == "" {
		return NewStreamWriter(w)
	}

	return NewFileWriter(path, opts...)
}

// StreamWriter writes to an io.Writer such as a command's stdout.
type StreamWriter struct {
	out io.Writer
}

// NewStreamWriter creates a writer on w. If w is nil, os.Stdout is used.
func NewStreamWriter(w io.Writer) *StreamWriter {
	if w == nil {
		w = os.Stdout
	}

	return &StreamWriter{out: w}
}

// Write sends data to the stream.
func (sw *StreamWriter) Write(data []byte) error {
	if _, err := sw.out.Write(data); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}

// FileWriter replaces a file atomically: data goes to a temporary file in
// the same directory which is then renamed over the target.
type FileWriter struct {
	path      string
	perm      os.FileMode
	overwrite bool
	logger    *slog.Logger
}

// FileWriterOption configures a FileWriter.
type FileWriterOption func(*FileWriter)

// WithPermissions overrides the default file permissions (0644).
func WithPermissions(perm os.FileMode) FileWriterOption {
	return func(fw *FileWriter) {
		fw.perm = perm
	}
}

// WithOverwrite allows replacing an existing file.
func WithOverwrite(overwrite bool) FileWriterOption {
	return func(fw *FileWriter) {
		fw.overwrite = overwrite
	}
}

// WithLogger sets a logger for the FileWriter.
func WithLogger(logger *slog.Logger) FileWriterOption {
	return func(fw *FileWriter) {
		fw.logger = logger
	}
}

// NewFileWriter creates a writer for the specified file path.
func NewFileWriter(path string, opts ...FileWriterOption) *FileWriter {
	fw := &FileWriter{
		path:   path,
		perm:   0o644,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(fw)
	}

	return fw
}

// Write creates parent directories and replaces the file with data.
func (fw *FileWriter) Write(data []byte) error {
	if _, err := os.Stat(fw.path); err == nil {
		if !fw.overwrite {
			return fmt.Errorf("writing %s: %w", fw.path, ErrExists)
		}

		fw.logger.Warn("overwriting existing file", slog.String("path", fw.path))
	}

	dir := filepath.Dir(fw.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fw.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}

	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", fw.path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", fw.path, err)
	}

	if err := os.Chmod(tmp.Name(), fw.perm); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", fw.path, err)
	}

	if err := os.Rename(tmp.Name(), fw.path); err != nil {
		return fmt.Errorf("replacing %s: %w", fw.path, err)
	}

	fw.logger.Debug("file written", slog.String("path", fw.path), slog.Int("bytes", len(data)))

	return nil
}

// Path returns the output file path.
func (fw *FileWriter) Path() string {
	return fw.path
}
