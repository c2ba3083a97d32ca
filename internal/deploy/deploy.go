// Package deploy runs the external deploy executable that a sync triggers.
// The command is resolved on the host PATH, run to completion, and its
// exit status and stderr are captured for reporting. Nothing is retried.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// maxCapture bounds how much of each output stream is kept for diagnostics.
const maxCapture = 4 << 10

// Exit statuses sh and cmd.exe report when the command line names an
// executable that does not exist.
const (
	exitShellNotFound = 127
	exitCmdNotFound   = 9009
)

// waitDelay bounds how long Run waits for output pipes after the process
// was killed, e.g. when a grandchild still holds them open.
const waitDelay = 2 * time.Second

// Command describes one deploy invocation.
type Command struct {
	// Path is the executable name or path, resolved via PATH.
	Path string

	// Args are passed to the executable verbatim.
	Args []string

	// Dir is the working directory; empty means the current one.
	Dir string

	// Env entries (KEY=VALUE) are appended to the inherited environment.
	Env []string

	// Timeout kills the command when exceeded. Zero means no limit.
	Timeout time.Duration

	// Stdout, when set, receives a live copy of the command's stdout.
	Stdout io.Writer

	shell bool
}

// Result is the captured outcome of a completed invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Shell returns a Command that runs line through the platform shell.
func Shell(line string) Command {
	if runtime.GOOS == "windows" {
		return Command{Path: "cmd", Args: []string{"/C", line}, shell: true}
	}

	return Command{Path: "sh", Args: []string{"-c", line}, shell: true}
}

// Parse builds a Command from a configured command line. A line that
// contains whitespace and comes without explicit args runs via the shell;
// otherwise it names the executable directly.
func Parse(line string, args []string) Command {
	line = strings.TrimSpace(line)

	if len(args) == 0 && strings.ContainsAny(line, " \t") {
		return Shell(line)
	}

	return Command{Path: line, Args: args}
}

// String returns the command line for display.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}

	return c.Path + " " + strings.Join(c.Args, " ")
}

// Run executes the command and blocks until it exits. A nonzero exit is
// reported as *ExitError and a failure to start as *InvocationError; in
// both cases the partial Result is still returned when available.
func (c Command) Run(ctx context.Context) (*Result, error) {
	if c.Path == "" {
		return nil, &InvocationError{Command: c.String(), Err: ErrNoCommand}
	}

	bin, err := exec.LookPath(c.Path)
	if err != nil {
		return nil, &InvocationError{Command: c.String(), Err: err}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)

		defer cancel()
	}

	stdout := &tailBuffer{max: maxCapture}
	stderr := &tailBuffer{max: maxCapture}

	cmd := exec.CommandContext(ctx, bin, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	if c.Stdout != nil {
		cmd.Stdout = io.MultiWriter(stdout, c.Stdout)
	} else {
		cmd.Stdout = stdout
	}

	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	start := time.Now()
	runErr := cmd.Run()

	res := &Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		return res, nil
	}

	if c.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, &ExitError{Command: c.String(), Code: res.ExitCode, Stderr: res.Stderr, Timeout: c.Timeout}
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		if c.shellNotFound(exitErr.ExitCode()) {
			return res, &InvocationError{Command: c.String(), Err: notFound(res.Stderr)}
		}

		return res, &ExitError{Command: c.String(), Code: exitErr.ExitCode(), Stderr: res.Stderr}
	}

	return res, &InvocationError{Command: c.String(), Err: runErr}
}

// shellNotFound reports whether code is the shell's "command not found"
// status for a Command built by Shell.
func (c Command) shellNotFound(code int) bool {
	if !c.shell {
		return false
	}

	if runtime.GOOS == "windows" {
		return code == exitCmdNotFound
	}

	return code == exitShellNotFound
}

func notFound(stderr string) error {
	if stderr == "" {
		return exec.ErrNotFound
	}

	return fmt.Errorf("%w: %s", exec.ErrNotFound, stderr)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)

	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}

	return len(p), nil
}

func (b *tailBuffer) String() string {
	return strings.TrimSpace(string(b.buf))
}
