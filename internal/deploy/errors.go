package deploy

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoCommand is returned when no deploy executable has been configured.
var ErrNoCommand = errors.New("no deploy command configured")

// InvocationError reports that the deploy command could not be started:
// the executable was not found on PATH or the process failed to spawn.
type InvocationError struct {
	Command string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoking %q: %v", e.Command, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ExitError reports that the deploy command ran but did not succeed.
type ExitError struct {
	Command string
	Code    int
	Stderr  string

	// Timeout is set when the command was killed after exceeding it.
	Timeout time.Duration
}

func (e *ExitError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("deploy command %q timed out after %s", e.Command, e.Timeout)
	}

	if e.Stderr != "" {
		return fmt.Sprintf("deploy command %q exited with code %d: %s", e.Command, e.Code, e.Stderr)
	}

	return fmt.Sprintf("deploy command %q exited with code %d", e.Command, e.Code)
}
