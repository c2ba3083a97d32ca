package watch

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Start on a session that has already been stopped.
var ErrStopped = errors.New("watch session stopped")

// WatchInitError reports that the session could not attach to its root:
// the path is missing, is not a directory, or the provider refused it.
type WatchInitError struct {
	Root string
	Err  error
}

func (e *WatchInitError) Error() string {
	return fmt.Sprintf("watching %s: %v", e.Root, e.Err)
}

func (e *WatchInitError) Unwrap() error { return e.Err }
