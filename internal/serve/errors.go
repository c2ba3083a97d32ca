package serve

import "fmt"

// PortInUseError reports that the listen port is already bound.
type PortInUseError struct {
	Port int
	Err  error
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("port %d is already in use; try a different port", e.Port)
}

func (e *PortInUseError) Unwrap() error { return e.Err }
