package serve

import (
	"os/exec"
	"runtime"
)

// startProcess launches a helper process without waiting for it. Replaced
// in tests.
var startProcess = func(name string, args ...string) error {
	_, err := startReaped(exec.Command(name, args...)) //nolint:gosec
	return err
}

// startReaped starts cmd and waits for it in the background so the exited
// process does not linger. The returned channel yields the Wait result.
func startReaped(cmd *exec.Cmd) (<-chan error, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)

	go func() { done <- cmd.Wait() }()

	return done, nil
}

// OpenBrowser asks the desktop environment to open url.
func OpenBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return startProcess("open", url)
	case "windows":
		return startProcess("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return startProcess("xdg-open", url)
	}
}
