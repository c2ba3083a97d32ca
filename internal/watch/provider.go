package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Kind classifies a filesystem change.
type Kind uint8

// Supported change kinds.
const (
	Created Kind = iota + 1
	Modified
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is a single change reported by a Provider.
type Event struct {
	Path  string
	Kind  Kind
	IsDir bool
	Time  time.Time
}

// Provider supplies change notifications for a set of watched directories.
// Events and Errors are closed once the provider has been closed.
type Provider interface {
	Add(path string) error
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// FSProvider is the fsnotify-backed Provider.
type FSProvider struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	once    sync.Once
}

// NewFSProvider creates an fsnotify watcher and starts forwarding its
// events. It fails when the OS refuses a new watch instance (for example
// when inotify instance limits are exhausted).
func NewFSProvider() (*FSProvider, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	p := &FSProvider{
		watcher: w,
		events:  make(chan Event, 64),
		errors:  make(chan error, 4),
		done:    make(chan struct{}),
	}

	go p.forward()

	return p, nil
}

// Add starts watching a single directory (non-recursive).
func (p *FSProvider) Add(path string) error { return p.watcher.Add(path) }

// Events returns the translated event stream.
func (p *FSProvider) Events() <-chan Event { return p.events }

// Errors returns watcher errors such as queue overflows.
func (p *FSProvider) Errors() <-chan error { return p.errors }

// WatchList returns the directories currently being watched.
func (p *FSProvider) WatchList() []string { return p.watcher.WatchList() }

// Close detaches from the OS. Safe to call more than once.
func (p *FSProvider) Close() error {
	var err error

	p.once.Do(func() {
		close(p.done)
		err = p.watcher.Close()
	})

	return err
}

func (p *FSProvider) forward() {
	defer close(p.events)
	defer close(p.errors)

	for {
		select {
		case <-p.done:
			return

		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}

			translated, keep := translate(ev)
			if !keep {
				continue
			}

			select {
			case p.events <- translated:
			case <-p.done:
				return
			}

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}

			select {
			case p.errors <- err:
			case <-p.done:
				return
			}
		}
	}
}

// translate maps an fsnotify event onto the provider model. Chmod-only
// events carry no content change and are dropped.
func translate(ev fsnotify.Event) (Event, bool) {
	var kind Kind

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		kind = Deleted
	case ev.Has(fsnotify.Create):
		kind = Created
	case ev.Has(fsnotify.Write):
		kind = Modified
	default:
		return Event{}, false
	}

	isDir := false
	if kind != Deleted {
		if info, err := os.Stat(ev.Name); err == nil {
			isDir = info.IsDir()
		}
	}

	return Event{Path: ev.Name, Kind: kind, IsDir: isDir, Time: time.Now()}, true
}

// DefaultIgnoreDirs returns directory names that are never descended into.
func DefaultIgnoreDirs() []string {
	return []string{"node_modules", "__pycache__"}
}

// addRecursive walks root and adds every directory to p. Hidden directories
// (e.g. .git) and directories named in ignore are skipped, except root.
func addRecursive(p Provider, root string, ignore map[string]struct{}) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && skipDir(d.Name(), ignore) {
			return filepath.SkipDir
		}

		return p.Add(path)
	})
}

func skipDir(name string, ignore map[string]struct{}) bool {
	if len(name) > 1 && name[0] == '.' {
		return true
	}

	_, ok := ignore[name]

	return ok
}
