package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hupe1980/syncwatch/internal/event"
	"github.com/hupe1980/syncwatch/internal/ui"
)

// State is the position of a Session in its IDLE → PENDING → SYNCING cycle.
type State int32

// Session states.
const (
	StateIdle State = iota
	StatePending
	StateSyncing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSyncing:
		return "syncing"
	default:
		return "unknown"
	}
}

// SyncFunc performs one blocking sync and reports its outcome. It is never
// called concurrently with itself.
type SyncFunc func(ctx context.Context) error

// SyncResult describes a finished sync.
type SyncResult struct {
	Trigger  string
	Burst    Burst
	Started  time.Time
	Duration time.Duration
	Err      error
}

// OK reports whether the sync succeeded.
func (r SyncResult) OK() bool { return r.Err == nil }

// Stats is a snapshot of session counters.
type Stats struct {
	EventsSeen    int64
	EventsIgnored int64
	SyncsOK       int64
	SyncsFailed   int64
}

// Options configures a Session.
type Options struct {
	// Root is the directory to watch recursively.
	Root string

	// Debounce is the quiet period measured from the last relevant change.
	Debounce time.Duration

	// Extensions lists relevant file suffixes. Empty means DefaultExtensions.
	Extensions []string

	// IgnoreDirs names directories that are never watched.
	IgnoreDirs []string

	// OnSync is invoked once per settled burst.
	OnSync SyncFunc

	// Initial runs one sync right after the watch is attached.
	Initial bool

	// Provider supplies change events. Nil selects the fsnotify provider.
	Provider Provider

	// Bus, when set, receives every SyncResult.
	Bus *event.Bus[SyncResult]

	// Command describes the sync action in the start-up banner.
	Command string

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer

	// NoColor disables styled status output.
	NoColor bool
}

// DefaultOptions returns the default watch options.
func DefaultOptions() Options {
	return Options{
		Root:       ".",
		Debounce:   2 * time.Second,
		Extensions: DefaultExtensions(),
		IgnoreDirs: DefaultIgnoreDirs(),
		Logger:     slog.Default(),
		Out:        os.Stdout,
	}
}

// Session owns one watch: its provider, debouncer, sync worker and state.
type Session struct {
	opts    Options
	exts    ExtensionSet
	ignore  map[string]struct{}
	logger  *slog.Logger
	printer *ui.Printer

	mu        sync.Mutex
	ctx       context.Context
	root      string
	provider  Provider
	debouncer *Debouncer
	state     State
	burst     Burst
	started   bool
	stopping  bool
	initial   bool

	pending  chan struct{}
	done     chan struct{}
	finished chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	eventsSeen    atomic.Int64
	eventsIgnored atomic.Int64
	syncsOK       atomic.Int64
	syncsFailed   atomic.Int64
}

// NewSession validates opts and returns an unstarted session.
func NewSession(opts Options) (*Session, error) {
	if opts.OnSync == nil {
		return nil, errors.New("watch: OnSync must not be nil")
	}

	if opts.Debounce <= 0 {
		return nil, fmt.Errorf("watch: debounce must be positive, got %s", opts.Debounce)
	}

	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions()
	}

	exts, err := NewExtensionSet(opts.Extensions...)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	if opts.Root == "" {
		opts.Root = "."
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	ignore := make(map[string]struct{}, len(opts.IgnoreDirs))
	for _, d := range opts.IgnoreDirs {
		ignore[d] = struct{}{}
	}

	return &Session{
		opts:     opts,
		exts:     exts,
		ignore:   ignore,
		logger:   opts.Logger,
		printer:  ui.NewPrinter(opts.Out, opts.NoColor),
		pending:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}, nil
}

// Start attaches the provider to the root recursively and begins
// processing events. It returns a *WatchInitError when the root is missing
// or the provider cannot attach. Cancelling ctx stops the session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return ErrStopped
	}

	if s.started {
		s.mu.Unlock()
		return errors.New("watch: session already started")
	}

	s.started = true
	s.mu.Unlock()

	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return &WatchInitError{Root: s.opts.Root, Err: err}
	}

	info, err := os.Stat(root)
	if err != nil {
		return &WatchInitError{Root: root, Err: err}
	}

	if !info.IsDir() {
		return &WatchInitError{Root: root, Err: errors.New("not a directory")}
	}

	provider := s.opts.Provider
	if provider == nil {
		fp, fpErr := NewFSProvider()
		if fpErr != nil {
			return &WatchInitError{Root: root, Err: fmt.Errorf("creating watcher: %w", fpErr)}
		}

		provider = fp
	}

	if err := addRecursive(provider, root, s.ignore); err != nil {
		_ = provider.Close()
		return &WatchInitError{Root: root, Err: err}
	}

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		_ = provider.Close()

		return ErrStopped
	}

	s.ctx = ctx
	s.root = root
	s.provider = provider
	s.debouncer = NewDebouncer(s.opts.Debounce, s.settle)
	s.wg.Add(2)
	s.mu.Unlock()

	go s.loop(provider)
	go s.worker()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	s.printer.Banner(root, s.opts.Debounce, s.exts.List(), s.opts.Command)
	s.logger.Info("watch started",
		slog.String("root", root),
		slog.Duration("debounce", s.opts.Debounce),
		slog.Any("extensions", s.exts.List()),
	)

	if s.opts.Initial {
		s.mu.Lock()
		s.initial = true
		s.mu.Unlock()
		s.signal()
	}

	return nil
}

// Stop cancels any pending evaluation, detaches the provider and waits for
// an in-flight sync to return. No sync starts after Stop returns. Calling
// Stop more than once, or before Start, is a no-op. Stop must not be called
// from inside OnSync.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopping = true
		deb := s.debouncer
		provider := s.provider
		s.mu.Unlock()

		if deb != nil {
			deb.Stop()
		}

		close(s.done)

		if provider != nil {
			if err := provider.Close(); err != nil {
				s.logger.Warn("closing watcher", slog.String("error", err.Error()))
			}
		}

		s.wg.Wait()

		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()

		s.logger.Info("watch stopped")
		close(s.finished)
	})
}

// Done is closed once Stop has completed.
func (s *Session) Done() <-chan struct{} { return s.finished }

// Wait blocks until the session has stopped.
func (s *Session) Wait() { <-s.finished }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// LastChange returns the time of the most recent relevant change, or the
// zero time when none has been seen.
func (s *Session) LastChange() time.Time {
	s.mu.Lock()
	deb := s.debouncer
	s.mu.Unlock()

	if deb == nil {
		return time.Time{}
	}

	return deb.LastTrigger()
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		EventsSeen:    s.eventsSeen.Load(),
		EventsIgnored: s.eventsIgnored.Load(),
		SyncsOK:       s.syncsOK.Load(),
		SyncsFailed:   s.syncsFailed.Load(),
	}
}

func (s *Session) loop(provider Provider) {
	defer s.wg.Done()

	events := provider.Events()
	errs := provider.Errors()

	for {
		select {
		case <-s.done:
			return

		case ev, ok := <-events:
			if !ok {
				go s.Stop()
				return
			}

			s.handle(ev)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}

			s.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (s *Session) handle(ev Event) {
	if ev.IsDir {
		if ev.Kind == Created && !skipDir(filepath.Base(ev.Path), s.ignore) {
			if err := addRecursive(s.provider, ev.Path, s.ignore); err != nil {
				s.logger.Warn("watching new directory", slog.String("path", ev.Path), slog.String("error", err.Error()))
			}
		}

		s.discard(ev, "directory")

		return
	}

	if ev.Kind == Deleted {
		s.discard(ev, "deleted")
		return
	}

	if !s.exts.Contains(ev.Path) {
		s.discard(ev, "extension")
		return
	}

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return
	}

	s.burst.add(ev)

	if s.state == StateIdle {
		s.state = StatePending
	}

	s.debouncer.Trigger(ev.Path)
	s.mu.Unlock()

	s.eventsSeen.Add(1)
	s.logger.Info("file changed", slog.String("path", ev.Path), slog.String("kind", ev.Kind.String()))
	s.printer.Changed(ev.Kind.String(), s.rel(ev.Path))
}

func (s *Session) discard(ev Event, reason string) {
	s.eventsIgnored.Add(1)
	s.logger.Debug("event ignored",
		slog.String("path", ev.Path),
		slog.String("kind", ev.Kind.String()),
		slog.String("reason", reason),
	)
}

// settle runs on the debounce timer once a burst has been quiet for the
// full window.
func (s *Session) settle(string) {
	s.mu.Lock()
	stopping := s.stopping
	s.mu.Unlock()

	if !stopping {
		s.signal()
	}
}

// signal fills the single-slot pending channel; a signal that is already
// queued absorbs this one.
func (s *Session) signal() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

func (s *Session) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return

		case <-s.pending:
			burst, ok := s.beginSync()
			if !ok {
				continue
			}

			s.runSync(burst)
		}
	}
}

// beginSync moves the session to SYNCING and takes the accumulated burst.
// It declines when stopping, when there is nothing to sync, or when a newer
// change has rescheduled the debounce timer since this signal was queued.
func (s *Session) beginSync() (Burst, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		return Burst{}, false
	}

	if s.burst.Empty() {
		if !s.initial {
			return Burst{}, false
		}
	} else if s.debouncer.Pending() {
		return Burst{}, false
	}

	s.initial = false

	burst := s.burst
	s.burst = Burst{}
	s.state = StateSyncing

	return burst, true
}

func (s *Session) runSync(burst Burst) {
	label := burst.Summary()
	if burst.Empty() {
		label = "initial sync"
	}

	s.printer.Syncing(label)
	s.logger.Info("sync started",
		slog.Int("changes", burst.Count()),
		slog.String("trigger", burst.Last),
	)

	start := time.Now()
	err := s.callSync()

	res := SyncResult{
		Trigger:  burst.Last,
		Burst:    burst,
		Started:  start,
		Duration: time.Since(start),
		Err:      err,
	}

	s.mu.Lock()
	if s.burst.Empty() {
		s.state = StateIdle
	} else {
		s.state = StatePending
	}
	s.mu.Unlock()

	if err != nil {
		s.syncsFailed.Add(1)
		s.logger.Error("sync failed", slog.String("error", err.Error()), slog.Duration("duration", res.Duration))
		s.printer.SyncFailed(err)
	} else {
		s.syncsOK.Add(1)
		s.logger.Info("sync completed", slog.Duration("duration", res.Duration))
		s.printer.SyncOK(res.Duration)
	}

	s.opts.Bus.Publish(res)
}

// callSync runs OnSync detached from shutdown so an in-flight deploy is
// waited on rather than killed.
func (s *Session) callSync() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync panicked: %v", r)
		}
	}()

	return s.opts.OnSync(context.WithoutCancel(s.ctx))
}

func (s *Session) rel(path string) string {
	if r, err := filepath.Rel(s.root, path); err == nil {
		return r
	}

	return filepath.Base(path)
}

// Run starts a session and blocks until ctx is cancelled, a SIGINT/SIGTERM
// signal is received, or the provider goes away. An in-flight sync is
// allowed to finish before Run returns.
func Run(ctx context.Context, opts Options) error {
	sess, err := NewSession(opts)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sess.Start(sigCtx); err != nil {
		return err
	}

	select {
	case <-sigCtx.Done():
		sess.printer.Stopping("watcher")
	case <-sess.Done():
	}

	sess.Stop()
	sess.printer.Stopped("watcher")

	return nil
}
