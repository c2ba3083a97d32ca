// Package serve implements the local static preview server: a plain file
// server over a directory with caching disabled, optional permissive CORS,
// and a websocket feed of sync outcomes when a watch session runs alongside.
package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/hupe1980/syncwatch/internal/event"
	"github.com/hupe1980/syncwatch/internal/ui"
	"github.com/hupe1980/syncwatch/internal/watch"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Options configures the static server.
type Options struct {
	// Dir is the directory served at "/".
	Dir string

	// Host is the interface to bind; empty binds all interfaces.
	Host string

	// Port is the TCP port to bind.
	Port int

	// CORS adds permissive cross-origin headers to every response.
	CORS bool

	// LogRequests logs one line per served request.
	LogRequests bool

	// Open launches the default browser once listening.
	Open bool

	// Bus, when set, is streamed to websocket clients on EventsPath.
	Bus *event.Bus[watch.SyncResult]

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer

	// NoColor disables styled status output.
	NoColor bool
}

// DefaultOptions returns the default server options.
func DefaultOptions() Options {
	return Options{
		Dir:    ".",
		Port:   8000,
		Logger: slog.Default(),
		Out:    os.Stdout,
	}
}

// contentTypes fills gaps in the platform MIME tables, which differ between
// hosts, so that previewed assets get the same type everywhere.
var contentTypes = map[string]string{
	".css":         "text/css; charset=utf-8",
	".csv":         "text/csv; charset=utf-8",
	".js":          "text/javascript; charset=utf-8",
	".json":        "application/json",
	".md":          "text/markdown; charset=utf-8",
	".mjs":         "text/javascript; charset=utf-8",
	".svg":         "image/svg+xml",
	".wasm":        "application/wasm",
	".webmanifest": "application/manifest+json",
}

var registerTypesOnce sync.Once

func registerContentTypes() {
	registerTypesOnce.Do(func() {
		for ext, typ := range contentTypes {
			_ = mime.AddExtensionType(ext, typ)
		}
	})
}

// Handler returns the HTTP handler serving opts.Dir.
func Handler(opts Options) http.Handler {
	h, _ := newHandler(opts)
	return h
}

func newHandler(opts Options) (http.Handler, *feed) {
	registerContentTypes()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root, err := filepath.Abs(opts.Dir)
	if err != nil {
		root = ""
	}

	f := newFeed(opts.Bus, root, opts.CORS, logger)

	var files http.Handler = http.FileServer(http.Dir(opts.Dir))
	files = noCache(files)

	if opts.LogRequests {
		files = logRequests(files, logger)
	}

	mux := http.NewServeMux()
	mux.Handle(EventsPath, f)
	mux.Handle("/", files)

	var h http.Handler = mux
	if opts.CORS {
		h = withCORS(h)
	}

	return h, f
}

// URL returns the browsable address for a listener bound to host:port.
func URL(host string, port int) string {
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}

	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Run serves opts.Dir until ctx is cancelled or a SIGINT/SIGTERM signal is
// received, then shuts down gracefully. A port that is already bound is
// reported as *PortInUseError.
func Run(ctx context.Context, opts Options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if opts.Dir == "" {
		opts.Dir = "."
	}

	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", opts.Dir, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("serving %s: %w", dir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("serving %s: not a directory", dir)
	}

	opts.Dir = dir

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return &PortInUseError{Port: opts.Port, Err: err}
		}

		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	port := opts.Port
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	handler, f := newHandler(opts)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	srv.RegisterOnShutdown(f.close)

	printer := ui.NewPrinter(opts.Out, opts.NoColor)
	url := URL(opts.Host, port)

	printer.Serving(url, dir)
	opts.Logger.Info("server listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("dir", dir),
		slog.Bool("cors", opts.CORS),
	)

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	if opts.Open {
		if err := OpenBrowser(url); err != nil {
			opts.Logger.Warn("could not open browser", slog.String("error", err.Error()))
		}
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serving %s: %w", dir, err)
	case <-ctx.Done():
	}

	printer.Stopping("server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	printer.Stopped("server")
	opts.Logger.Info("server stopped")

	return nil
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		next.ServeHTTP(w, r)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}

	n, err := r.ResponseWriter.Write(p)
	r.bytes += n

	return n, err
}

func logRequests(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Int("bytes", rec.bytes),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
