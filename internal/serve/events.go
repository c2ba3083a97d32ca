package serve

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/syncwatch/internal/event"
	"github.com/hupe1980/syncwatch/internal/watch"
)

const (
	wsBufferSize   = 1024
	wsWriteTimeout = 10 * time.Second
)

// EventsPath is the websocket endpoint streaming sync outcomes.
const EventsPath = "/__syncwatch/events"

type syncPayload struct {
	Type       string    `json:"type"`
	OK         bool      `json:"ok"`
	Trigger    string    `json:"trigger,omitempty"`
	Changes    int       `json:"changes"`
	Created    int       `json:"created"`
	Modified   int       `json:"modified"`
	Files      []string  `json:"files,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"durationMs"`
	Timestamp  time.Time `json:"timestamp"`
}

// newSyncPayload converts res for clients. Paths are reported relative to
// root so the host's directory layout is never sent over the wire.
func newSyncPayload(res watch.SyncResult, root string) syncPayload {
	files := res.Burst.Files()
	for i, f := range files {
		files[i] = sitePath(root, f)
	}

	p := syncPayload{
		Type:       "sync",
		OK:         res.OK(),
		Trigger:    sitePath(root, res.Trigger),
		Changes:    res.Burst.Count(),
		Created:    res.Burst.Created,
		Modified:   res.Burst.Modified,
		Files:      files,
		DurationMS: res.Duration.Milliseconds(),
		Timestamp:  res.Started.Add(res.Duration).UTC(),
	}

	if res.Err != nil {
		p.Error = res.Err.Error()
	}

	return p
}

// sitePath returns path relative to root in slash form. Absolute paths
// outside root are reduced to their base name.
func sitePath(root, path string) string {
	if path == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}

	if root != "" {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}

	return filepath.Base(path)
}

// feed upgrades requests to websockets and forwards every published
// SyncResult as a JSON message until the client or the server goes away.
type feed struct {
	bus       *event.Bus[watch.SyncResult]
	root      string
	anyOrigin bool
	logger    *slog.Logger
	closing   chan struct{}
	closeOnce sync.Once
}

func newFeed(bus *event.Bus[watch.SyncResult], root string, anyOrigin bool, logger *slog.Logger) *feed {
	return &feed{
		bus:       bus,
		root:      root,
		anyOrigin: anyOrigin,
		logger:    logger,
		closing:   make(chan struct{}),
	}
}

func (f *feed) close() {
	f.closeOnce.Do(func() { close(f.closing) })
}

func (f *feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.bus == nil {
		http.Error(w, "sync events unavailable", http.StatusServiceUnavailable)
		return
	}

	output, cancel := f.bus.Subscribe()
	defer cancel()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsBufferSize,
		WriteBufferSize: wsBufferSize,
	}

	if f.anyOrigin {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case res, ok := <-output:
			if !ok {
				f.sendClose(conn, websocket.CloseNormalClosure, "event stream closed")
				return
			}

			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}

			if err := conn.WriteJSON(newSyncPayload(res, f.root)); err != nil {
				return
			}

		case <-done:
			return

		case <-f.closing:
			f.sendClose(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func (f *feed) sendClose(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
