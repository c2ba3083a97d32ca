// Package ui renders the user-facing status lines printed by syncwatch.
// Structured diagnostics go through log/slog; this package only formats
// the short human-oriented lines a developer watches in their terminal.
package ui

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
)

const ruleWidth = 50

// Printer writes timestamped status lines. It is safe for concurrent use.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	plain bool
	now   func() time.Time

	title lipgloss.Style
	muted lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	info  lipgloss.Style
}

// NewPrinter returns a Printer writing to w. Styles are downsampled to what
// w supports, so redirected output and NO_COLOR get plain text. When noColor
// is true the output never carries ANSI escape sequences.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	if w == nil {
		w = io.Discard
	}

	return &Printer{
		out:   w,
		plain: noColor,
		now:   time.Now,
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		muted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		ok:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		fail:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		info:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if p.plain {
		return text
	}

	return s.Render(text)
}

func (p *Printer) line(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	lipgloss.Fprintf(p.out, format+"\n", args...) //nolint:errcheck
}

func (p *Printer) stamp() string {
	return p.style(p.muted, "["+p.now().Format("15:04:05")+"]")
}

// Banner prints the watcher start-up block.
func (p *Printer) Banner(root string, debounce time.Duration, exts []string, command string) {
	p.line("%s", p.style(p.title, "syncwatch"))
	p.line("watching %s (debounce=%s)", root, debounce)
	p.line("extensions: %s", strings.Join(exts, " "))
	p.line("deploy: %s", command)
	p.line("press Ctrl+C to stop")
	p.Rule()
}

// Rule prints a horizontal separator.
func (p *Printer) Rule() {
	p.line("%s", p.style(p.muted, strings.Repeat("-", ruleWidth)))
}

// Changed reports a relevant file change.
func (p *Printer) Changed(kind, name string) {
	p.line("%s %-8s %s", p.stamp(), kind, name)
}

// Syncing reports that a sync is starting.
func (p *Printer) Syncing(summary string) {
	p.line("%s %s %s", p.stamp(), p.style(p.info, "sync"), summary)
}

// SyncOK reports a successful sync.
func (p *Printer) SyncOK(d time.Duration) {
	p.line("%s %s (%s)", p.stamp(), p.style(p.ok, "→ OK"), d.Round(time.Millisecond))
	p.Rule()
}

// SyncFailed reports a failed sync with its diagnostics.
func (p *Printer) SyncFailed(err error) {
	p.line("%s %s: %v", p.stamp(), p.style(p.fail, "→ FAILED"), err)
	p.Rule()
}

// Serving reports the address of the static server.
func (p *Printer) Serving(url, dir string) {
	p.line("%s serving %s on %s", p.style(p.title, "syncwatch"), dir, p.style(p.info, url))
	p.line("press Ctrl+C to stop")
}

// Stopping reports that shutdown has begun.
func (p *Printer) Stopping(what string) {
	p.line("\nstopping %s", what)
}

// Stopped reports that shutdown has completed.
func (p *Printer) Stopped(what string) {
	p.line("%s stopped", what)
}
