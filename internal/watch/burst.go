package watch

import (
	"fmt"
	"sort"
	"strings"
)

// Burst accumulates the relevant changes seen since the last sync.
type Burst struct {
	Created  int
	Modified int
	Last     string
	files    map[string]struct{}
}

func (b *Burst) add(ev Event) {
	switch ev.Kind {
	case Created:
		b.Created++
	case Modified:
		b.Modified++
	}

	if b.files == nil {
		b.files = make(map[string]struct{})
	}

	b.files[ev.Path] = struct{}{}
	b.Last = ev.Path
}

// Count returns the number of events in the burst.
func (b Burst) Count() int { return b.Created + b.Modified }

// Empty reports whether no relevant change has been recorded.
func (b Burst) Empty() bool { return b.Count() == 0 }

// Files returns the distinct paths touched during the burst, sorted.
func (b Burst) Files() []string {
	out := make([]string, 0, len(b.files))
	for f := range b.files {
		out = append(out, f)
	}

	sort.Strings(out)

	return out
}

// Summary returns a human-readable one-line summary.
func (b Burst) Summary() string {
	if b.Empty() {
		return "no changes"
	}

	parts := make([]string, 0, 2)

	if b.Created > 0 {
		parts = append(parts, fmt.Sprintf("+%d created", b.Created))
	}

	if b.Modified > 0 {
		parts = append(parts, fmt.Sprintf("~%d modified", b.Modified))
	}

	return fmt.Sprintf("%d change(s) in %d file(s): %s",
		b.Count(), len(b.files), strings.Join(parts, ", "))
}
