package watch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions returns the file suffixes that trigger a sync when no
// explicit set is configured.
func DefaultExtensions() []string {
	return []string{".html", ".css", ".js", ".json", ".py", ".csv", ".md"}
}

// ExtensionSet is a case-insensitive set of relevant file suffixes.
// The zero value matches nothing.
type ExtensionSet struct {
	exts map[string]struct{}
}

// NewExtensionSet normalises exts ("HTML", ".html" and "*.html" are all
// stored as ".html") and returns the resulting set.
func NewExtensionSet(exts ...string) (ExtensionSet, error) {
	set := ExtensionSet{exts: make(map[string]struct{}, len(exts))}

	for _, raw := range exts {
		ext, err := normalizeExtension(raw)
		if err != nil {
			return ExtensionSet{}, err
		}

		set.exts[ext] = struct{}{}
	}

	return set, nil
}

// Contains reports whether the final component of path carries one of the
// relevant extensions. Hidden files without an extension (".env") never match.
func (s ExtensionSet) Contains(path string) bool {
	if len(s.exts) == 0 {
		return false
	}

	name := filepath.Base(path)
	ext := filepath.Ext(name)

	if ext == "" || ext == name {
		return false
	}

	_, ok := s.exts[strings.ToLower(ext)]

	return ok
}

// Len returns the number of extensions in the set.
func (s ExtensionSet) Len() int { return len(s.exts) }

// List returns the extensions in sorted order.
func (s ExtensionSet) List() []string {
	out := make([]string, 0, len(s.exts))
	for ext := range s.exts {
		out = append(out, ext)
	}

	sort.Strings(out)

	return out
}

func normalizeExtension(raw string) (string, error) {
	ext := strings.TrimSpace(raw)
	ext = strings.TrimPrefix(ext, "*")

	if ext == "" || ext == "." {
		return "", fmt.Errorf("invalid extension %q: must not be empty", raw)
	}

	if strings.ContainsAny(ext, `/\`) {
		return "", fmt.Errorf("invalid extension %q: must not contain a path separator", raw)
	}

	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return strings.ToLower(ext), nil
}
