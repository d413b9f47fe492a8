package filesystem

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// tempSuffixes are editor, lock and backup files that are never reported
var tempSuffixes = []string{".tmp", ".temp", ".bak", ".lock", ".swp", ".swo", ".swn", ".crdownload", ".part"}

// tempNames are OS metadata files
var tempNames = map[string]bool{
	"thumbs.db":   true,
	"desktop.ini": true,
}

// isTempName reports whether name follows a temporary or hidden file
// convention: dotfiles, Office owner files (~$x), leading or trailing ~
// and the suffixes above.
func isTempName(name string) bool {
	if name == "" {
		return true
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") || strings.HasSuffix(name, "~") {
		return true
	}
	lower := strings.ToLower(name)
	if tempNames[lower] {
		return true
	}
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// excluder matches paths against the configured glob patterns. Patterns
// containing a slash are matched against the whole slash-separated path,
// the others against the base name only, so "*.log" works at any depth.
type excluder struct {
	full []glob.Glob
	base []glob.Glob
}

func newExcluder(patterns []string) (*excluder, error) {
	e := &excluder{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		if strings.Contains(p, "/") {
			e.full = append(e.full, g)
		} else {
			e.base = append(e.base, g)
		}
	}
	return e, nil
}

// excluded reports whether path must be skipped. Directories are also tested
// with a trailing slash so "**/build/**" prunes the build directory itself.
func (e *excluder) excluded(path string, isDir bool) bool {
	name := filepath.Base(path)
	if isTempName(name) {
		return true
	}

	slashed := filepath.ToSlash(path)
	for _, g := range e.base {
		if g.Match(name) {
			return true
		}
	}
	for _, g := range e.full {
		if g.Match(slashed) || (isDir && g.Match(slashed+"/")) {
			return true
		}
	}
	return false
}
