package watcher

import (
	"path/filepath"
	"strings"
)

// importExts are the file types the watcher hands to the loader.
var importExts = []string{".csv", ".ics"}

// defaultIgnorePatterns cover the lock and swap files that spreadsheet
// programs and editors leave next to an export while it is open.
var defaultIgnorePatterns = []string{
	".git",
	".DS_Store",
	".~lock.*",
	"~$*",
	".#*",
	"*.swp",
	"*.swo",
	"*~",
	"*.tmp",
	"*.part",
	"*.crdownload",
}

// Filter decides which paths under the import directory are calendar
// exports worth loading.
type Filter struct {
	patterns []string
}

// NewFilter merges extra with the default ignore patterns, dropping
// duplicates.
func NewFilter(extra []string) *Filter {
	seen := make(map[string]struct{}, len(defaultIgnorePatterns)+len(extra))
	var merged []string
	for _, list := range [][]string{defaultIgnorePatterns, extra} {
		for _, p := range list {
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			merged = append(merged, p)
		}
	}
	return &Filter{patterns: merged}
}

// ShouldIgnore reports whether any component of path matches an ignore
// pattern, so "tmp" also hides "exports/tmp/a.csv".
func (f *Filter) ShouldIgnore(path string) bool {
	for _, component := range strings.Split(filepath.Clean(path), string(filepath.Separator)) {
		for _, pattern := range f.patterns {
			if matched, _ := filepath.Match(pattern, component); matched {
				return true
			}
		}
	}
	return false
}

// Accept reports whether path is a .csv or .ics file that is not ignored.
func (f *Filter) Accept(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range importExts {
		if ext == want {
			return !f.ShouldIgnore(path)
		}
	}
	return false
}
