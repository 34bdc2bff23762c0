package rules

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNoRules is returned when rule text contains no valid directive.
var ErrNoRules = errors.New("no valid rules")

const (
	forwardSep = "=>"
	reverseSep = "<="
)

// Parse reads rule text, one directive per line:
//
//	PATTERN=>NAME
//	NAME<=PATTERN1,PATTERN2,...
//
// Blank lines, lines with neither separator and directives with an empty
// side are skipped. Only the first two segments around a separator count:
// `a=>b=>c` maps a to b. Order is preserved; it decides which rule wins.
func Parse(text string) []Rule {
	var out []Rule
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.Contains(line, forwardSep) {
			parts := strings.Split(line, forwardSep)
			pattern, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if pattern != "" && name != "" {
				out = append(out, Compile(pattern, name))
			}
			continue
		}

		if strings.Contains(line, reverseSep) {
			parts := strings.Split(line, reverseSep)
			name := strings.TrimSpace(parts[0])
			if name == "" {
				continue
			}
			for _, p := range strings.Split(parts[1], ",") {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, Compile(p, name))
				}
			}
		}
	}
	return out
}

// ParseStrict is Parse, but reports ErrNoRules when nothing parsed.
func ParseStrict(text string) ([]Rule, error) {
	rs := Parse(text)
	if len(rs) == 0 {
		return nil, ErrNoRules
	}
	return rs, nil
}

// Cache memoizes Parse on the raw text so repeated actions with unchanged
// text reuse the compiled matchers.
type Cache struct {
	mu    sync.Mutex
	text  string
	rules []Rule
	valid bool
}

// Rules returns the parsed rules for text, parsing only when text changed
// since the last call.
func (c *Cache) Rules(text string) []Rule {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.text == text {
		return c.rules
	}
	c.text = text
	c.rules = Parse(text)
	c.valid = true
	return c.rules
}

// Map returns pattern -> name for rs. Later duplicates of a pattern
// overwrite earlier ones.
func Map(rs []Rule) map[string]string {
	m := make(map[string]string, len(rs))
	for _, r := range rs {
		m[r.Pattern] = r.Name
	}
	return m
}

// TextFromMap renders a pattern -> name map back into rule text, one
// `pattern=>name` line per entry sorted by pattern.
func TextFromMap(m map[string]string) string {
	patterns := make([]string, 0, len(m))
	for p := range m {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	var b strings.Builder
	for i, p := range patterns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p)
		b.WriteString(forwardSep)
		b.WriteString(m[p])
	}
	return b.String()
}
