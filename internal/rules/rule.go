// Package rules implements the normalization rule language: a line-oriented
// text format mapping event summaries (or calendar IDs) to canonical
// category names, evaluated first match wins.
package rules

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/deepak-highbeam/calsift/internal/event"
)

// Kind is the matcher variant a pattern compiles to.
type Kind string

const (
	// CalendarID matches `id:<value>` against the row's calendar ID,
	// case-insensitively, on the whole `id:<value>` string. The `id:`
	// marker itself is case-sensitive; `ID:x` is an ordinary pattern.
	CalendarID Kind = "calendar_id"

	// Prefix matches patterns with a single trailing `*` as a
	// case-insensitive prefix of the summary.
	Prefix Kind = "prefix"

	// Wildcard matches any other pattern containing `*` as an anchored,
	// case-insensitive regular expression with `*` meaning any run.
	Wildcard Kind = "wildcard"

	// Exact matches the whole summary case-insensitively.
	Exact Kind = "exact"
)

const calendarIDPrefix = "id:"

// Rule maps one pattern to a normalized name. Construct with Compile so
// the matcher is built once.
type Rule struct {
	Pattern string
	Name    string
	Kind    Kind

	needle string
	re     *regexp.Regexp
}

// Compile classifies pattern and prepares its matcher.
func Compile(pattern, name string) Rule {
	r := Rule{Pattern: pattern, Name: name}

	switch {
	case strings.HasPrefix(pattern, calendarIDPrefix):
		r.Kind = CalendarID
		r.needle = fold(pattern)

	case strings.HasSuffix(pattern, "*") && strings.Count(pattern, "*") == 1:
		r.Kind = Prefix
		r.needle = fold(strings.TrimSuffix(pattern, "*"))

	case strings.Contains(pattern, "*"):
		parts := strings.Split(pattern, "*")
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		r.Kind = Wildcard
		r.re = regexp.MustCompile("(?i)^" + strings.Join(parts, ".*") + "$")

	default:
		r.Kind = Exact
		r.needle = fold(pattern)
	}
	return r
}

// Matches reports whether the rule applies to a row with the given
// summary and calendar ID.
func (r Rule) Matches(summary, calendarID string) bool {
	switch r.Kind {
	case CalendarID:
		return fold(calendarIDPrefix+calendarID) == r.needle
	case Prefix:
		return strings.HasPrefix(fold(summary), r.needle)
	case Wildcard:
		return r.re.MatchString(summary)
	default:
		return fold(summary) == r.needle
	}
}

// Ignores reports whether the rule's name is the reserved IGNORE category.
func (r Rule) Ignores() bool {
	return event.IsIgnoreName(r.Name)
}

// Match returns the first rule in list order that matches.
func Match(rules []Rule, summary, calendarID string) (Rule, bool) {
	for _, r := range rules {
		if r.Matches(summary, calendarID) {
			return r, true
		}
	}
	return Rule{}, false
}

// fold case-folds s. Casers are not safe for concurrent use, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
