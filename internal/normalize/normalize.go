// Package normalize applies a rule list to the working set, either for real
// (Apply) or as a dry run that summarizes what each distinct summary and
// calendar would become (BuildPreview).
package normalize

import (
	"github.com/deepak-highbeam/calsift/internal/event"
	"github.com/deepak-highbeam/calsift/internal/rules"
)

// Result is the outcome of Apply.
type Result struct {
	Rows []event.Row

	// Matched counts rows that some rule matched.
	Matched int
}

// Apply returns copies of rows carrying their normalization. Input rows are
// not modified. Rows no rule matches keep their summary as the category.
func Apply(rows []event.Row, rs []rules.Rule) Result {
	out := make([]event.Row, len(rows))
	matched := 0
	for i, r := range rows {
		n := Normalize(r, rs)
		if n.Rule != "" {
			matched++
		}
		out[i] = r.WithNorm(n)
	}
	return Result{Rows: out, Matched: matched}
}

// Normalize evaluates rs against a single row.
func Normalize(r event.Row, rs []rules.Rule) event.Normalization {
	n := event.Normalization{Category: r.Summary}
	if rule, ok := rules.Match(rs, r.Summary, r.CalendarID); ok {
		n.Category = rule.Name
		n.Rule = rule.Pattern
	}
	n.Ignored = event.IsIgnoreName(n.Category)
	return n
}
