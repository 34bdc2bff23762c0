// Package event defines the Row record that flows through the pipeline and
// the date/duration enrichment applied to every row after parsing.
package event

import (
	"math"
	"strings"
	"time"
)

// Recognized column names in calendar exports.
const (
	ColSummary    = "Summary"
	ColCalendarID = "Calendar ID"
	ColStart      = "Start"
	ColEnd        = "End"
	ColStartDate  = "Start Date"
	ColEndDate    = "End Date"
)

// IgnoreCategory is the reserved normalized name that excludes a row from
// every statistic and export.
const IgnoreCategory = "IGNORE"

// Row is one calendar event. Known columns are named fields; any other
// column is kept verbatim in Extra. Span and Norm are derived and are set
// at most once each, in pipeline order.
type Row struct {
	Summary    string
	CalendarID string
	Start      string
	End        string
	StartDate  string
	EndDate    string

	// Extra holds unrecognized columns by header name.
	Extra map[string]string

	SourceFile string

	// Span is nil when no date pair was present or parseable.
	Span *Span

	// Norm is nil until the Normalizer runs.
	Norm *Normalization
}

// Span is the enrichment derived from a row's date columns.
type Span struct {
	Start time.Time
	End   time.Time

	// Minutes is End-Start in minutes. It may be zero or negative for
	// malformed input; consumers must tolerate that.
	Minutes float64

	AllDay bool
}

// Normalization is the outcome of evaluating the rule list against a row.
type Normalization struct {
	Category string
	// Rule is the matching pattern, or "" when no rule matched.
	Rule    string
	Ignored bool
}

// Set stores value under column. Recognized columns land in named fields.
func (r *Row) Set(column, value string) {
	switch column {
	case ColSummary:
		r.Summary = value
	case ColCalendarID:
		r.CalendarID = value
	case ColStart:
		r.Start = value
	case ColEnd:
		r.End = value
	case ColStartDate:
		r.StartDate = value
	case ColEndDate:
		r.EndDate = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[column] = value
	}
}

// Get returns the value stored under column.
func (r *Row) Get(column string) string {
	switch column {
	case ColSummary:
		return r.Summary
	case ColCalendarID:
		return r.CalendarID
	case ColStart:
		return r.Start
	case ColEnd:
		return r.End
	case ColStartDate:
		return r.StartDate
	case ColEndDate:
		return r.EndDate
	default:
		return r.Extra[column]
	}
}

// HasDuration reports whether the row carries a usable duration value.
// Zero and NaN count as absent, matching how totals treat them.
func (r *Row) HasDuration() bool {
	return r.Span != nil && !math.IsNaN(r.Span.Minutes) && r.Span.Minutes != 0
}

// IsAllDay reports whether the row was enriched from date-only columns.
func (r *Row) IsAllDay() bool {
	return r.Span != nil && r.Span.AllDay
}

// IsIgnored reports whether the row normalized to the IGNORE category.
func (r *Row) IsIgnored() bool {
	return r.Norm != nil && r.Norm.Ignored
}

// Category returns the normalized category, or "" before normalization.
func (r *Row) Category() string {
	if r.Norm == nil {
		return ""
	}
	return r.Norm.Category
}

// WithNorm returns a copy of r carrying n. The Extra map is shared since
// rows never mutate it after parsing.
func (r Row) WithNorm(n Normalization) Row {
	r.Norm = &n
	return r
}

// IsIgnoreName reports whether name is the reserved IGNORE category.
func IsIgnoreName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), IgnoreCategory)
}
