// Package stats computes time-allocation statistics over normalized rows:
// totals, per-category minute sums, weekday and hour distributions, and a
// weekly time series.
package stats

import "github.com/deepak-highbeam/calsift/internal/event"

// MaxEventMinutes is the longest duration still counted. Longer events are
// treated as malformed data.
const MaxEventMinutes = 1200

// Included reports whether r takes part in statistics, the heatmap and
// exports. IGNORE rows, all-day rows and rows longer than MaxEventMinutes
// are excluded.
func Included(r *event.Row) bool {
	if r.IsIgnored() || r.IsAllDay() {
		return false
	}
	return !isLong(r)
}

// Filter returns the rows Included accepts, preserving order.
func Filter(rows []event.Row) []event.Row {
	out := make([]event.Row, 0, len(rows))
	for i := range rows {
		if Included(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

func isLong(r *event.Row) bool {
	return r.HasDuration() && r.Span.Minutes > MaxEventMinutes
}

// categoryName is a row's normalized category, else its summary, else
// "Unknown".
func categoryName(r *event.Row) string {
	if c := r.Category(); c != "" {
		return c
	}
	if r.Summary != "" {
		return r.Summary
	}
	return "Unknown"
}
