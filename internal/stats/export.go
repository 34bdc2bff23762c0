package stats

import (
	"strconv"

	"github.com/deepak-highbeam/calsift/internal/event"
)

// ExportHeader is the column row of the event export.
var ExportHeader = []string{"Date", "Event", "Matching Rule", "Normalized", "Hours"}

// ExportRow is one line of the event export.
type ExportRow struct {
	Date       string
	Event      string
	Rule       string
	Normalized string
	Hours      string
}

// Fields returns the row in ExportHeader order.
func (e ExportRow) Fields() []string {
	return []string{e.Date, e.Event, e.Rule, e.Normalized, e.Hours}
}

// ExportRows converts the rows Included accepts into export lines.
// Hours carry one decimal; rows without a duration export "0.0".
func ExportRows(rows []event.Row) []ExportRow {
	var out []ExportRow
	for i := range rows {
		r := &rows[i]
		if !Included(r) {
			continue
		}

		e := ExportRow{
			Event:      r.Summary,
			Rule:       "-",
			Normalized: categoryName(r),
			Hours:      "0.0",
		}
		if r.Span != nil {
			e.Date = r.Span.Start.Format(DateLayout)
		}
		if r.Norm != nil && r.Norm.Rule != "" {
			e.Rule = r.Norm.Rule
		}
		if r.HasDuration() {
			e.Hours = strconv.FormatFloat(r.Span.Minutes/60, 'f', 1, 64)
		}
		out = append(out, e)
	}
	return out
}
