package event

import (
	"strings"
	"time"

	"github.com/deepak-highbeam/calsift/internal/log"
)

const minutesPerDay = 24 * 60

// dateTimeLayouts are tried in order for the Start/End pair. Date-only
// layouts come last so a bare date in a date-time column still parses as
// local midnight.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
	"January 2, 2006 3:04 PM",
	"Mon Jan 2 2006 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// Enricher derives timestamps, duration and the all-day flag from a row's
// date columns. It is safe for concurrent use.
type Enricher struct {
	loc      *time.Location
	dtLayout []string
	dLayout  []string
}

// NewEnricher creates an Enricher that interprets zone-less values in loc.
// extra layouts are tried before the built-in ones for both column pairs.
func NewEnricher(loc *time.Location, extra []string) *Enricher {
	if loc == nil {
		loc = time.Local
	}
	dt := make([]string, 0, len(extra)+len(dateTimeLayouts)+len(dateLayouts))
	dt = append(dt, extra...)
	dt = append(dt, dateTimeLayouts...)
	dt = append(dt, dateLayouts...)

	d := make([]string, 0, len(extra)+len(dateLayouts))
	d = append(d, extra...)
	d = append(d, dateLayouts...)

	return &Enricher{loc: loc, dtLayout: dt, dLayout: d}
}

// Location returns the zone used for zone-less values and bucketing.
func (e *Enricher) Location() *time.Location {
	return e.loc
}

// Enrich sets r.Span from the Start/End pair, or failing their presence,
// from the Start Date/End Date pair. A pair that is present but does not
// parse leaves Span unset; the other pair is not consulted.
// Rows that already carry a Span are left alone.
func (e *Enricher) Enrich(r *Row) {
	if r.Span != nil {
		return
	}

	switch {
	case r.Start != "" && r.End != "":
		start, ok1 := e.ParseDateTime(r.Start)
		end, ok2 := e.ParseDateTime(r.End)
		if !ok1 || !ok2 {
			log.Debug("unparsable event times", "start", r.Start, "end", r.End, "file", r.SourceFile)
			return
		}
		r.Span = &Span{
			Start:   start,
			End:     end,
			Minutes: end.Sub(start).Minutes(),
		}

	case r.StartDate != "" && r.EndDate != "":
		start, ok1 := e.ParseDate(r.StartDate)
		end, ok2 := e.ParseDate(r.EndDate)
		if !ok1 || !ok2 {
			log.Debug("unparsable event dates", "start_date", r.StartDate, "end_date", r.EndDate, "file", r.SourceFile)
			return
		}
		r.Span = &Span{
			Start:   start,
			End:     end,
			Minutes: float64(dayDiff(start, end) * minutesPerDay),
			AllDay:  true,
		}
	}
}

// ParseDateTime parses a date-time value, accepting a bare date as midnight.
func (e *Enricher) ParseDateTime(s string) (time.Time, bool) {
	return parseWith(strings.TrimSpace(s), e.dtLayout, e.loc)
}

// ParseDate parses a date-only value as midnight in the enricher's zone.
func (e *Enricher) ParseDate(s string) (time.Time, bool) {
	return parseWith(strings.TrimSpace(s), e.dLayout, e.loc)
}

func parseWith(s string, layouts []string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			// Values carrying their own offset are shown in the bucketing zone.
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// dayDiff counts whole calendar days from a to b, ignoring DST shifts.
func dayDiff(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
