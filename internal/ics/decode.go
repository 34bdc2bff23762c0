// Package ics imports iCalendar files as event rows, so .ics exports flow
// through the same enrichment, normalization and statistics as CSV ones.
package ics

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/deepak-highbeam/calsift/internal/event"
	"github.com/deepak-highbeam/calsift/internal/log"
)

const (
	defaultHorizonDays    = 365
	defaultMaxOccurrences = 5000

	dateLayout = "2006-01-02"
)

// Decoder turns VEVENTs into rows. Recurring events are expanded over the
// HorizonDays before Now.
type Decoder struct {
	Enricher       *event.Enricher
	HorizonDays    int
	MaxOccurrences int

	// Now anchors the expansion window. Nil means time.Now.
	Now func() time.Time
}

// NewDecoder creates a Decoder that enriches rows with enr.
func NewDecoder(enr *event.Enricher, horizonDays int) *Decoder {
	return &Decoder{Enricher: enr, HorizonDays: horizonDays}
}

// vevent is the subset of a VEVENT the importer needs.
type vevent struct {
	uid     string
	summary string
	start   time.Time
	end     time.Time
	allDay  bool
	rrule   string
	exDates []time.Time
	recurID *time.Time
}

// Decode parses an iCalendar stream. The calendar ID of every row is the
// calendar's X-WR-CALNAME, or the file's base name without extension.
// VEVENTs with an unreadable DTSTART are skipped.
func (d *Decoder) Decode(r io.Reader, sourceFile string) ([]event.Row, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse calendar %s: %w", sourceFile, err)
	}

	calID := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	for _, p := range cal.CalendarProperties {
		if p.IANAToken == string(ical.PropertyXWRCalName) && strings.TrimSpace(p.Value) != "" {
			calID = strings.TrimSpace(p.Value)
			break
		}
	}

	loc := time.Local
	if d.Enricher != nil {
		loc = d.Enricher.Location()
	}

	var events []vevent
	for _, ve := range cal.Events() {
		ev, err := readEvent(ve, loc)
		if err != nil {
			log.Debug("skipping vevent", "file", sourceFile, "error", err)
			continue
		}
		events = append(events, ev)
	}

	var rows []event.Row
	for _, occ := range d.expand(events) {
		row := occ.row(calID, sourceFile, loc)
		if d.Enricher != nil {
			d.Enricher.Enrich(&row)
		}
		rows = append(rows, row)
	}

	log.Debug("ics decoded", "file", sourceFile, "vevents", len(events), "rows", len(rows))
	return rows, nil
}

func readEvent(ve *ical.VEvent, loc *time.Location) (vevent, error) {
	var ev vevent
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.uid = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.summary = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return ev, errors.New("missing DTSTART")
	}
	ev.allDay = isDateValue(startProp)

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, fmt.Errorf("read DTSTART: %w", err)
	}
	ev.start = floating(startProp, start, loc)

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		if end, err := ve.GetEndAt(); err == nil {
			ev.end = floating(endProp, end, loc)
		}
	}
	if ev.end.IsZero() {
		if ev.allDay {
			ev.end = ev.start.AddDate(0, 0, 1)
		} else {
			ev.end = ev.start
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.rrule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, ok := parseICSTime(part, tzOf(p, loc)); ok {
				ev.exDates = append(ev.exDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, ok := parseICSTime(p.Value, tzOf(p, loc)); ok {
			ev.recurID = &t
		}
	}
	return ev, nil
}

// isDateValue reports whether a DTSTART holds a date rather than a
// date-time: VALUE=DATE, or no 'T' in the value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// floating re-reads times with neither TZID nor a UTC suffix in loc, since
// the parser assumes the host zone for them.
func floating(p *ical.IANAProperty, t time.Time, loc *time.Location) time.Time {
	if _, ok := p.ICalParameters["TZID"]; ok || strings.HasSuffix(p.Value, "Z") {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func tzOf(p *ical.IANAProperty, fallback *time.Location) *time.Location {
	if tz, ok := p.ICalParameters["TZID"]; ok && len(tz) == 1 {
		if loc, err := time.LoadLocation(tz[0]); err == nil {
			return loc
		}
	}
	return fallback
}

// parseICSTime parses the basic DATE and DATE-TIME forms used by EXDATE and
// RECURRENCE-ID.
func parseICSTime(v string, loc *time.Location) (time.Time, bool) {
	v = strings.TrimSpace(v)
	var (
		t   time.Time
		err error
	)
	switch {
	case v == "":
		return time.Time{}, false
	case strings.HasSuffix(v, "Z"):
		t, err = time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		t, err = time.ParseInLocation("20060102T150405", v, loc)
	default:
		t, err = time.ParseInLocation("20060102", v, loc)
	}
	return t, err == nil
}

// occurrence is one concrete instance of a VEVENT.
type occurrence struct {
	summary string
	start   time.Time
	end     time.Time
	allDay  bool
}

func (o occurrence) row(calID, sourceFile string, loc *time.Location) event.Row {
	r := event.Row{Summary: o.summary, CalendarID: calID, SourceFile: sourceFile}
	if o.allDay {
		r.StartDate = o.start.Format(dateLayout)
		r.EndDate = o.end.Format(dateLayout)
	} else {
		r.Start = o.start.In(loc).Format(time.RFC3339)
		r.End = o.end.In(loc).Format(time.RFC3339)
	}
	return r
}
