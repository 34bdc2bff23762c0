package ics

import (
	"math"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/deepak-highbeam/calsift/internal/log"
)

// expand turns parsed VEVENTs into concrete occurrences. Single events are
// kept as-is. Recurring ones are expanded inside the horizon window with
// their EXDATEs removed; an override VEVENT (RECURRENCE-ID) replaces the
// instance it names.
func (d *Decoder) expand(events []vevent) []occurrence {
	overridden := make(map[string][]time.Time)
	for _, ev := range events {
		if ev.recurID != nil {
			overridden[ev.uid] = append(overridden[ev.uid], *ev.recurID)
		}
	}

	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	horizon := d.HorizonDays
	if horizon <= 0 {
		horizon = defaultHorizonDays
	}
	from := now.AddDate(0, 0, -horizon)

	var out []occurrence
	for _, ev := range events {
		if ev.rrule == "" || ev.recurID != nil {
			out = append(out, occurrence{summary: ev.summary, start: ev.start, end: ev.end, allDay: ev.allDay})
			continue
		}
		out = append(out, d.expandRecurring(ev, overridden[ev.uid], from, now)...)
	}
	return out
}

func (d *Decoder) expandRecurring(ev vevent, skip []time.Time, from, to time.Time) []occurrence {
	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		log.Debug("unparsable RRULE", "uid", ev.uid, "rrule", ev.rrule, "error", err)
		return []occurrence{{summary: ev.summary, start: ev.start, end: ev.end, allDay: ev.allDay}}
	}
	r.DTStart(ev.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exDates {
		set.ExDate(ex.In(ev.start.Location()))
	}
	for _, ex := range skip {
		set.ExDate(ex.In(ev.start.Location()))
	}

	starts := set.Between(from.In(ev.start.Location()), to.In(ev.start.Location()), true)

	limit := d.MaxOccurrences
	if limit <= 0 {
		limit = defaultMaxOccurrences
	}
	if len(starts) > limit {
		log.Warn("recurrence truncated", "uid", ev.uid, "cap", limit)
		starts = starts[:limit]
	}

	dur := ev.end.Sub(ev.start)
	days := int(math.Round(dur.Hours() / 24))

	out := make([]occurrence, 0, len(starts))
	for _, st := range starts {
		o := occurrence{summary: ev.summary, start: st, allDay: ev.allDay}
		if ev.allDay {
			o.end = st.AddDate(0, 0, days)
		} else {
			o.end = st.Add(dur)
		}
		out = append(out, o)
	}
	return out
}
