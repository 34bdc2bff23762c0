package normalize

import (
	"sort"
	"strings"

	"github.com/deepak-highbeam/calsift/internal/event"
	"github.com/deepak-highbeam/calsift/internal/rules"
)

// NoRule is shown in place of a pattern when nothing matched.
const NoRule = "-"

// Entry is one distinct summary or calendar in a preview.
type Entry struct {
	// Name is the summary as first seen, or `id:<calendar>` for calendars.
	Name       string
	Count      int
	Rule       string
	Normalized string
	Ignored    bool
}

// Matched reports whether a rule applied to the entry.
func (e Entry) Matched() bool {
	return e.Rule != NoRule
}

// Preview summarizes rule effects without touching the working set.
type Preview struct {
	Events    []Entry
	Calendars []Entry
}

// IgnoredCount is the number of event and calendar entries mapped to IGNORE.
func (p Preview) IgnoredCount() int {
	n := 0
	for _, e := range p.Events {
		if e.Ignored {
			n++
		}
	}
	for _, e := range p.Calendars {
		if e.Ignored {
			n++
		}
	}
	return n
}

// Unmatched returns a copy of p holding only entries no rule matched.
func (p Preview) Unmatched() Preview {
	return Preview{
		Events:    filterUnmatched(p.Events),
		Calendars: filterUnmatched(p.Calendars),
	}
}

func filterUnmatched(in []Entry) []Entry {
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		if !e.Matched() {
			out = append(out, e)
		}
	}
	return out
}

// BuildPreview groups rows by lowercased summary and by calendar ID and
// reports the rule each group resolves to. Summary groups are evaluated
// like Apply, against the full rule list and the row's calendar ID; when
// rows sharing a summary sit in different calendars the last row decides.
// Calendar groups consult only id: rules. Both lists are sorted by count
// descending, then name.
func BuildPreview(rows []event.Row, rs []rules.Rule) Preview {
	var (
		events    []Entry
		eventIdx  = make(map[string]int)
		calendars []Entry
		calIdx    = make(map[string]int)
	)

	for _, r := range rows {
		key := strings.ToLower(r.Summary)
		i, ok := eventIdx[key]
		if !ok {
			i = len(events)
			eventIdx[key] = i
			events = append(events, Entry{Name: r.Summary})
		}
		events[i].Count++
		resolve(&events[i], r, rs)

		if r.CalendarID == "" {
			continue
		}
		calKey := strings.ToLower(r.CalendarID)
		if i, ok := calIdx[calKey]; ok {
			calendars[i].Count++
		} else {
			calIdx[calKey] = len(calendars)
			calendars = append(calendars, calendarEntry(r.CalendarID, rs))
		}
	}

	sortEntries(events)
	sortEntries(calendars)
	return Preview{Events: events, Calendars: calendars}
}

// resolve sets e's rule and outcome from row r, the same way Apply would.
func resolve(e *Entry, r event.Row, rs []rules.Rule) {
	e.Rule, e.Normalized = NoRule, e.Name
	if rule, ok := rules.Match(rs, r.Summary, r.CalendarID); ok {
		e.Rule, e.Normalized = rule.Pattern, rule.Name
	}
	e.Ignored = event.IsIgnoreName(e.Normalized)
}

func calendarEntry(calendarID string, rs []rules.Rule) Entry {
	e := Entry{Name: "id:" + calendarID, Count: 1, Rule: NoRule, Normalized: calendarID}
	for _, rule := range rs {
		if rule.Kind == rules.CalendarID && rule.Matches("", calendarID) {
			e.Rule = rule.Pattern
			e.Normalized = rule.Name
			break
		}
	}
	e.Ignored = event.IsIgnoreName(e.Normalized)
	return e
}

func sortEntries(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].Count != es[j].Count {
			return es[i].Count > es[j].Count
		}
		return strings.ToLower(es[i].Name) < strings.ToLower(es[j].Name)
	})
}
