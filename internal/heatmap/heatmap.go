// Package heatmap builds a calendar-date by hour-of-day grid recording the
// dominant category of every hour slot.
package heatmap

import (
	"sort"
	"time"

	"github.com/deepak-highbeam/calsift/internal/event"
	"github.com/deepak-highbeam/calsift/internal/stats"
)

// MaxSpan is the longest event placed on the grid.
const MaxSpan = 24 * time.Hour

// Cell is one hour slot.
type Cell struct {
	// Category is "" and CategoryIndex is -1 while no event touched the slot.
	Category      string
	Minutes       float64
	CategoryIndex int
	// EventCount counts every event overlapping the slot, dominant or not.
	EventCount int
}

// Empty reports whether no event touched the slot.
func (c Cell) Empty() bool {
	return c.EventCount == 0
}

// Day is one calendar date of the grid.
type Day struct {
	Date      string
	DayOfWeek time.Weekday
	Hours     [24]Cell
}

// Heatmap is the full grid.
type Heatmap struct {
	// Days is sorted by date.
	Days []Day

	// Categories lists category names by index, in first-seen order.
	Categories []string
}

// Build places every row stats.Included accepts onto the grid. Rows without
// a span, rows spanning more than MaxSpan and rows with neither category nor
// summary are skipped. Categories are indexed in first-seen row order and
// placed category by category in index order, each in row order. An hour
// slot changes hands only when an event overlaps it by strictly more
// minutes than the current dominant one, so ties go to the lower index.
func Build(rows []event.Row) *Heatmap {
	h := &Heatmap{}
	days := make(map[string]*Day)
	catIndex := make(map[string]int)
	var buckets [][]*event.Row

	for i := range rows {
		r := &rows[i]
		if !stats.Included(r) || r.Span == nil {
			continue
		}
		name := categoryOf(r)
		if name == "" || r.Span.End.Sub(r.Span.Start) > MaxSpan {
			continue
		}
		idx, ok := catIndex[name]
		if !ok {
			idx = len(h.Categories)
			catIndex[name] = idx
			h.Categories = append(h.Categories, name)
			buckets = append(buckets, nil)
		}
		buckets[idx] = append(buckets[idx], r)
	}

	for idx, bucket := range buckets {
		name := h.Categories[idx]
		for _, r := range bucket {
			place(days, r.Span.Start, r.Span.End, name, idx)
		}
	}

	h.Days = make([]Day, 0, len(days))
	for _, d := range days {
		h.Days = append(h.Days, *d)
	}
	sort.Slice(h.Days, func(i, j int) bool { return h.Days[i].Date < h.Days[j].Date })
	return h
}

func categoryOf(r *event.Row) string {
	if name := r.Category(); name != "" {
		return name
	}
	return r.Summary
}

// place walks [start, end) hour by hour, crediting each touched slot.
func place(days map[string]*Day, start, end time.Time, name string, idx int) {
	for cur := truncateHour(start); cur.Before(end); {
		next := nextHour(cur)

		overlap := minTime(next, end).Sub(maxTime(cur, start)).Minutes()
		if overlap > 0 {
			key := cur.Format(stats.DateLayout)
			d, ok := days[key]
			if !ok {
				d = newDay(key, cur.Weekday())
				days[key] = d
			}
			cell := &d.Hours[cur.Hour()]
			if overlap > cell.Minutes {
				cell.Category = name
				cell.Minutes = overlap
				cell.CategoryIndex = idx
			}
			cell.EventCount++
		}
		cur = next
	}
}

// Day returns the grid row for date (stats.DateLayout).
func (h *Heatmap) Day(date string) (Day, bool) {
	i := sort.Search(len(h.Days), func(i int) bool { return h.Days[i].Date >= date })
	if i < len(h.Days) && h.Days[i].Date == date {
		return h.Days[i], true
	}
	return Day{}, false
}

func newDay(date string, wd time.Weekday) *Day {
	d := &Day{Date: date, DayOfWeek: wd}
	for i := range d.Hours {
		d.Hours[i].CategoryIndex = -1
	}
	return d
}

// truncateHour returns the wall-clock hour boundary at or before t.
func truncateHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// nextHour returns the next wall-clock hour boundary after cur. A repeated
// hour at a DST fall-back still advances by one real hour.
func nextHour(cur time.Time) time.Time {
	next := time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour()+1, 0, 0, 0, cur.Location())
	if !next.After(cur) {
		next = cur.Add(time.Hour)
	}
	return next
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
