package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/deepak-highbeam/calsift/internal/event"
)

// DateLayout is the calendar-date key format used throughout.
const DateLayout = "2006-01-02"

// CategoryStat holds per-category aggregates.
type CategoryStat struct {
	// Name is the lowercased category; grouping is case-insensitive.
	Name    string
	Count   int
	Minutes float64

	// ByWeekday counts events by start weekday, 0 = Sunday.
	ByWeekday [7]int
	// ByHour counts events by start hour of day.
	ByHour [24]int
	// ByDate sums minutes per start date (DateLayout keys).
	ByDate map[string]float64

	// Derived from the totals; see Aggregate.
	Percentage float64
	PerDay     float64
}

// Hours returns Minutes in hours.
func (c CategoryStat) Hours() float64 {
	return c.Minutes / 60
}

// Summary is the result of Aggregate.
type Summary struct {
	TotalRows   int
	Analyzed    int
	Ignored     int
	AllDay      int
	LongEvents  int
	FilteredOut int

	Earliest time.Time
	Latest   time.Time

	TotalMinutes float64
	// TotalHours is TotalMinutes in hours, rounded to the nearest hour.
	TotalHours  int
	DaysInRange int
	HoursPerDay float64

	ByWeekday [7]int
	ByHour    [24]int

	// Categories is sorted by Minutes descending, then name.
	Categories []CategoryStat

	// Dates lists every start date with events, ascending.
	Dates []string
}

// Aggregate computes statistics over rows. Rows rejected by Included are
// counted in the exclusion totals and otherwise skipped.
func Aggregate(rows []event.Row) Summary {
	s := Summary{TotalRows: len(rows)}

	for i := range rows {
		r := &rows[i]
		if r.IsIgnored() {
			s.Ignored++
		}
		if r.IsAllDay() {
			s.AllDay++
		} else if isLong(r) {
			s.LongEvents++
		}
	}

	filtered := Filter(rows)
	s.Analyzed = len(filtered)
	s.FilteredOut = s.TotalRows - s.Analyzed

	index := make(map[string]int)
	dates := make(map[string]bool)

	for i := range filtered {
		r := &filtered[i]
		name := strings.ToLower(categoryName(r))

		ci, ok := index[name]
		if !ok {
			ci = len(s.Categories)
			index[name] = ci
			s.Categories = append(s.Categories, CategoryStat{
				Name:   name,
				ByDate: make(map[string]float64),
			})
		}
		cat := &s.Categories[ci]
		cat.Count++

		if r.HasDuration() {
			cat.Minutes += r.Span.Minutes
			s.TotalMinutes += r.Span.Minutes
		}

		if r.Span == nil {
			continue
		}
		start := r.Span.Start
		if s.Earliest.IsZero() || start.Before(s.Earliest) {
			s.Earliest = start
		}
		if s.Latest.IsZero() || start.After(s.Latest) {
			s.Latest = start
		}

		wd, hr := int(start.Weekday()), start.Hour()
		cat.ByWeekday[wd]++
		cat.ByHour[hr]++
		s.ByWeekday[wd]++
		s.ByHour[hr]++

		day := start.Format(DateLayout)
		dates[day] = true
		if r.HasDuration() {
			cat.ByDate[day] += r.Span.Minutes
		}
	}

	s.Dates = make([]string, 0, len(dates))
	for d := range dates {
		s.Dates = append(s.Dates, d)
	}
	sort.Strings(s.Dates)

	s.DaysInRange = daysInRange(s.Earliest, s.Latest)
	s.TotalHours = int(math.Round(s.TotalMinutes / 60))
	s.HoursPerDay = float64(s.TotalHours) / float64(s.DaysInRange)

	for i := range s.Categories {
		c := &s.Categories[i]
		if s.TotalMinutes != 0 {
			c.Percentage = c.Minutes / s.TotalMinutes * 100
		}
		c.PerDay = c.Hours() / float64(s.DaysInRange)
	}

	sort.SliceStable(s.Categories, func(i, j int) bool {
		a, b := s.Categories[i], s.Categories[j]
		if a.Minutes != b.Minutes {
			return a.Minutes > b.Minutes
		}
		return a.Name < b.Name
	})

	return s
}

// Top returns at most n categories from the front of the sorted list.
func (s Summary) Top(n int) []CategoryStat {
	if n < 0 || n > len(s.Categories) {
		n = len(s.Categories)
	}
	return s.Categories[:n]
}

// daysInRange is max(1, ceil(latest - earliest in days)).
func daysInRange(earliest, latest time.Time) int {
	if earliest.IsZero() || latest.IsZero() {
		return 1
	}
	days := int(math.Ceil(latest.Sub(earliest).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}
