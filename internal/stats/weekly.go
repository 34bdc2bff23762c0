package stats

import (
	"fmt"
	"time"
)

// WeekKey returns the week bucket for t as "YYYY-Www". Week 1 starts on
// January 1 and each later week on Sunday:
//
//	week = ceil((dayOfYear + jan1Weekday) / 7)   // dayOfYear from 1, Sunday = 0
//
// This is not ISO 8601; it only needs to be consistent within a data set.
func WeekKey(t time.Time) string {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	past := t.YearDay() - 1
	week := (past+int(jan1.Weekday()))/7 + 1
	return fmt.Sprintf("%04d-W%02d", t.Year(), week)
}

// WeekPoint is one bucket of a weekly series.
type WeekPoint struct {
	Week    string
	Minutes float64
}

// GroupByWeek sums byDate into week buckets. dates fixes the bucket order
// and must be ascending; a date absent from byDate contributes zero.
// Unparsable dates are skipped.
func GroupByWeek(dates []string, byDate map[string]float64) []WeekPoint {
	var out []WeekPoint
	index := make(map[string]int)
	for _, d := range dates {
		t, err := time.Parse(DateLayout, d)
		if err != nil {
			continue
		}
		key := WeekKey(t)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, WeekPoint{Week: key})
		}
		out[i].Minutes += byDate[d]
	}
	return out
}

// Series is one category's minutes per week, aligned with WeeklySeries.Weeks.
type Series struct {
	Category string
	Minutes  []float64
}

// WeeklySeries is the week axis shared by every series.
type WeeklySeries struct {
	Weeks  []string
	Series []Series
}

// Weekly builds the weekly series for the n largest categories.
func Weekly(s Summary, n int) WeeklySeries {
	var ws WeeklySeries
	for _, p := range GroupByWeek(s.Dates, nil) {
		ws.Weeks = append(ws.Weeks, p.Week)
	}
	for _, c := range s.Top(n) {
		points := GroupByWeek(s.Dates, c.ByDate)
		series := Series{Category: c.Name, Minutes: make([]float64, len(points))}
		for i, p := range points {
			series.Minutes[i] = p.Minutes
		}
		ws.Series = append(ws.Series, series)
	}
	return ws
}
