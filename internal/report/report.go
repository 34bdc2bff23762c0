// Package report renders computed results for the terminal, as JSON and
// as CSV or XLSX exports. It computes nothing on its own.
package report

import (
	"math"
	"time"

	"github.com/deepak-highbeam/calsift/internal/heatmap"
	"github.com/deepak-highbeam/calsift/internal/stats"
)

// StatsReport is the JSON shape of a statistics summary.
type StatsReport struct {
	TotalRows   int `json:"total_rows"`
	Analyzed    int `json:"analyzed"`
	Ignored     int `json:"ignored"`
	AllDay      int `json:"all_day"`
	LongEvents  int `json:"long_events"`
	FilteredOut int `json:"filtered_out"`

	Earliest string `json:"earliest,omitempty"`
	Latest   string `json:"latest,omitempty"`

	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   int     `json:"total_hours"`
	DaysInRange  int     `json:"days_in_range"`
	HoursPerDay  float64 `json:"hours_per_day"`

	// ByWeekday starts on Sunday.
	ByWeekday []int `json:"by_weekday"`
	ByHour    []int `json:"by_hour"`

	Categories []CategoryReport `json:"categories"`
	Weekly     WeeklyReport     `json:"weekly"`
}

// CategoryReport is one category of a StatsReport.
type CategoryReport struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Minutes    float64 `json:"minutes"`
	Hours      float64 `json:"hours"`
	PerDay     float64 `json:"per_day"`
	Percentage float64 `json:"percentage"`
}

// WeeklyReport holds minutes per week for the largest categories.
type WeeklyReport struct {
	Weeks  []string       `json:"weeks"`
	Series []SeriesReport `json:"series"`
}

type SeriesReport struct {
	Category string    `json:"category"`
	Minutes  []float64 `json:"minutes"`
}

// NewStatsReport converts s. top bounds the weekly series.
func NewStatsReport(s stats.Summary, top int) *StatsReport {
	r := &StatsReport{
		TotalRows:    s.TotalRows,
		Analyzed:     s.Analyzed,
		Ignored:      s.Ignored,
		AllDay:       s.AllDay,
		LongEvents:   s.LongEvents,
		FilteredOut:  s.FilteredOut,
		Earliest:     formatTime(s.Earliest),
		Latest:       formatTime(s.Latest),
		TotalMinutes: s.TotalMinutes,
		TotalHours:   s.TotalHours,
		DaysInRange:  s.DaysInRange,
		HoursPerDay:  round1(s.HoursPerDay),
		ByWeekday:    s.ByWeekday[:],
		ByHour:       s.ByHour[:],
		Categories:   make([]CategoryReport, 0, len(s.Categories)),
	}
	for _, c := range s.Categories {
		r.Categories = append(r.Categories, CategoryReport{
			Name:       c.Name,
			Count:      c.Count,
			Minutes:    c.Minutes,
			Hours:      round1(c.Hours()),
			PerDay:     round1(c.PerDay),
			Percentage: round1(c.Percentage),
		})
	}

	w := stats.Weekly(s, top)
	r.Weekly.Weeks = w.Weeks
	if r.Weekly.Weeks == nil {
		r.Weekly.Weeks = []string{}
	}
	r.Weekly.Series = make([]SeriesReport, 0, len(w.Series))
	for _, sr := range w.Series {
		r.Weekly.Series = append(r.Weekly.Series, SeriesReport{Category: sr.Category, Minutes: sr.Minutes})
	}
	return r
}

// HeatmapReport is the JSON shape of a heatmap.
type HeatmapReport struct {
	Categories []string       `json:"categories"`
	Legend     []LegendReport `json:"legend"`
	Days       []DayReport    `json:"days"`
}

type LegendReport struct {
	Index    int     `json:"index"`
	Category string  `json:"category"`
	Color    string  `json:"color"`
	Hours    float64 `json:"hours"`
}

// DayReport lists the hour slots of one date that any event touched.
type DayReport struct {
	Date    string       `json:"date"`
	Weekday string       `json:"weekday"`
	Hours   []CellReport `json:"hours"`
}

type CellReport struct {
	Hour     int     `json:"hour"`
	Category string  `json:"category"`
	Index    int     `json:"index"`
	Minutes  float64 `json:"minutes"`
	Events   int     `json:"events"`
}

// NewHeatmapReport converts h, dropping empty slots.
func NewHeatmapReport(h *heatmap.Heatmap) *HeatmapReport {
	r := &HeatmapReport{
		Categories: h.Categories,
		Legend:     []LegendReport{},
		Days:       make([]DayReport, 0, len(h.Days)),
	}
	if r.Categories == nil {
		r.Categories = []string{}
	}
	for _, e := range h.Legend() {
		r.Legend = append(r.Legend, LegendReport{
			Index:    e.Index,
			Category: e.Category,
			Color:    heatmap.Color(e.Index),
			Hours:    round1(e.Hours),
		})
	}
	for _, d := range h.Days {
		day := DayReport{Date: d.Date, Weekday: d.DayOfWeek.String(), Hours: []CellReport{}}
		for hour, c := range d.Hours {
			if c.Empty() {
				continue
			}
			day.Hours = append(day.Hours, CellReport{
				Hour:     hour,
				Category: c.Category,
				Index:    c.CategoryIndex,
				Minutes:  c.Minutes,
				Events:   c.EventCount,
			})
		}
		r.Days = append(r.Days, day)
	}
	return r
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
