package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/deepak-highbeam/calsift/internal/event"
	"github.com/deepak-highbeam/calsift/internal/heatmap"
	"github.com/deepak-highbeam/calsift/internal/normalize"
	"github.com/deepak-highbeam/calsift/internal/rules"
	"github.com/deepak-highbeam/calsift/internal/stats"
	"github.com/deepak-highbeam/calsift/internal/store"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func row(summary, category, rule, start, end string) event.Row {
	st, err := time.Parse("2006-01-02 15:04", start)
	if err != nil {
		panic(err)
	}
	en, err := time.Parse("2006-01-02 15:04", end)
	if err != nil {
		panic(err)
	}
	r := event.Row{
		Summary: summary,
		Span:    &event.Span{Start: st, End: en, Minutes: en.Sub(st).Minutes()},
	}
	return r.WithNorm(event.Normalization{Category: category, Rule: rule})
}

// fixture: Meetings 120 min over two days, Focus 90 min on Monday.
func fixture() []event.Row {
	return []event.Row{
		row("Team meeting", "Meetings", "*meeting*", "2024-03-04 09:00", "2024-03-04 10:00"),
		row("Deep work", "Focus", "", "2024-03-04 10:00", "2024-03-04 11:30"),
		row("Sales meeting", "Meetings", "*meeting*", "2024-03-05 09:00", "2024-03-05 10:00"),
	}
}

// ---------------------------------------------------------------------------
// JSON documents
// ---------------------------------------------------------------------------

func TestNewStatsReport(t *testing.T) {
	r := NewStatsReport(stats.Aggregate(fixture()), 8)

	assert.Equal(t, 3, r.Analyzed)
	assert.Equal(t, 210.0, r.TotalMinutes)
	assert.Equal(t, 4, r.TotalHours)
	assert.Equal(t, 1, r.DaysInRange)
	assert.Equal(t, 4.0, r.HoursPerDay)
	assert.Equal(t, "2024-03-04T09:00:00Z", r.Earliest)
	assert.Equal(t, 2, r.ByWeekday[int(time.Monday)])
	assert.Equal(t, 2, r.ByHour[9])

	require.Len(t, r.Categories, 2)
	assert.Equal(t, CategoryReport{Name: "meetings", Count: 2, Minutes: 120, Hours: 2, PerDay: 2, Percentage: 57.1}, r.Categories[0])
	assert.Equal(t, 42.9, r.Categories[1].Percentage)

	assert.Equal(t, []string{"2024-W10"}, r.Weekly.Weeks)
	require.Len(t, r.Weekly.Series, 2)
	assert.Equal(t, SeriesReport{Category: "meetings", Minutes: []float64{120}}, r.Weekly.Series[0])
}

func TestStatsReportJSONKeys(t *testing.T) {
	out := FormatJSON(NewStatsReport(stats.Summary{DaysInRange: 1}, 8))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, []any{}, doc["categories"])
	assert.NotContains(t, doc, "earliest")
	weekly := doc["weekly"].(map[string]any)
	assert.Equal(t, []any{}, weekly["weeks"])
}

func TestNewHeatmapReport(t *testing.T) {
	r := NewHeatmapReport(heatmap.Build(fixture()))

	assert.Equal(t, []string{"Meetings", "Focus"}, r.Categories)
	require.Len(t, r.Legend, 2)
	assert.Equal(t, LegendReport{Index: 0, Category: "Meetings", Color: "#4285f4", Hours: 2}, r.Legend[0])
	assert.Equal(t, 1.5, r.Legend[1].Hours)

	require.Len(t, r.Days, 2)
	assert.Equal(t, "Monday", r.Days[0].Weekday)
	require.Len(t, r.Days[0].Hours, 3)
	assert.Equal(t, CellReport{Hour: 11, Category: "Focus", Index: 1, Minutes: 30, Events: 1}, r.Days[0].Hours[2])
	assert.Len(t, r.Days[1].Hours, 1)
}

func TestFormatJSONError(t *testing.T) {
	out := FormatJSON(make(chan int))
	assert.Contains(t, out, `"error"`)
}

// ---------------------------------------------------------------------------
// Terminal output
// ---------------------------------------------------------------------------

func TestFormatStats(t *testing.T) {
	out := FormatStats(stats.Aggregate(fixture()), 8)

	assert.Contains(t, out, "Calendar Statistics")
	assert.Contains(t, out, "3 of 3")
	assert.Contains(t, out, "2024-03-04 to 2024-03-05")
	assert.Contains(t, out, "Monday")
	assert.Contains(t, out, "09:00")
	assert.Contains(t, out, "meetings")
	assert.Contains(t, out, "57.1%")
	assert.NotContains(t, out, "more categories")
}

func TestFormatStatsTopAndEmpty(t *testing.T) {
	out := FormatStats(stats.Aggregate(fixture()), 1)
	assert.Contains(t, out, "... and 1 more categories")

	out = FormatStats(stats.Aggregate(nil), 8)
	assert.Contains(t, out, "No events to analyze.")
	assert.NotContains(t, out, "Busiest")
}

func TestFormatHeatmap(t *testing.T) {
	out := FormatHeatmap(heatmap.Build(fixture()))

	assert.Contains(t, out, "2024-03-04 Mon")
	assert.Contains(t, out, "2024-03-05 Tue")
	assert.Contains(t, out, "Legend")
	assert.Contains(t, out, "Focus")
	assert.Contains(t, out, "··")

	assert.Contains(t, FormatHeatmap(heatmap.Build(nil)), "No timed events")
}

func TestFormatPreview(t *testing.T) {
	raw := []event.Row{
		{Summary: "Team meeting", CalendarID: "work"},
		{Summary: "team meeting", CalendarID: "work"},
		{Summary: "Lunch", CalendarID: "home"},
		{Summary: "Dentist"},
	}
	p := normalize.BuildPreview(raw, rules.Parse("*meeting*=>Meetings\nid:home=>IGNORE"))

	out := FormatPreview(p, false)
	assert.Contains(t, out, "Unique events (3)")
	assert.Contains(t, out, "Unique calendars (2)")
	assert.Contains(t, out, "Team meeting")
	assert.Contains(t, out, "id:home")
	assert.Contains(t, out, "3 unique events, 2 unique calendars, 2 ignored")

	out = FormatPreview(p, true)
	assert.NotContains(t, out, "Team meeting")
	assert.NotContains(t, out, "Lunch")
	assert.Contains(t, out, "Dentist")
	assert.Contains(t, out, "id:work")
	assert.NotContains(t, out, "id:home")
}

func TestFormatBatches(t *testing.T) {
	assert.Contains(t, FormatBatches(nil, 0), "No files loaded.")

	out := FormatBatches([]store.Batch{
		{FileName: "a.csv", RowCount: 3},
		{FileName: "b.ics", RowCount: 2},
	}, 2048)
	assert.Contains(t, out, "a.csv - 3 events\n")
	assert.Contains(t, out, "b.ics - 2 events\n")
	assert.Contains(t, out, "2 files, 5 events, database 2.0 KB")
}

func TestHumanBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, humanBytes(tc.in))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "Éco...", truncate("Écoles du monde", 6))
}

// ---------------------------------------------------------------------------
// Exports
// ---------------------------------------------------------------------------

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []stats.ExportRow{
		{Date: "2024-03-04", Event: "Review, code", Rule: "-", Normalized: "Review, code", Hours: "1.5"},
		{Date: "2024-03-05", Event: `Say "hi"`, Rule: "*hi*", Normalized: "Social", Hours: "0.5"},
	})

	require.NoError(t, err)
	want := "Date,Event,Matching Rule,Normalized,Hours\n" +
		"2024-03-04,\"Review, code\",-,\"Review, code\",1.5\n" +
		"2024-03-05,\"Say \"\"hi\"\"\",*hi*,Social,0.5\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteXLSX(t *testing.T) {
	rows := fixture()
	var buf bytes.Buffer

	require.NoError(t, WriteXLSX(&buf, stats.Aggregate(rows), heatmap.Build(rows), stats.ExportRows(rows)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetCategories, SheetHeatmap, SheetEvents}, f.GetSheetList())

	cats, err := f.GetRows(SheetCategories)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, []string{"Category", "Hours", "Per Day", "Percentage", "Events"}, cats[0])
	assert.Equal(t, []string{"meetings", "2", "2", "57.1", "2"}, cats[1])

	grid, err := f.GetRows(SheetHeatmap)
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Equal(t, "23", grid[0][25])
	require.Greater(t, len(grid[1]), 13)
	assert.Equal(t, "2024-03-04", grid[1][0])
	assert.Equal(t, "Monday", grid[1][1])
	assert.Equal(t, "1", grid[1][11])
	assert.Equal(t, "2", grid[1][12])
	assert.Equal(t, "2", grid[1][13])
	assert.Equal(t, "", grid[1][2])

	events, err := f.GetRows(SheetEvents)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, stats.ExportHeader, events[0])
	assert.Equal(t, []string{"2024-03-04", "Deep work", "-", "Focus", "1.5"}, events[2])
}
