package event

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Row accessors
// ---------------------------------------------------------------------------

func TestRowSetGet(t *testing.T) {
	var r Row
	r.Set(ColSummary, "Standup")
	r.Set(ColCalendarID, "team@example.com")
	r.Set(ColStart, "2024-03-04 09:00")
	r.Set("Location", "Room 1")

	assert.Equal(t, "Standup", r.Summary)
	assert.Equal(t, "team@example.com", r.Get(ColCalendarID))
	assert.Equal(t, "2024-03-04 09:00", r.Get(ColStart))
	assert.Equal(t, "Room 1", r.Get("Location"))
	assert.Equal(t, "", r.Get("Missing"))
}

func TestWithNormDoesNotMutateOriginal(t *testing.T) {
	r := Row{Summary: "Lunch"}
	n := r.WithNorm(Normalization{Category: "IGNORE", Ignored: true})

	assert.Nil(t, r.Norm)
	require.NotNil(t, n.Norm)
	assert.True(t, n.IsIgnored())
	assert.Equal(t, "IGNORE", n.Category())
}

func TestIsIgnoreName(t *testing.T) {
	for _, name := range []string{"IGNORE", "ignore", "Ignore", " iGnOrE "} {
		assert.True(t, IsIgnoreName(name), name)
	}
	assert.False(t, IsIgnoreName("ignored"))
	assert.False(t, IsIgnoreName(""))
}

// ---------------------------------------------------------------------------
// Enrichment
// ---------------------------------------------------------------------------

func TestEnrichDateTimePair(t *testing.T) {
	e := NewEnricher(time.UTC, nil)
	r := Row{Start: "2024-03-04 09:15", End: "2024-03-04 10:45"}

	e.Enrich(&r)

	require.NotNil(t, r.Span)
	assert.False(t, r.Span.AllDay)
	assert.Equal(t, 90.0, r.Span.Minutes)
	assert.Equal(t, 9, r.Span.Start.Hour())
	assert.True(t, r.HasDuration())
}

func TestEnrichDatePairIsAllDay(t *testing.T) {
	e := NewEnricher(time.UTC, nil)
	r := Row{StartDate: "2024-03-04", EndDate: "2024-03-06"}

	e.Enrich(&r)

	require.NotNil(t, r.Span)
	assert.True(t, r.IsAllDay())
	assert.Equal(t, 2.0*1440, r.Span.Minutes)
}

func TestEnrichPrefersDateTimePair(t *testing.T) {
	e := NewEnricher(time.UTC, nil)
	r := Row{
		Start: "2024-03-04T09:00:00", End: "2024-03-04T09:30:00",
		StartDate: "2024-03-04", EndDate: "2024-03-05",
	}

	e.Enrich(&r)

	require.NotNil(t, r.Span)
	assert.False(t, r.Span.AllDay)
	assert.Equal(t, 30.0, r.Span.Minutes)
}

func TestEnrichUnparsableLeavesSpanUnset(t *testing.T) {
	e := NewEnricher(time.UTC, nil)
	cases := []Row{
		{Start: "not a date", End: "2024-03-04 10:00"},
		{StartDate: "2024-03-04", EndDate: "soon"},
		// Start/End present but bad: the date-only pair is not consulted.
		{Start: "x", End: "y", StartDate: "2024-03-04", EndDate: "2024-03-05"},
		{Start: "2024-03-04 10:00"},
		{},
	}

	for i := range cases {
		e.Enrich(&cases[i])
		assert.Nil(t, cases[i].Span, "case %d", i)
		assert.False(t, cases[i].HasDuration())
		assert.False(t, cases[i].IsAllDay())
	}
}

func TestEnrichNegativeDurationPropagates(t *testing.T) {
	e := NewEnricher(time.UTC, nil)
	r := Row{Start: "2024-03-04 10:00", End: "2024-03-04 09:00"}

	e.Enrich(&r)

	require.NotNil(t, r.Span)
	assert.Equal(t, -60.0, r.Span.Minutes)
}

func TestEnrichOnlyOnce(t *testing.T) {
	e := NewEnricher(time.UTC, nil)
	r := Row{Start: "2024-03-04 10:00", End: "2024-03-04 11:00"}
	e.Enrich(&r)
	first := r.Span

	r.End = "2024-03-04 12:00"
	e.Enrich(&r)

	assert.Same(t, first, r.Span)
	assert.Equal(t, 60.0, r.Span.Minutes)
}

func TestEnrichUsesZoneAndOffsets(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	e := NewEnricher(loc, nil)

	r := Row{Start: "2024-03-04T08:00:00Z", End: "2024-03-04T09:00:00Z"}
	e.Enrich(&r)

	require.NotNil(t, r.Span)
	assert.Equal(t, 10, r.Span.Start.Hour(), "UTC value shown in bucketing zone")
	assert.Equal(t, loc, r.Span.Start.Location())
}

func TestEnrichExtraLayouts(t *testing.T) {
	e := NewEnricher(time.UTC, []string{"02.01.2006 15:04"})
	r := Row{Start: "04.03.2024 09:00", End: "04.03.2024 09:45"}

	e.Enrich(&r)

	require.NotNil(t, r.Span)
	assert.Equal(t, 45.0, r.Span.Minutes)
}

func TestParseDateTimeFormats(t *testing.T) {
	e := NewEnricher(time.UTC, nil)
	inputs := []string{
		"2024-03-04T09:30:00Z",
		"2024-03-04 09:30",
		"3/4/2024 9:30 AM",
		"03/04/2024 09:30",
		"Mar 4, 2024 9:30 AM",
	}
	for _, in := range inputs {
		got, ok := e.ParseDateTime(in)
		require.True(t, ok, in)
		assert.Equal(t, time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC), got, in)
	}

	got, ok := e.ParseDateTime("2024-03-04")
	require.True(t, ok)
	assert.Equal(t, 0, got.Hour())
}

func TestHasDurationTreatsNaNAsAbsent(t *testing.T) {
	r := Row{Span: &Span{Minutes: math.NaN()}}
	assert.False(t, r.HasDuration())
}
