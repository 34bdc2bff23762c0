package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/deepak-highbeam/calsift/internal/heatmap"
	"github.com/deepak-highbeam/calsift/internal/normalize"
	"github.com/deepak-highbeam/calsift/internal/stats"
	"github.com/deepak-highbeam/calsift/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#4285f4")).
			Padding(0, 1)

	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#757575"))
	ignoredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ea4335"))
	matchedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#34a853"))
)

const barWidth = 20

// FormatStats renders a statistics summary. top bounds the category table;
// a negative value lists every category.
func FormatStats(s stats.Summary, top int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Calendar Statistics") + "\n\n")

	fmt.Fprintf(&b, "%-16s %d of %d\n", "Events analyzed:", s.Analyzed, s.TotalRows)
	fmt.Fprintf(&b, "%-16s %d ignored, %d all-day, %d longer than %dh\n",
		"Excluded:", s.Ignored, s.AllDay, s.LongEvents, stats.MaxEventMinutes/60)
	if !s.Earliest.IsZero() {
		fmt.Fprintf(&b, "%-16s %s to %s (%d days)\n", "Range:",
			s.Earliest.Format(stats.DateLayout), s.Latest.Format(stats.DateLayout), s.DaysInRange)
	}
	fmt.Fprintf(&b, "%-16s %d h (%.1f h per day)\n", "Total time:", s.TotalHours, s.HoursPerDay)
	if wd, ok := busiest(s.ByWeekday[:]); ok {
		fmt.Fprintf(&b, "%-16s %s\n", "Busiest day:", weekdayNames[wd])
	}
	if hr, ok := busiest(s.ByHour[:]); ok {
		fmt.Fprintf(&b, "%-16s %02d:00\n", "Busiest hour:", hr)
	}
	b.WriteString("\n")

	cats := s.Top(top)
	if len(cats) == 0 {
		b.WriteString(dimStyle.Render("No events to analyze.") + "\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-28s %8s %8s %7s %6s", "Category", "Hours", "Per day", "Share", "Events")) + "\n")
	b.WriteString(strings.Repeat("-", 60+barWidth+1) + "\n")
	for i, c := range cats {
		fmt.Fprintf(&b, "%-28s %8.1f %8.1f %6.1f%% %6d %s\n",
			truncate(c.Name, 28), c.Hours(), c.PerDay, c.Percentage, c.Count, bar(c.Percentage, heatmap.Color(i)))
	}
	if rest := len(s.Categories) - len(cats); rest > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("... and %d more categories", rest)) + "\n")
	}
	return b.String()
}

// FormatHeatmap renders the grid one date per line. Each slot shows the
// dominant category's legend number on its palette color.
func FormatHeatmap(h *heatmap.Heatmap) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Calendar Heatmap") + "\n\n")
	if len(h.Days) == 0 {
		b.WriteString(dimStyle.Render("No timed events to place.") + "\n")
		return b.String()
	}

	var hours strings.Builder
	for hr := 0; hr < 24; hr++ {
		fmt.Fprintf(&hours, "%02d", hr)
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-3s %s", "Date", "Day", hours.String())) + "\n")

	for _, d := range h.Days {
		fmt.Fprintf(&b, "%-10s %-3s ", d.Date, d.DayOfWeek.String()[:3])
		for _, c := range d.Hours {
			b.WriteString(cell(c))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + headerStyle.Render("Legend") + "\n")
	for _, e := range h.Legend() {
		swatch := swatchStyle(e.Index).Render(label(e.Index))
		fmt.Fprintf(&b, "%s %-28s %6.1f h\n", swatch, truncate(e.Category, 28), e.Hours)
	}
	return b.String()
}

// FormatPreview renders the unique-events and unique-calendars tables of a
// dry run.
func FormatPreview(p normalize.Preview, unmatchedOnly bool) string {
	full := p
	if unmatchedOnly {
		p = p.Unmatched()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Rule Preview") + "\n\n")

	writeEntries(&b, fmt.Sprintf("Unique events (%d)", len(full.Events)), "Event", p.Events)
	if len(full.Calendars) > 0 {
		b.WriteString("\n")
		writeEntries(&b, fmt.Sprintf("Unique calendars (%d)", len(full.Calendars)), "Calendar", p.Calendars)
	}

	fmt.Fprintf(&b, "\n%d unique events, %d unique calendars, %d ignored\n",
		len(full.Events), len(full.Calendars), full.IgnoredCount())
	return b.String()
}

func writeEntries(b *strings.Builder, title, nameCol string, entries []normalize.Entry) {
	b.WriteString(headerStyle.Render(title) + "\n")
	if len(entries) == 0 {
		b.WriteString(dimStyle.Render("  (none)") + "\n")
		return
	}
	fmt.Fprintf(b, "%6s  %-30s %-20s %s\n", "Count", nameCol, "Rule", "Normalized")
	for _, e := range entries {
		norm := e.Normalized
		switch {
		case e.Ignored:
			norm = ignoredStyle.Render(norm)
		case e.Matched():
			norm = matchedStyle.Render(norm)
		}
		fmt.Fprintf(b, "%6d  %-30s %-20s %s\n", e.Count, truncate(e.Name, 30), truncate(e.Rule, 20), norm)
	}
}

// FormatBatches lists loaded files as "<file> - N events".
func FormatBatches(batches []store.Batch, dbSize int64) string {
	if len(batches) == 0 {
		return dimStyle.Render("No files loaded.") + "\n"
	}

	var b strings.Builder
	total := 0
	for _, bt := range batches {
		fmt.Fprintf(&b, "%s - %d events\n", bt.FileName, bt.RowCount)
		total += bt.RowCount
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d files, %d events, database %s",
		len(batches), total, humanBytes(dbSize))) + "\n")
	return b.String()
}

// FormatJSON marshals any value as indented JSON.
func FormatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// busiest returns the first index holding the largest positive count.
func busiest(counts []int) (int, bool) {
	best, at := 0, -1
	for i, n := range counts {
		if n > best {
			best, at = n, i
		}
	}
	return at, at >= 0
}

func bar(pct float64, color string) string {
	n := int(pct / 100 * barWidth)
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(strings.Repeat("█", n))
}

func cell(c heatmap.Cell) string {
	if c.Empty() {
		return dimStyle.Render("··")
	}
	return swatchStyle(c.CategoryIndex).Render(label(c.CategoryIndex))
}

func swatchStyle(index int) lipgloss.Style {
	bg := heatmap.Color(index)
	fg := "#FFFFFF"
	if heatmap.IsLightColor(bg) {
		fg = "#000000"
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(bg)).Foreground(lipgloss.Color(fg))
}

// label is the two-character legend number of a category index.
func label(index int) string {
	if index+1 > 99 {
		return "**"
	}
	return fmt.Sprintf("%2d", index+1)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// humanBytes formats bytes as a human-readable string (KB, MB, GB).
func humanBytes(b int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)

	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
