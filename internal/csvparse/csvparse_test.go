package csvparse

import (
	"bytes"
	"testing"
	"time"

	"github.com/deepak-highbeam/calsift/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Parse
// ---------------------------------------------------------------------------

func TestParseQuotedFields(t *testing.T) {
	p := NewParser(nil)
	text := "Summary,Calendar ID,Notes\n" +
		`"Lunch, with team",work@example.com,"He said ""hi"""` + "\n"

	rows := p.Parse(text, "a.csv")

	require.Len(t, rows, 1)
	assert.Equal(t, "Lunch, with team", rows[0].Summary)
	assert.Equal(t, "work@example.com", rows[0].CalendarID)
	assert.Equal(t, `He said "hi"`, rows[0].Get("Notes"))
	assert.Equal(t, "a.csv", rows[0].SourceFile)
}

func TestParseQuotedNewline(t *testing.T) {
	p := NewParser(nil)
	text := "Summary,Notes\n\"Review\",\"line one\nline two\"\nNext,x\n"

	rows := p.Parse(text, "")

	require.Len(t, rows, 2)
	assert.Equal(t, "line one\nline two", rows[0].Get("Notes"))
	assert.Equal(t, "Next", rows[1].Summary)
}

func TestParseCRLF(t *testing.T) {
	p := NewParser(nil)
	text := "Summary,Calendar ID\r\nA,one\r\nB,two\r\n"

	rows := p.Parse(text, "")

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Summary)
	assert.Equal(t, "one", rows[0].CalendarID)
	assert.Equal(t, "two", rows[1].CalendarID)
}

func TestParseHeaderTrimsAndUnquotes(t *testing.T) {
	p := NewParser(nil)
	text := ` "Summary" , "Start Date",End Date ` + "\nA,2024-03-04,2024-03-05\n"

	rows := p.Parse(text, "")

	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Summary)
	assert.Equal(t, "2024-03-04", rows[0].StartDate)
	assert.Equal(t, "2024-03-05", rows[0].EndDate)
}

func TestParseWithoutTrailingNewline(t *testing.T) {
	p := NewParser(nil)
	rows := p.Parse("Summary,Calendar ID\nA,one\nB,two", "")

	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[1].Summary)
	assert.Equal(t, "two", rows[1].CalendarID)
}

func TestParseRaggedRows(t *testing.T) {
	p := NewParser(nil)
	text := "Summary,Calendar ID,Location\nShort\nLong,cal,room,extra,more\n"

	rows := p.Parse(text, "")

	require.Len(t, rows, 2)
	assert.Equal(t, "Short", rows[0].Summary)
	assert.Equal(t, "", rows[0].CalendarID)
	assert.Equal(t, "", rows[0].Get("Location"))
	assert.Equal(t, "room", rows[1].Get("Location"))
	assert.Len(t, rows[1].Extra, 1, "fields past the header are dropped")
}

func TestParseTrimsUnquotedWhitespace(t *testing.T) {
	p := NewParser(nil)
	rows := p.Parse("Summary,Calendar ID\n  Standup  ,  team \n", "")

	require.Len(t, rows, 1)
	assert.Equal(t, "Standup", rows[0].Summary)
	assert.Equal(t, "team", rows[0].CalendarID)
}

func TestParseSkipsBlankLines(t *testing.T) {
	p := NewParser(nil)
	rows := p.Parse("Summary\nA\n\n\nB\n", "")

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Summary)
	assert.Equal(t, "B", rows[1].Summary)
}

func TestParseNoHeaderTerminator(t *testing.T) {
	p := NewParser(nil)
	assert.Empty(t, p.Parse("", ""))
	assert.Empty(t, p.Parse("Summary,Start,End", ""))
}

func TestParseHeaderOnly(t *testing.T) {
	p := NewParser(nil)
	assert.Empty(t, p.Parse("Summary,Start,End\n", ""))
}

func TestParseEnrichesRows(t *testing.T) {
	p := NewParser(event.NewEnricher(time.UTC, nil))
	text := "Summary,Start,End\nStandup,2024-03-04 09:00,2024-03-04 09:15\n"

	rows := p.Parse(text, "")

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Span)
	assert.Equal(t, 15.0, rows[0].Span.Minutes)
}

// ---------------------------------------------------------------------------
// Writer
// ---------------------------------------------------------------------------

func TestEscapeField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"two\nlines", "\"two\nlines\""},
		{"  padded  ", "  padded  "},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeField(tt.in), tt.in)
	}
}

func TestWriterThenParse(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write("Summary", "Notes"))
	require.NoError(t, w.Write("Lunch, late", `quote "x"`))
	require.NoError(t, w.Write("Plain", "multi\nline"))
	require.NoError(t, w.Flush())

	rows := NewParser(nil).Parse(buf.String(), "")

	require.Len(t, rows, 2)
	assert.Equal(t, "Lunch, late", rows[0].Summary)
	assert.Equal(t, `quote "x"`, rows[0].Get("Notes"))
	assert.Equal(t, "multi\nline", rows[1].Get("Notes"))
}
