// Package csvparse reads calendar-export CSV text into event rows and
// writes CSV with the export escaping rules.
//
// The reader is a single-pass state machine rather than a split on commas
// and newlines, because quoted fields may contain both.
package csvparse

import (
	"strings"

	"github.com/deepak-highbeam/calsift/internal/event"
	"github.com/deepak-highbeam/calsift/internal/log"
)

// Parser turns CSV text into enriched rows.
type Parser struct {
	enricher *event.Enricher
}

// NewParser creates a Parser that enriches each finished row with enr.
// A nil enricher leaves rows without a Span.
func NewParser(enr *event.Enricher) *Parser {
	return &Parser{enricher: enr}
}

// Parse reads text whose first line is the header. Each later field maps
// positionally onto the header column at the same index:
//   - rows shorter than the header keep "" for the trailing columns;
//   - fields beyond the header length are dropped;
//   - blank lines produce no row.
//
// Text without a newline (no header terminator) yields no rows.
func (p *Parser) Parse(text, sourceFile string) []event.Row {
	headerEnd := strings.IndexByte(text, '\n')
	if headerEnd == -1 {
		return nil
	}
	headers := parseHeader(text[:headerEnd])

	b := &rowBuilder{headers: headers, source: sourceFile, enricher: p.enricher}
	b.reset()

	var (
		field    strings.Builder
		inQuotes bool
	)

	for i := headerEnd + 1; i < len(text); i++ {
		c := text[i]
		var next byte
		if i+1 < len(text) {
			next = text[i+1]
		}

		switch {
		case c == '"':
			if inQuotes && next == '"' {
				field.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes

		case c == ',' && !inQuotes:
			b.setField(field.String())
			field.Reset()

		case (c == '\n' || (c == '\r' && next == '\n')) && !inQuotes:
			b.finish(field.String())
			field.Reset()
			if c == '\r' {
				i++
			}

		default:
			field.WriteByte(c)
		}
	}

	// Files without a trailing newline still carry a final row.
	if field.Len() > 0 || b.column > 0 {
		b.finish(field.String())
	}

	return b.rows
}

// rowBuilder accumulates fields for the current row.
type rowBuilder struct {
	headers  []string
	source   string
	enricher *event.Enricher

	current  event.Row
	column   int
	overflow int
	rows     []event.Row
}

func (b *rowBuilder) reset() {
	b.current = event.Row{SourceFile: b.source}
	// Unrecognized header columns start at "" like the recognized ones.
	for _, h := range b.headers {
		b.current.Set(h, "")
	}
	b.column = 0
	b.overflow = 0
}

func (b *rowBuilder) setField(raw string) {
	if b.column < len(b.headers) {
		b.current.Set(b.headers[b.column], strings.TrimSpace(raw))
	} else {
		b.overflow++
	}
	b.column++
}

func (b *rowBuilder) finish(raw string) {
	if b.column == 0 && raw == "" {
		b.reset()
		return
	}
	b.setField(raw)

	if b.overflow > 0 {
		log.Debug("csv row has more fields than header", "file", b.source,
			"row", len(b.rows)+1, "dropped", b.overflow)
	}
	if b.enricher != nil {
		b.enricher.Enrich(&b.current)
	}
	b.rows = append(b.rows, b.current)
	b.reset()
}

// parseHeader splits the header line honoring quotes, trims each name and
// strips one pair of surrounding quotes left after trimming.
func parseHeader(line string) []string {
	var (
		values   []string
		current  strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			values = append(values, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	values = append(values, strings.TrimSpace(current.String()))

	for i, v := range values {
		if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
			values[i] = v[1 : len(v)-1]
		}
	}
	return values
}
