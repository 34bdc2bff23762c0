package csvparse

import (
	"bufio"
	"io"
	"strings"
)

// EscapeField quotes s when it contains a double quote, comma or newline,
// doubling any internal quotes. Other values are written as-is.
func EscapeField(s string) string {
	if !strings.ContainsAny(s, "\",\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Writer writes comma-separated records terminated by "\n".
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a Writer on w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes one record, escaping every field.
func (w *Writer) Write(fields ...string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.w.WriteString(EscapeField(f)); err != nil {
			return err
		}
	}
	return w.w.WriteByte('\n')
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
