package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetLevel("info")
	})

	assert.True(t, SetLevel("info"))
	Debug("hidden", "k", "v")
	assert.Empty(t, buf.String())

	Info("file loaded", "file", "a.csv", "rows", 3)
	out := buf.String()
	assert.Contains(t, out, "file loaded")
	assert.Contains(t, out, "file=a.csv")
	assert.Contains(t, out, "rows=3")

	buf.Reset()
	Error("read failed", errors.New("boom"), "file", "b.csv")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "level=error")
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	assert.False(t, SetLevel("chatty"))
	assert.True(t, SetLevel("DEBUG"))
	assert.True(t, SetLevel("info"))
}

func TestOddKeyValuesIgnored(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("odd", "only-key")
	Info("non-string", 42, "v")
	assert.NotContains(t, buf.String(), "only-key=")
	assert.NotContains(t, buf.String(), "42=")
}
