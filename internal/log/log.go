// Package log is the leveled, structured logger used across calsift.
// Messages carry key/value pairs which are emitted as logrus fields on
// stderr, keeping stdout free for command output.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
)

func base() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		logger.SetLevel(logrus.InfoLevel)
	})
	return logger
}

// SetLevel sets the minimum level by name ("debug", "info", "warn", "error").
// Unknown names leave the level unchanged and return false.
func SetLevel(name string) bool {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return false
	}
	base().SetLevel(lvl)
	return true
}

// SetOutput redirects log output. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	base().SetOutput(w)
}

func Debug(msg string, kv ...any) {
	entry(kv).Debug(msg)
}

func Info(msg string, kv ...any) {
	entry(kv).Info(msg)
}

func Warn(msg string, kv ...any) {
	entry(kv).Warn(msg)
}

// Error logs msg at error level with err attached under the "err" key.
func Error(msg string, err error, kv ...any) {
	entry(kv).WithError(err).Error(msg)
}

// entry turns alternating key/value arguments into logrus fields.
// Non-string keys are skipped; a trailing odd value is dropped.
func entry(kv []any) *logrus.Entry {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[key] = kv[i+1]
	}
	return base().WithFields(fields)
}
