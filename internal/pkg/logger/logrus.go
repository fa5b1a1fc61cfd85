package logger

import (
	"fmt"
	"io"

	"batch_transfer/internal/app/port"

	"github.com/sirupsen/logrus"
)

type logrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter returns a port.Logger writing human readable lines, used by the operator CLI.
func NewLogrusAdapter(out io.Writer, levelStr string) port.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return &logrusAdapter{entry: logrus.NewEntry(l)}
}

func (a *logrusAdapter) fields(args []any) *logrus.Entry {
	if len(args) == 0 {
		return a.entry
	}
	f := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			f["!BADKEY"] = args[i]
			break
		}
		f[key] = args[i+1]
	}
	return a.entry.WithFields(f)
}

func (a *logrusAdapter) Info(msg string, args ...any)  { a.fields(args).Info(msg) }
func (a *logrusAdapter) Debug(msg string, args ...any) { a.fields(args).Debug(msg) }
func (a *logrusAdapter) Warn(msg string, args ...any)  { a.fields(args).Warn(msg) }
func (a *logrusAdapter) Error(msg string, args ...any) { a.fields(args).Error(msg) }
