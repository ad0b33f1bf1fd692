package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

// SurfaceIDKey carries the id of the UI surface a log line belongs to
const SurfaceIDKey contextKey = "surfaceID"

// InitLog parses and sets log-level input. An empty path or "console"
// logs to stderr, anything else to a rotating file.
func InitLog(logLevel string, logPath string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Errorf("Failed parsing log-level %s: %s", logLevel, err)
		return err
	}

	var out io.Writer = os.Stderr
	if logPath != "" && logPath != "console" {
		out = &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(logPath),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
	}

	log.SetOutput(out)
	log.SetFormatter(&CustomFormatter{
		TextFormatter: log.TextFormatter{FullTimestamp: true},
	})
	log.SetLevel(level)
	return nil
}

// WithSurface returns a context tagged with a surface id
func WithSurface(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SurfaceIDKey, id)
}

// CustomFormatter adds context values to the log entry fields
type CustomFormatter struct {
	log.TextFormatter
}

func (f *CustomFormatter) Format(entry *log.Entry) ([]byte, error) {
	if entry.Context != nil {
		if id, ok := entry.Context.Value(SurfaceIDKey).(string); ok {
			entry.Data["surface"] = id
		}
	}
	return f.TextFormatter.Format(entry)
}
