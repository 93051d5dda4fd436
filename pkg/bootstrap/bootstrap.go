package bootstrap

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/abgdnv/catalogadmin/pkg/logger"
)

// NewLogger creates a new slog.Logger instance with the specified log level.
// Records carry the request and trace ids found in the context.
func NewLogger(level string) *slog.Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo is NewLogger writing JSON records to w.
func NewLoggerTo(w io.Writer, level string) *slog.Logger {
	logLevel := toLevel(level)
	loggerOpts := &slog.HandlerOptions{
		AddSource: logLevel == slog.LevelDebug,
		Level:     logLevel,
	}
	logHandler := logger.NewContextHandler(slog.NewJSONHandler(w, loggerOpts))
	return slog.New(logHandler)
}

// toLevel converts a string representation of a log level to slog.Level.
func toLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
