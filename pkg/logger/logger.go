package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log level constants
const (
	LogLevelDebug = slog.LevelDebug
	LogLevelInfo  = slog.LevelInfo
	LogLevelWarn  = slog.LevelWarn
	LogLevelError = slog.LevelError
)

const (
	envLogFormat = "KENES_LOG_FORMAT"
	envLogLevel  = "KENES_LOG_LEVEL"
)

type Logger struct {
	*slog.Logger
}

// LogFormat represents the logging format
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

func New() *Logger {
	return NewWithFormat(FormatJSON, slog.LevelInfo)
}

func NewWithLevel(level slog.Level) *Logger {
	return NewWithFormat(FormatJSON, level)
}

func NewWithFormat(format LogFormat, level slog.Level) *Logger {
	return NewWithWriter(os.Stderr, format, level)
}

// NewWithWriter creates a logger writing to w. The SDK logs to stderr by
// default so that host applications keep stdout for themselves.
func NewWithWriter(w io.Writer, format LogFormat, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Nop returns a logger that discards everything. Used when the host
// application does not pass a logger.
func Nop() *Logger {
	return NewWithWriter(io.Discard, FormatText, slog.LevelError+1)
}

// NewFromConfig creates a logger based on environment configuration
func NewFromConfig() *Logger {
	return NewFromSettings(os.Getenv(envLogFormat), os.Getenv(envLogLevel))
}

// NewFromSettings creates a logger from textual format and level values,
// falling back to JSON at info level for anything unrecognised.
func NewFromSettings(format, level string) *Logger {
	return NewWithFormat(ParseFormat(format), ParseLevel(level))
}

// ParseFormat maps a format name to a LogFormat
func ParseFormat(value string) LogFormat {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "text", "human", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

// ParseLevel maps a level name to a slog.Level
func ParseLevel(value string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}
