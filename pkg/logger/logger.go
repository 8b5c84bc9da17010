package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/architeacher/criteria/pkg/criteria"
	"github.com/architeacher/criteria/pkg/fingerprint"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	JSONLoggingFormat = "json"

	LogLevelDebug   = "debug"
	LogLevelInfo    = "info"
	LogLevelWarn    = "warn"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
	LogLevelDisable = "disabled"

	ContextKeyRequestID contextKey = "requestID"
)

type Logger struct {
	zerolog.Logger
}

func New(level, format string) Logger {
	return NewWithWriter(level, format, os.Stdout)
}

// NewWithWriter sets the level on the returned logger only, leaving the
// zerolog global level untouched since this package is embedded in callers.
func NewWithWriter(level, format string, w io.Writer) Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})

	if format == JSONLoggingFormat {
		logger = zerolog.New(w)
	}

	logger = logger.Level(ParseLevel(level)).With().Timestamp().Logger()

	return Logger{
		Logger: logger,
	}
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelWarn, LogLevelWarning:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelDisable:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func (l Logger) WithContext(ctx context.Context) zerolog.Logger {
	logger := l.Logger

	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok && requestID != "" {
		logger = logger.With().Str("request_id", requestID).Logger()
	}

	if key, ok := fingerprint.FromContext(ctx); ok {
		logger = logger.With().Str("fingerprint", key).Logger()
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return logger
}

// WithSnapshot adds the shape of a snapshot, never its values, which may
// carry user data.
func (l Logger) WithSnapshot(snap criteria.Snapshot) zerolog.Logger {
	return l.With().
		Int("predicates", len(snap.Predicates())).
		Int("groups", len(snap.Groups())).
		Int("be_empty", len(snap.Empty())).
		Int("be_not_empty", len(snap.NotEmpty())).
		Int("fields", len(snap.Fields())).
		Logger()
}
