// Package logger wraps zap with the field conventions used across the
// classroom services.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys shared by every request-scoped log line.
const (
	FieldCorrelationID = "correlation_id"
	FieldUserID        = "user_id"
)

// Logger is a wrapper around zap.Logger.
type Logger struct {
	*zap.Logger
}

// New builds the JSON logger used outside development. Unknown levels fall
// back to info.
func New(level string) (*Logger, error) {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.SecondsDurationEncoder

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.EncoderConfig = enc
	cfg.Sampling = nil
	cfg.InitialFields = map[string]any{"service": "classroom"}

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: zl}, nil
}

// NewDevelopment creates a console logger with colored levels.
func NewDevelopment() (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: zl}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// With creates a child logger with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithRequest scopes a logger to one HTTP request. An anonymous request
// carries no user_id field.
func (l *Logger) WithRequest(correlationID, userID string) *Logger {
	fields := []zap.Field{zap.String(FieldCorrelationID, correlationID)}
	if userID != "" {
		fields = append(fields, zap.String(FieldUserID, userID))
	}
	return l.With(fields...)
}

// ParseLevel maps a LOG_LEVEL value onto a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
