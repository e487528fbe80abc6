package ldap

import (
	"time"

	"go.uber.org/zap"
)

// Logger is the logging interface used throughout the LDAP layer.
// Fields are structured key/value pairs; callers must never place
// passwords or bind secrets in them.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// ZapLogger adapts a *zap.Logger to the Logger interface.
type ZapLogger struct {
	log *zap.Logger
}

// NewZapLogger wraps a zap logger for use by the LDAP layer.
func NewZapLogger(log *zap.Logger) *ZapLogger {
	return &ZapLogger{log: log.Named("ldap")}
}

func (l *ZapLogger) Debug(msg string, fields map[string]any) {
	l.log.Debug(msg, zapFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]any) {
	l.log.Info(msg, zapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]any) {
	l.log.Warn(msg, zapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields map[string]any) {
	l.log.Error(msg, zapFields(fields)...)
}

func zapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}

// NopLogger discards all log output. It is the default for components
// constructed without an explicit logger and is used by tests.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]any) {}
func (NopLogger) Info(string, map[string]any)  {}
func (NopLogger) Warn(string, map[string]any)  {}
func (NopLogger) Error(string, map[string]any) {}

// LogOperation runs op and logs its outcome with duration under the
// given operation name.
func LogOperation(log Logger, operation string, fields map[string]any, op func() error) error {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["operation"] = operation

	start := time.Now()
	log.Debug("Starting operation", fields)

	err := op()

	fields["duration_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		log.Error("Operation failed", fields)
		return err
	}

	log.Debug("Operation completed", fields)
	return nil
}
