// Package log provides a structured logging system for Rune services.
package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Fields is a map of field names to values.
type Fields map[string]interface{}

// Field is a single structured key/value pair passed to the Field-based
// logging methods.
type Field struct {
	Key   string
	Value interface{}
}

// Context keys for propagating logging context
const (
	RequestIDKey = "request_id"
	TraceIDKey   = "trace_id"
	SpanIDKey    = "span_id"
	ComponentKey = "component"
	OperationKey = "operation"
)

// Entry represents a single log entry.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
	Error     error
}

// Logger defines the core logging interface for Rune components.
type Logger interface {
	// Standard logging methods with structured context (Field-based API)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// printf-style logging methods: msg is a format string for args
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
	Fatalf(msg string, args ...interface{})

	// Field creation methods (for backward compatibility)
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger

	// With adds multiple fields to the logger (for new Field-based API)
	With(fields ...Field) Logger

	// WithContext adds request context to the Logger
	WithContext(ctx context.Context) Logger

	// WithComponent tags logs with a component name
	WithComponent(component string) Logger

	// SetLevel sets the minimum log level
	SetLevel(level Level)

	// GetLevel returns the current minimum log level
	GetLevel() Level
}

// Formatter defines the interface for formatting log entries.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output defines the interface for log outputs.
type Output interface {
	Write(entry *Entry, formattedEntry []byte) error
	Close() error
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*BaseLogger)

// BaseLogger implements the Logger interface.
type BaseLogger struct {
	level      Level
	fields     Fields
	formatter  Formatter
	outputs    []Output
	slogLogger *slog.Logger
}

// Hooks are no longer used; prefer slog handler wrappers for cross-cutting concerns.

// ContextExtractor extracts logging context from a context.Context.
func ContextExtractor(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}

	fields := Fields{}

	// Extract standard context values
	if v := ctx.Value(RequestIDKey); v != nil {
		fields[RequestIDKey] = v
	}
	if v := ctx.Value(TraceIDKey); v != nil {
		fields[TraceIDKey] = v
	}
	if v := ctx.Value(SpanIDKey); v != nil {
		fields[SpanIDKey] = v
	}
	if v := ctx.Value(ComponentKey); v != nil {
		fields[ComponentKey] = v
	}
	if v := ctx.Value(OperationKey); v != nil {
		fields[OperationKey] = v
	}

	// Extract custom field keys (injected by ContextInjector)
	// We need to scan all context keys to find our custom fieldKeyType keys
	// This is a limitation of Go's context package - we can't enumerate all keys
	// For now, we'll rely on the standard keys above and any custom extraction logic

	return fields
}

// ContextInjector removed; prefer passing fields with Logger.With().
// FromContext removed; pass Logger explicitly via dependency injection.
// Deprecated context helpers removed.
// Global default logger removed; construct and pass Logger instances explicitly.
// Global helper functions removed; prefer using a concrete Logger instance.
// NewLogger creates a new logger with the given options.
func NewLogger(options ...LoggerOption) Logger {
	logger := &BaseLogger{
		level:     InfoLevel,
		fields:    Fields{},
		formatter: &JSONFormatter{},
		outputs:   []Output{},
	}

	// Apply options
	for _, option := range options {
		option(logger)
	}

	// Add default output if none specified
	if len(logger.outputs) == 0 {
		logger.outputs = append(logger.outputs, &ConsoleOutput{})
	}

	// Initialize slog with our bridge handler
	logger.slogLogger = slog.New(newBridgeHandler(logger))

	return logger
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) {
		l.level = level
	}
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(l *BaseLogger) {
		l.formatter = formatter
	}
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(l *BaseLogger) {
		l.outputs = append(l.outputs, output)
	}
}

// JSONFormatter formats a log Entry as a single line of JSON.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	m := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		m[k] = v
	}
	m["level"] = entry.Level.String()
	m["message"] = entry.Message
	m["timestamp"] = entry.Timestamp
	if entry.Caller != "" {
		m["caller"] = entry.Caller
	}
	if entry.Error != nil {
		m["error"] = entry.Error.Error()
	}
	return json.Marshal(m)
}

// ConsoleOutput writes formatted log entries to stdout.
type ConsoleOutput struct{}

// Write implements Output.
func (o *ConsoleOutput) Write(_ *Entry, formattedEntry []byte) error {
	_, err := os.Stdout.Write(append(formattedEntry, '\n'))
	return err
}

// Close implements Output.
func (o *ConsoleOutput) Close() error {
	return nil
}

// clone returns a copy of the logger with its own fields map.
func (l *BaseLogger) clone() *BaseLogger {
	fields := make(Fields, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &BaseLogger{
		level:      l.level,
		fields:     fields,
		formatter:  l.formatter,
		outputs:    l.outputs,
		slogLogger: l.slogLogger,
	}
}

// Debug logs a message at DebugLevel with structured fields.
func (l *BaseLogger) Debug(msg string, fields ...Field) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(DebugLevel), msg, attrsFromFieldSlice(fields)...)
}

// Info logs a message at InfoLevel with structured fields.
func (l *BaseLogger) Info(msg string, fields ...Field) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(InfoLevel), msg, attrsFromFieldSlice(fields)...)
}

// Warn logs a message at WarnLevel with structured fields.
func (l *BaseLogger) Warn(msg string, fields ...Field) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(WarnLevel), msg, attrsFromFieldSlice(fields)...)
}

// Error logs a message at ErrorLevel with structured fields.
func (l *BaseLogger) Error(msg string, fields ...Field) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(ErrorLevel), msg, attrsFromFieldSlice(fields)...)
}

// Fatal logs a message at FatalLevel with structured fields and exits.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(FatalLevel), msg, attrsFromFieldSlice(fields)...)
	os.Exit(1)
}

// Debugf logs a printf-formatted message at DebugLevel.
func (l *BaseLogger) Debugf(msg string, args ...interface{}) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(DebugLevel), fmt.Sprintf(msg, args...))
}

// Infof logs a printf-formatted message at InfoLevel.
func (l *BaseLogger) Infof(msg string, args ...interface{}) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(InfoLevel), fmt.Sprintf(msg, args...))
}

// Warnf logs a printf-formatted message at WarnLevel.
func (l *BaseLogger) Warnf(msg string, args ...interface{}) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(WarnLevel), fmt.Sprintf(msg, args...))
}

// Errorf logs a printf-formatted message at ErrorLevel.
func (l *BaseLogger) Errorf(msg string, args ...interface{}) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(ErrorLevel), fmt.Sprintf(msg, args...))
}

// Fatalf logs a printf-formatted message at FatalLevel and exits.
func (l *BaseLogger) Fatalf(msg string, args ...interface{}) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(FatalLevel), fmt.Sprintf(msg, args...))
	os.Exit(1)
}

// WithField returns a copy of the logger with an additional field.
func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	nl := l.clone()
	nl.fields[key] = value
	nl.slogLogger = l.slogLogger.With(key, value)
	return nl
}

// WithFields returns a copy of the logger with additional fields.
func (l *BaseLogger) WithFields(fields Fields) Logger {
	nl := l.clone()
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		nl.fields[k] = v
		args = append(args, k, v)
	}
	nl.slogLogger = l.slogLogger.With(args...)
	return nl
}

// WithError returns a copy of the logger with an error field attached.
func (l *BaseLogger) WithError(err error) Logger {
	return l.WithField("error", err)
}

// With returns a copy of the logger with additional Field-based fields.
func (l *BaseLogger) With(fields ...Field) Logger {
	nl := l.clone()
	for _, f := range fields {
		nl.fields[f.Key] = f.Value
	}
	nl.slogLogger = l.slogLogger.With(attrsToAny(attrsFromFieldSlice(fields))...)
	return nl
}

// WithContext returns a copy of the logger enriched with fields extracted
// from the given context.
func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(ContextExtractor(ctx))
}

// WithComponent tags the logger with a component name.
func (l *BaseLogger) WithComponent(component string) Logger {
	return l.WithField(ComponentKey, component)
}

// SetLevel sets the minimum log level.
func (l *BaseLogger) SetLevel(level Level) {
	l.level = level
}

// GetLevel returns the current minimum log level.
func (l *BaseLogger) GetLevel() Level {
	return l.level
}
