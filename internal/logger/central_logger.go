package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/pifon/rmsmeter/internal/errors"
)

const (
	// traceLevelValue is slog.Level for TRACE level (below Debug which is -4)
	traceLevelValue = slog.Level(-8)

	// floatPrecisionRatio rounds floats to 3 decimal places in log output
	floatPrecisionRatio = 1000.0
)

// Global logger instance
var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal sets the global CentralLogger instance.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = cl
}

// Global returns the global CentralLogger instance.
// Without SetGlobal it returns an info-level stderr logger.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger != nil {
		return globalLogger
	}

	cfg := &LoggingConfig{}
	applyConfigDefaults(cfg)
	globalLogger = &CentralLogger{
		config:       cfg,
		timezone:     time.Local,
		console:      os.Stderr,
		moduleLevels: make(map[string]slog.Level),
		baseHandler:  newTextHandler(os.Stderr, slog.LevelDebug, time.Local),
	}

	return globalLogger
}

// loggerContextKey is a typed key for context values
type loggerContextKey struct{ name string }

// TraceIDKey is the context key for trace IDs. Use WithTraceID() to set values.
var TraceIDKey = loggerContextKey{"trace_id"}

// WithTraceID returns a new context with the trace ID set
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// Option customizes a CentralLogger
type Option func(*CentralLogger)

// WithConsoleWriter redirects console output, mainly for tests.
func WithConsoleWriter(w io.Writer) Option {
	return func(cl *CentralLogger) {
		if w != nil {
			cl.console = w
		}
	}
}

// CentralLogger manages module-aware logging with console and file routing
type CentralLogger struct {
	config       *LoggingConfig
	timezone     *time.Location
	console      io.Writer
	baseHandler  slog.Handler
	mainWriter   *BufferedFileWriter
	moduleLevels map[string]slog.Level
	mu           sync.RWMutex
}

// NewCentralLogger creates a centralized logger with module routing
func NewCentralLogger(cfg *LoggingConfig, opts ...Option) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}

	applyConfigDefaults(cfg)

	var tz *time.Location
	switch cfg.Timezone {
	case "", "Local":
		tz = time.Local
	default:
		var err error
		tz, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
		}
	}

	cl := &CentralLogger{
		config:       cfg,
		timezone:     tz,
		console:      os.Stderr,
		moduleLevels: make(map[string]slog.Level),
	}
	for _, opt := range opts {
		opt(cl)
	}

	for module, levelStr := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(levelStr)
	}

	if err := cl.createBaseHandler(); err != nil {
		return nil, fmt.Errorf("failed to create base handler: %w", err)
	}

	return cl, nil
}

// createBaseHandler creates the handler shared by all modules.
// Handlers accept everything down to trace; moduleLogger applies the module level.
func (cl *CentralLogger) createBaseHandler() error {
	var handlers []slog.Handler

	if cl.config.Console != nil && cl.config.Console.Enabled {
		handlers = append(handlers, newTextHandler(cl.console, traceLevelValue, cl.timezone))
	}

	if cl.config.FileOutput != nil && cl.config.FileOutput.Enabled {
		if err := ensureFileDirectory(cl.config.FileOutput.Path); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		writer, err := NewBufferedFileWriter(cl.config.FileOutput.Path)
		if err != nil {
			return fmt.Errorf("failed to create log writer: %w", err)
		}
		cl.mainWriter = writer

		handlers = append(handlers, slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: parseLogLevel(cl.config.FileOutput.Level),
		}))
	}

	switch len(handlers) {
	case 0:
		cl.baseHandler = slog.DiscardHandler
	case 1:
		cl.baseHandler = handlers[0]
	default:
		cl.baseHandler = &fanoutHandler{handlers: handlers}
	}

	return nil
}

// Module returns a logger scoped to a specific module
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	return &moduleLogger{
		module: name,
		logger: slog.New(cl.baseHandler),
		level:  cl.moduleLevelLocked(name),
	}
}

// SetModuleLevel overrides the level of a module for loggers created afterwards.
func (cl *CentralLogger) SetModuleLevel(module string, level LogLevel) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.moduleLevels[module] = parseSlogLevel(level)
}

// moduleLevelLocked resolves the level of a module, walking up dotted parents
func (cl *CentralLogger) moduleLevelLocked(module string) slog.Level {
	for name := module; name != ""; name = parentModule(name) {
		if level, ok := cl.moduleLevels[name]; ok {
			return level
		}
	}
	if cl.config.Console != nil && cl.config.Console.Enabled {
		return parseLogLevel(cl.config.Console.Level)
	}
	return parseLogLevel(cl.config.DefaultLevel)
}

// parentModule returns "a.b" for "a.b.c" and "" for "a"
func parentModule(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return ""
}

// Close flushes and closes the log file, if any
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.mainWriter == nil {
		return nil
	}
	err := cl.mainWriter.Close()
	cl.mainWriter = nil
	if err != nil {
		return fmt.Errorf("failed to close main log writer: %w", err)
	}
	return nil
}

// Flush writes buffered file output to the OS
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	if cl.mainWriter == nil {
		return nil
	}
	if err := cl.mainWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush main log writer: %w", err)
	}
	return nil
}

// NewSlogLogger returns a Logger writing text records to w at the given level.
// Useful in tests.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if tz == nil {
		tz = time.UTC
	}
	slogLevel := parseSlogLevel(level)
	return &moduleLogger{
		logger: slog.New(newTextHandler(w, slogLevel, tz)),
		level:  slogLevel,
	}
}

// ensureFileDirectory creates the directory for a file path if it doesn't exist
func ensureFileDirectory(filePath string) error {
	if filePath == "" {
		return nil
	}

	dir := filepath.Dir(filePath)
	if dir == "." || dir == filePath {
		return nil
	}

	const dirPermissions = 0o700
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}

// parseLogLevel converts string level to slog.Level
func parseLogLevel(level string) slog.Level {
	return parseSlogLevel(LogLevel(level))
}

// parseSlogLevel converts LogLevel to slog.Level, defaulting to info
func parseSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelTrace:
		return traceLevelValue
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newTextHandler creates the console handler. Time is dropped and the
// trace level gets its own label.
func newTextHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{}
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= traceLevelValue {
					return slog.String(slog.LevelKey, "TRACE")
				}
			}
			if t, ok := a.Value.Any().(time.Time); ok {
				return slog.Time(a.Key, t.In(tz))
			}
			return a
		},
	})
}

// fanoutHandler sends each record to every handler that accepts its level
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(h.handlers, func(hh slog.Handler) bool {
		return hh.Enabled(ctx, level)
	})
}

//nolint:gocritic // slog.Handler interface requires record by value
func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, record.Level) {
			continue
		}
		if err := hh.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// moduleLogger implements Logger for a specific module
type moduleLogger struct {
	module string
	logger *slog.Logger
	level  slog.Level
	fields []Field
}

// Module creates a sub-module logger with its own copy of the fields.
func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}

	module := name
	if m.module != "" {
		module = m.module + "." + name
	}

	return &moduleLogger{
		module: module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Clone(m.fields),
	}
}

// Trace logs a trace message (most verbose level)
func (m *moduleLogger) Trace(msg string, fields ...Field) {
	m.log(traceLevelValue, msg, fields...)
}

// Debug logs a debug message
func (m *moduleLogger) Debug(msg string, fields ...Field) {
	m.log(slog.LevelDebug, msg, fields...)
}

// Info logs an info message
func (m *moduleLogger) Info(msg string, fields ...Field) {
	m.log(slog.LevelInfo, msg, fields...)
}

// Warn logs a warning message
func (m *moduleLogger) Warn(msg string, fields ...Field) {
	m.log(slog.LevelWarn, msg, fields...)
}

// Error logs an error message
func (m *moduleLogger) Error(msg string, fields ...Field) {
	m.log(slog.LevelError, msg, fields...)
}

// Log logs a message with explicit level
func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.log(parseSlogLevel(level), msg, fields...)
}

// Enabled reports whether level passes the module level
func (m *moduleLogger) Enabled(level LogLevel) bool {
	return m != nil && parseSlogLevel(level) >= m.level
}

// With returns a new logger with accumulated fields
func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}

	return &moduleLogger{
		module: m.module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Concat(m.fields, fields),
	}
}

// WithContext returns a logger carrying the context trace ID, if any
func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if m == nil {
		return nil
	}
	if ctx == nil {
		return m
	}

	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok || traceID == "" {
		return m
	}

	return m.With(String(traceIDKey, traceID))
}

// Flush is a no-op; the CentralLogger owns the file handles
func (m *moduleLogger) Flush() error {
	return nil
}

func (m *moduleLogger) log(level slog.Level, msg string, fields ...Field) {
	if m == nil || level < m.level {
		return
	}

	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for i := range m.fields {
		attrs = append(attrs, fieldToAttr(m.fields[i]))
	}
	for i := range fields {
		attrs = append(attrs, fieldToAttr(fields[i]))
	}

	m.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// roundFloat rounds a float64 to 3 decimal places
func roundFloat(val float64) float64 {
	return math.Round(val*floatPrecisionRatio) / floatPrecisionRatio
}

// fieldToAttr converts Field to slog.Attr
func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case uint64:
		return slog.Uint64(f.Key, v)
	case float32:
		return slog.Float64(f.Key, roundFloat(float64(v)))
	case float64:
		return slog.Float64(f.Key, roundFloat(v))
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		return slog.String(f.Key, v.Round(time.Microsecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}
