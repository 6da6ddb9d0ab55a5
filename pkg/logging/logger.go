package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LevelTrace LogLevel = iota - 1
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[LogLevel]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    LogLevel  `json:"level"`
	Format   string    `json:"format"`    // "json" or "text"
	Output   string    `json:"output"`    // "stdout", "stderr", or "file"
	FilePath string    `json:"file_path"` // used when Output is "file"
	Writer   io.Writer `json:"-"`         // overrides Output; used by tests
}

// DefaultLogConfig returns sensible default logging configuration
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:    LevelInfo,
		Format:   "json",
		Output:   "stdout",
		FilePath: "/var/log/address-reconciliation/app.log",
	}
}

// Logger writes structured entries through slog. Request and job ids stored
// in the context are attached by the handler, so every entry logged through
// a ContextLogger carries them.
type Logger struct {
	level LogLevel
	sl    *slog.Logger
	file  *os.File
	once  sync.Once
}

// NewLogger creates a new structured logger
func NewLogger(config LogConfig) (*Logger, error) {
	l := &Logger{level: config.Level}

	var w io.Writer
	switch {
	case config.Writer != nil:
		w = config.Writer
	case config.Output == "stderr":
		w = os.Stderr
	case config.Output == "file":
		f, err := openLogFile(config.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to setup file logging: %w", err)
		}
		l.file = f
		w = f
	default:
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: toSlog(config.Level), ReplaceAttr: levelAttr}
	var h slog.Handler
	if config.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	l.sl = slog.New(contextHandler{h})
	return l, nil
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *Logger {
	l, _ := NewLogger(LogConfig{Level: LevelFatal + 1, Writer: io.Discard})
	return l
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required for file logging")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Close releases the log file, if any. It is safe to call more than once.
func (l *Logger) Close() error {
	var err error
	l.once.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// contextHandler stamps request_id and job_id from the record's context.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if id := JobID(ctx); id != "" {
		r.AddAttrs(slog.String("job_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// levelAttr renders TRACE and FATAL by name instead of slog's DEBUG-4/ERROR+4.
func levelAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lv, ok := a.Value.Any().(slog.Level); ok {
		switch {
		case lv < slog.LevelDebug:
			a.Value = slog.StringValue(levelNames[LevelTrace])
		case lv > slog.LevelError:
			a.Value = slog.StringValue(levelNames[LevelFatal])
		}
	}
	return a
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	jobIDKey
)

// WithRequestID stores the request id picked up by ContextLogger.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithJobID stores the job id picked up by ContextLogger.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobID returns the job id stored in ctx, if any.
func JobID(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey).(string)
	return id
}

// WithContext returns a logger with context information
func (l *Logger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: l, sl: l.sl, ctx: ctx}
}

// WithComponent returns a logger with component information
func (l *Logger) WithComponent(component string) *ComponentLogger {
	return &ComponentLogger{logger: l, sl: l.sl.With(slog.String("component", component))}
}

// ComponentLogger tags every entry with a component name.
type ComponentLogger struct {
	logger *Logger
	sl     *slog.Logger
}

// ContextLogger logs against a request context.
type ContextLogger struct {
	logger *Logger
	sl     *slog.Logger
	ctx    context.Context
}

// WithContext carries the component over to a context-aware logger.
func (cl *ComponentLogger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: cl.logger, sl: cl.sl, ctx: ctx}
}

func (l *Logger) Trace(msg string, fields ...Field) {
	l.emit(context.Background(), l.sl, LevelTrace, msg, nil, fields)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.emit(context.Background(), l.sl, LevelDebug, msg, nil, fields)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.emit(context.Background(), l.sl, LevelInfo, msg, nil, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.emit(context.Background(), l.sl, LevelWarn, msg, nil, fields)
}

func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.emit(context.Background(), l.sl, LevelError, msg, err, fields)
}

// Fatal logs at fatal level and exits
func (l *Logger) Fatal(msg string, err error, fields ...Field) {
	l.emit(context.Background(), l.sl, LevelFatal, msg, err, fields)
	l.Close()
	os.Exit(1)
}

func (cl *ComponentLogger) Debug(msg string, fields ...Field) {
	cl.logger.emit(context.Background(), cl.sl, LevelDebug, msg, nil, fields)
}

func (cl *ComponentLogger) Info(msg string, fields ...Field) {
	cl.logger.emit(context.Background(), cl.sl, LevelInfo, msg, nil, fields)
}

func (cl *ComponentLogger) Warn(msg string, fields ...Field) {
	cl.logger.emit(context.Background(), cl.sl, LevelWarn, msg, nil, fields)
}

func (cl *ComponentLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.emit(context.Background(), cl.sl, LevelError, msg, err, fields)
}

func (cl *ContextLogger) Debug(msg string, fields ...Field) {
	cl.logger.emit(cl.ctx, cl.sl, LevelDebug, msg, nil, fields)
}

func (cl *ContextLogger) Info(msg string, fields ...Field) {
	cl.logger.emit(cl.ctx, cl.sl, LevelInfo, msg, nil, fields)
}

func (cl *ContextLogger) Warn(msg string, fields ...Field) {
	cl.logger.emit(cl.ctx, cl.sl, LevelWarn, msg, nil, fields)
}

func (cl *ContextLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.emit(cl.ctx, cl.sl, LevelError, msg, err, fields)
}

func (l *Logger) emit(ctx context.Context, sl *slog.Logger, level LogLevel, msg string, err error, fields []Field) {
	if level < l.level {
		return
	}

	attrs := make([]slog.Attr, 0, len(fields)+2)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if level >= LevelWarn {
		// emit <- level method <- caller
		if _, file, line, ok := runtime.Caller(2); ok {
			attrs = append(attrs, slog.String("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line)))
		}
	}
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	sl.LogAttrs(ctx, toSlog(level), msg, attrs...)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value any
}

// Field constructors
func String(key, value string) Field                 { return Field{Key: key, Value: value} }
func Int(key string, value int) Field                { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field            { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field        { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field              { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }
func Time(key string, value time.Time) Field         { return Field{Key: key, Value: value} }
func Any(key string, value any) Field                { return Field{Key: key, Value: value} }

// ParseLevel maps a LOG_LEVEL value to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	want := strings.ToUpper(strings.TrimSpace(s))
	for lv, name := range levelNames {
		if name == want {
			return lv
		}
	}
	return LevelInfo
}

// toSlog keeps slog's spacing of 4 between levels.
func toSlog(level LogLevel) slog.Level {
	switch {
	case level <= LevelTrace:
		return slog.LevelDebug - 4
	case level >= LevelFatal:
		return slog.LevelError + 4
	}
	return slog.Level(4 * (int(level) - int(LevelInfo)))
}
