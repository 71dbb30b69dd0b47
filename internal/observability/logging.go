package observability

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger handed to every catalog component.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
	Sync() error
}

// Field is a single structured log attribute.
type Field = zap.Field

var (
	String     = zap.String
	Strings    = zap.Strings
	Int        = zap.Int
	Int64      = zap.Int64
	Float64    = zap.Float64
	Bool       = zap.Bool
	Error      = zap.Error
	NamedError = zap.NamedError
	Any        = zap.Any
	Duration   = zap.Duration
	Time       = zap.Time
)

// LogConfig selects level, encoding and destination of the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is json or console.
	Format string
	// Output is stdout, stderr or a file path.
	Output string
}

// DefaultLogConfig returns JSON logging at info level on stdout.
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "json", Output: "stdout"}
}

type catalogLogger struct {
	z *zap.Logger
}

var (
	global   Logger
	globalMu sync.RWMutex
)

// NewLogger builds a zap backed Logger from cfg.
func NewLogger(cfg LogConfig) (Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, zap.NewAtomicLevelAt(level))
	return &catalogLogger{z: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}, nil
}

// NewLoggerFromZap adapts z. A nil z yields a no-op logger.
func NewLoggerFromZap(z *zap.Logger) Logger {
	if z == nil {
		return NopLogger()
	}
	return &catalogLogger{z: z}
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return &catalogLogger{z: zap.NewNop()}
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.FunctionKey = zapcore.OmitKey
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch output {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}

	//nolint:gosec // log files are read by log shippers
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log output %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	return zapcore.ParseLevel(s)
}

func (l *catalogLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *catalogLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, fields...) }
func (l *catalogLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fields...) }
func (l *catalogLogger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }
func (l *catalogLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, fields...) }
func (l *catalogLogger) Sync() error                       { return l.z.Sync() }

func (l *catalogLogger) With(fields ...Field) Logger {
	return &catalogLogger{z: l.z.With(fields...)}
}

// WithContext attaches the request, trace and span IDs carried by ctx.
// The receiver itself is returned when ctx carries none.
func (l *catalogLogger) WithContext(ctx context.Context) Logger {
	fields := requestMetaFrom(ctx).fields()
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// SetGlobalLogger replaces the process wide logger.
func SetGlobalLogger(logger Logger) {
	globalMu.Lock()
	global = logger
	globalMu.Unlock()
}

// GetGlobalLogger returns the process wide logger, falling back to a
// default JSON logger when none was set.
func GetGlobalLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if global != nil {
		return global
	}
	logger, err := NewLogger(DefaultLogConfig())
	if err != nil {
		return NopLogger()
	}
	return logger
}
