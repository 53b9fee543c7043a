// Package logging builds the process zap logger and adapts it to the
// key/value Logger interface the service and archive packages accept.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the minimum level and the encoder.
type Config struct {
	Level  string
	Format string
}

// Validate rejects unknown levels and formats.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", FormatJSON, FormatConsole:
		return nil
	default:
		return fmt.Errorf("unknown log format %q (want json or console)", c.Format)
	}
}

func parseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q: %w", level, err)
	}
	return lvl, nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == FormatConsole {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// New builds a logger writing to w, or to stderr when w is nil. CLI output
// owns stdout.
func New(cfg Config, w io.Writer) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lvl, _ := parseLevel(cfg.Level)
	if w == nil {
		w = os.Stderr
	}
	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.Lock(zapcore.AddSync(w)), lvl)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.DPanicLevel)), nil
}

// ServiceLogger adapts a zap logger to the Debug/Info/Warn/Error key/value
// contract.
type ServiceLogger struct {
	sugar *zap.SugaredLogger
}

// NewServiceLogger wraps logger. A nil logger discards everything.
func NewServiceLogger(logger *zap.Logger) *ServiceLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceLogger{sugar: logger.Sugar()}
}

// Named returns a logger whose entries carry the given name segment.
func (l *ServiceLogger) Named(name string) *ServiceLogger {
	return &ServiceLogger{sugar: l.sugar.Named(name)}
}

func (l *ServiceLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *ServiceLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *ServiceLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *ServiceLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// Sync flushes buffered entries.
func (l *ServiceLogger) Sync() error { return l.sugar.Sync() }
