package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	portal "github.com/goliatone/go-portal"
)

// ZapLogger adapts a zap sugared logger to the Logger interface used
// across the application.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ portal.Logger = (*ZapLogger)(nil)

// New builds a logger. Debug mode gets the human readable development
// encoder, otherwise JSON output at info level.
func New(name string, debug bool) (*ZapLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &ZapLogger{
		sugar: base.Sugar().Named(name),
	}, nil
}

func (l *ZapLogger) Debug(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *ZapLogger) Info(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Warn(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Error(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Named returns a child logger with the given name segment appended.
func (l *ZapLogger) Named(name string) *ZapLogger {
	return &ZapLogger{sugar: l.sugar.Named(name)}
}

// Sync flushes buffered log entries. Call it on shutdown.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
