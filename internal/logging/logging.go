package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// wraps zap's sugared logger so packages share one key-value logging style
type Logger struct {
	*zap.SugaredLogger
}

// builds the CLI logger, debug level and console encoding when verbose
func NewLogger(verbose bool) *Logger {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.DisableStacktrace = true
	}

	base, err := cfg.Build()
	if err != nil {
		return NewNop()
	}
	return New(base)
}

func New(base *zap.Logger) *Logger {
	return &Logger{SugaredLogger: base.Sugar()}
}

// discards everything
func NewNop() *Logger {
	return New(zap.NewNop())
}

// returns l, or a no-op logger when l is nil
func OrNop(l *Logger) *Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}
