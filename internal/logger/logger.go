package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Service is attached to every production log line
const Service = "intrinsic"

// New creates a zap logger. Development mode logs colored console output at
// debug level; production logs JSON at info level with ISO8601 timestamps.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.InitialFields = map[string]any{"service": Service}
	}

	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}

// ForCLI returns a logger for one-shot commands: quiet unless debug is set.
func ForCLI(debug bool) *zap.Logger {
	if !debug {
		return zap.NewNop()
	}
	return Must(true)
}
