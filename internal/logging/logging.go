// Package logging builds the process-wide zap logger every long-lived
// component takes a reference to.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the constructed logger.
type Options struct {
	// Level is one of zap's level names: "debug", "info", "warn", "error".
	// Empty defaults to "info".
	Level string
	// Development enables human-readable console output instead of JSON,
	// for running the core off a terminal during development.
	Development bool
}

// New builds a *zap.Logger from opts. Callers are expected to defer
// logger.Sync() in main.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("logging: invalid level %q: %w", opts.Level, err)
		}
	}

	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}
