// Package observability builds the zap loggers used by the stacker binaries
// and the per-run child loggers the executor writes through.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/stacker/internal/config"
)

// ServiceName is attached to every logger NewLogger builds.
const ServiceName = "stacker"

// NewLogger builds a logger from cfg. The json format uses zap's production
// config and console uses the development config with coloured levels.
//
// Precondition: cfg.Level is one of "debug", "info", "warn", "error"; cfg.Format is "json" or "console".
// Postcondition: Returns a logger carrying the service field, or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("observability.NewLogger: level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("observability.NewLogger: unknown format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.InitialFields = map[string]any{"service": ServiceName}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("observability.NewLogger: %w", err)
	}
	return logger, nil
}

// OrNop returns logger, or a no-op logger when logger is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// ForRun returns a child of logger tagged with the run's ID and scenario.
func ForRun(logger *zap.Logger, runID, scenario string) *zap.Logger {
	return OrNop(logger).With(zap.String("run_id", runID), zap.String("scenario", scenario))
}
