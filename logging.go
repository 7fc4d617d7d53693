package main

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. verbose forces debug level.
func NewLogger(cfg LoggingConfig, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if cfg.Development {
		config = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// cellsField logs a short list of cells, truncating long paths.
func cellsField(key string, cells []Cell) zap.Field {
	const keep = 3
	if len(cells) <= 2*keep {
		return zap.Stringers(key, cells)
	}
	preview := make([]Cell, 0, 2*keep)
	preview = append(preview, cells[:keep]...)
	preview = append(preview, cells[len(cells)-keep:]...)
	return zap.Stringers(key, preview)
}
