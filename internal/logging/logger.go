// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger, tagged with the deployment environment.
func New(development bool, environment string) (*zap.Logger, error) {
	build := NewProduction
	if development {
		build = NewDevelopment
	}
	logger, err := build()
	if err != nil {
		return nil, err
	}
	if environment != "" {
		logger = logger.With(zap.String("env", environment))
	}
	return logger, nil
}

// NewDevelopment returns a colored console logger at debug level.
func NewDevelopment() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build dev logger: %w", err)
	}
	return logger, nil
}

// NewProduction returns a JSON logger at info level.
func NewProduction() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}
