// Package logger builds the process logger from configuration.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Formats accepted by Config.Format.
const (
	FormatJSON  = "json"
	FormatHuman = "human"
)

// Config contains configuration for the logger.
type Config struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug|info|warn|error
	Format string `mapstructure:"format" yaml:"format"` // json|human
	File   string `mapstructure:"file" yaml:"file"`     // optional, in addition to stderr
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatHuman}
}

// New builds a logger. Logs always go to stderr so that command output on
// stdout stays machine-readable.
func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	switch cfg.Format {
	case FormatJSON:
		zc = zap.NewProductionConfig()
	case FormatHuman, "":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	level := zap.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// Sampling would drop repeated sandbox console lines.
	zc.Sampling = nil

	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

// Install builds a logger and makes it the zap global, returning a
// function that flushes and restores the previous global.
func Install(cfg Config) (*zap.Logger, func(), error) {
	l, err := New(cfg)
	if err != nil {
		return nil, nil, err
	}
	restore := zap.ReplaceGlobals(l)
	return l, func() {
		_ = l.Sync()
		restore()
	}, nil
}
