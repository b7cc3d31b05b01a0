// Package logging builds the service's zap logger from configuration.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/config"
	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger writing to stdout and, when cfg.File is set,
// to a size-rotated log file.
func New(cfg config.LoggingConfig) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoder, err := newEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, newWriteSyncer(cfg.File), level)
	return zap.New(core, zap.AddCaller()).Sugar(), nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	switch strings.ToLower(format) {
	case "", "json":
		return zapcore.NewJSONEncoder(encoderConfig), nil
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}

func newWriteSyncer(file string) zapcore.WriteSyncer {
	stdout := zapcore.Lock(os.Stdout)
	if file == "" {
		return stdout
	}
	rotating := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    60, // megabytes
		MaxBackups: 6,
		MaxAge:     60, // days
	}
	return zapcore.NewMultiWriteSyncer(stdout, zapcore.AddSync(rotating))
}
