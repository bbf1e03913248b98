package main

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zlog is the process-wide structured logger. It defaults to a no-op so library
// callers that never run the CLI get silence instead of a nil panic.
var zlog *zap.Logger = zap.NewNop()

// InitLogger configures the global logger: JSON output in production, colored
// console output everywhere else. Level comes from LOG_LEVEL, default info.
func InitLogger(stage, levelRaw string) {
	level := zapcore.InfoLevel
	switch strings.ToLower(levelRaw) {
	case "debug":
		level = zapcore.DebugLevel
	case "info", "":
		level = zapcore.InfoLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	case "fatal":
		level = zapcore.FatalLevel
	}

	var config zap.Config
	if stage == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.InitialFields = map[string]interface{}{
			"service": "lazymint",
			"stage":   stage,
		}
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return
	}
	zlog = logger
}
