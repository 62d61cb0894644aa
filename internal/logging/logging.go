package logging

import (
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func New(level string, development bool) (*zap.Logger, func(), error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil && !isIgnorableSyncError(err) {
			log.Printf("failed to sync logger: %v", err)
		}
	}
	return logger, cleanup, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "inappropriate ioctl for device") ||
		strings.Contains(msg, "invalid argument")
}
