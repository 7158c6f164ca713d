// Package logging configures the process-wide zap logger used for diagnostics.
// User-facing progress output stays on stdout via fmt; zap writes to stderr.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds a logger and installs it as zap's global. Without debug only
// warnings and errors are emitted. The returned function flushes buffers.
func Init(debug bool) (func(), error) {
	logger, err := New(debug)
	if err != nil {
		return func() {}, err
	}
	undo := zap.ReplaceGlobals(logger)
	return func() {
		_ = logger.Sync()
		undo()
	}, nil
}

// New returns a JSON logger on stderr.
func New(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	config.DisableStacktrace = !debug
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("vesselvision"), nil
}
