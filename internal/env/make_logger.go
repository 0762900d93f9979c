package env

import (
	"fmt"

	zap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MakeLogger builds the JSON production logger at the given level, e.g.
// "debug", "info" or "warn".
func MakeLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("Invalid log level %q: %w", level, err)
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(lvl)
	logConfig.Encoding = "json"

	return logConfig.Build()
}
