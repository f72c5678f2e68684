package kit

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger(service string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.InitialFields = map[string]any{"service": service}

	if os.Getenv("LOG_DEBUG") == "1" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, _ := cfg.Build()
	return l
}
