package infra

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level string `default:"info"`
}

func ParseLogConfig() *LogConfig {
	cfg := LogConfig{}
	envconfig.MustProcess("VALUES_LOG", &cfg)
	return &cfg
}

// NewLogger builds a JSON production logger at the configured level.
func NewLogger(cfg *LogConfig, name string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.Named(name), nil
}
