package logging

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. Production environments get JSON
// output at info level; everything else gets the console development format.
// The LOG_LEVEL value, when non-empty, overrides the level.
func NewLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(env) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}

	return cfg.Build()
}
