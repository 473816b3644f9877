package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if LEADSCORE_CONFIG is set
//  3. env (prefix LEADSCORE_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("LEADSCORE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: LEADSCORE_ADDR, LEADSCORE_WORKER_COUNT, ...
	// Map env keys like LEADSCORE_WORKER_COUNT -> worker_count (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("LEADSCORE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "leadscore_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Scorer != ScorerLogistic && c.Scorer != ScorerONNX:
		return fmt.Errorf("%w: scorer must be logistic or onnx, got %q", ErrInvalidConfig, c.Scorer)
	case c.Scorer == ScorerONNX && c.ModelPath == "":
		return fmt.Errorf("%w: model_path must be set for the onnx scorer", ErrInvalidConfig)
	case len(c.FeatureColumns) == 0:
		return fmt.Errorf("%w: feature_columns must not be empty", ErrInvalidConfig)
	case c.DefaultThreshold < 0 || c.DefaultThreshold > 1:
		return fmt.Errorf("%w: default_threshold must lie in [0,1], got %v", ErrInvalidConfig, c.DefaultThreshold)
	case c.RankingStore != StoreMemory && c.RankingStore != StoreRedis:
		return fmt.Errorf("%w: ranking_store must be memory or redis, got %q", ErrInvalidConfig, c.RankingStore)
	case c.RankingStore == StoreRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr must be set for the redis ranking store", ErrInvalidConfig)
	}
	return nil
}
