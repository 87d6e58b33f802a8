package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if GRIMPEUR_CONFIG is set
//  3. env (prefix GRIMPEUR_)
func Load() (*Config, error) {
	const op = "config.Load"

	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("GRIMPEUR_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", op, err, ErrLoadConfig)
		}
	}

	// Environment variables: GRIMPEUR_ADDR, GRIMPEUR_QUEUE_SIZE, ...
	// Map env keys like GRIMPEUR_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("GRIMPEUR_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "grimpeur_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, ErrLoadConfig)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, ErrLoadConfig)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate fails fast so a misconfigured process never starts serving.
func (c *Config) validate() error {
	const op = "config.validate"
	switch {
	case c.Addr == "":
		return fmt.Errorf("%s: addr must not be empty: %w", op, ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%s: queue_size must be positive: %w", op, ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%s: worker_count must be positive: %w", op, ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%s: dedupe_size must be positive: %w", op, ErrInvalidConfig)
	case c.CacheSize <= 0:
		return fmt.Errorf("%s: cache_size must be positive: %w", op, ErrInvalidConfig)
	}
	if err := c.AnalysisConfig().Validate(); err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, ErrInvalidConfig)
	}
	return nil
}
