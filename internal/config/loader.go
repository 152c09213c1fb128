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

	"github.com/okian/ctfscores/internal/codec"
)

// Environment variable names.
const (
	EnvPrefix = "CTFSCORES_"
	EnvConfig = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CTFSCORES_CONFIG is set
//  3. env (prefix CTFSCORES_)
func Load(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CTFSCORES_PRINT_METRICS -> print_metrics; underscores are kept to
	// match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	f, err := codec.ParseFormat(c.Format)
	if err != nil {
		return fmt.Errorf("%w: format: %w", ErrInvalidConfig, err)
	}
	c.Format = string(f)
	if c.InputFormat != "" {
		f, err := codec.ParseFormat(c.InputFormat)
		if err != nil {
			return fmt.Errorf("%w: input_format: %w", ErrInvalidConfig, err)
		}
		c.InputFormat = string(f)
	}
	switch {
	case c.Events < 0:
		return fmt.Errorf("%w: events must not be negative", ErrInvalidConfig)
	case c.Challenges < 0:
		return fmt.Errorf("%w: challenges must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SourceFormat returns the format documents are read in.
func (c *Config) SourceFormat() string {
	if c.InputFormat != "" {
		return c.InputFormat
	}
	return c.Format
}
