package multipart

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
)

const (
	// NoLimit disables a size cap.
	NoLimit int64 = 0

	DefaultMaxRequestBytes int64 = 2 << 20
	DefaultFieldLimit      int64 = 1 << 20

	unlimitedKeyword = "unlimited"
)

// Config controls how requests are decoded. Hosts attach it to the request
// context with WithConfig; extraction falls back to DefaultConfig.
type Config struct {
	// MaxRequestBytes caps the whole body. NoLimit disables the cap.
	MaxRequestBytes int64
	// DefaultFieldLimit caps each field unless a `limit` tag overrides it.
	DefaultFieldLimit int64
	// Strict rejects unknown and duplicate fields instead of skipping them.
	Strict bool
}

// Option mutates Config prior to use.
type Option func(*Config)

// DefaultConfig returns the built-in limits.
func DefaultConfig() Config {
	return Config{
		MaxRequestBytes:   DefaultMaxRequestBytes,
		DefaultFieldLimit: DefaultFieldLimit,
	}
}

// NewConfig applies options on top of DefaultConfig.
func NewConfig(options ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.MaxRequestBytes < 0 {
		cfg.MaxRequestBytes = NoLimit
	}
	if cfg.DefaultFieldLimit < 0 {
		cfg.DefaultFieldLimit = NoLimit
	}
	return cfg
}

// WithMaxRequestBytes caps the request body size.
func WithMaxRequestBytes(limit int64) Option {
	return func(cfg *Config) {
		cfg.MaxRequestBytes = limit
	}
}

// WithDefaultFieldLimit caps fields without an explicit `limit` tag.
func WithDefaultFieldLimit(limit int64) Option {
	return func(cfg *Config) {
		cfg.DefaultFieldLimit = limit
	}
}

// WithStrict toggles rejection of unknown and duplicate fields.
func WithStrict(enabled bool) Option {
	return func(cfg *Config) {
		cfg.Strict = enabled
	}
}

type configKey struct{}

// WithConfig returns a context carrying cfg for later extractions.
func WithConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// ConfigFrom returns the Config stored in ctx or DefaultConfig.
func ConfigFrom(ctx context.Context) Config {
	if ctx == nil {
		return DefaultConfig()
	}
	if cfg, ok := ctx.Value(configKey{}).(Config); ok {
		return cfg
	}
	return DefaultConfig()
}

// ParseLimit converts a `limit` tag into bytes. It accepts Kubernetes style
// quantities ("512Ki", "2Mi", "1024") and the keyword "unlimited".
func ParseLimit(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, unlimitedKeyword) {
		return NoLimit, nil
	}
	quantity, err := resource.ParseQuantity(trimmed)
	if err != nil {
		return 0, fmt.Errorf("multipart: parse limit %q: %w", raw, err)
	}
	value, ok := quantity.AsInt64()
	if !ok || value < 0 {
		return 0, fmt.Errorf("multipart: limit %q is not a whole number of bytes", raw)
	}
	return value, nil
}
