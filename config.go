package storefront

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fabricstore/storefront/pkg/config"
	"github.com/fabricstore/storefront/pkg/storage"
	"github.com/fabricstore/storefront/pkg/validator"
)

// EnvPrefix is prepended to every configuration variable.
const EnvPrefix = "STOREFRONT_"

// Storage backends.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// Config holds every runtime setting. Variable names below omit EnvPrefix.
type Config struct {
	APIURL      string        `env:"API_URL" envDefault:"https://fabricadmin.onrender.com"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
	UserAgent   string        `env:"USER_AGENT"`

	// RateLimit paces requests per second; zero disables pacing.
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"0"`
	RateBurst int     `env:"RATE_BURST" envDefault:"5"`

	CartCooldown     time.Duration `env:"CART_COOLDOWN" envDefault:"800ms"`
	CatalogCacheSize int           `env:"CATALOG_CACHE_SIZE" envDefault:"64"`
	CatalogTTL       time.Duration `env:"CATALOG_TTL" envDefault:"1m"`

	Storage        string        `env:"STORAGE" envDefault:"file"`
	StoragePath    string        `env:"STORAGE_PATH"`
	StorageSecret  string        `env:"STORAGE_SECRET"`
	Redis          storage.RedisConfig
	RedisNamespace string        `env:"REDIS_NAMESPACE" envDefault:"default"`
	RedisTTL       time.Duration `env:"REDIS_TTL" envDefault:"720h"`

	Env       string `env:"ENV" envDefault:"production"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads STOREFRONT_* variables, after loading .env and any extra
// env files.
func LoadConfig(opts ...config.Option) (Config, error) {
	opts = append([]config.Option{config.WithPrefix(EnvPrefix)}, opts...)
	cfg, err := config.Parse[Config](opts...)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	return validator.Apply(
		validator.Rule{
			Check: func() bool { return slices.Contains([]string{StorageMemory, StorageFile, StorageRedis}, c.Storage) },
			Error: validator.ValidationError{Field: "STORAGE", Message: "must be memory, file or redis"},
		},
		validator.Rule{
			Check: func() bool { return c.LogFormat == "json" || c.LogFormat == "text" },
			Error: validator.ValidationError{Field: "LOG_FORMAT", Message: "must be json or text"},
		},
		validator.Rule{
			Check: func() bool { return c.HTTPTimeout >= 0 && c.CartCooldown >= 0 && c.CatalogTTL >= 0 },
			Error: validator.ValidationError{Field: "DURATION", Message: "durations must not be negative"},
		},
		validator.Positive("CATALOG_CACHE_SIZE", c.CatalogCacheSize),
	)
}

// ResolvedStoragePath returns StoragePath or the per-user default
// <config dir>/storefront/session.yaml.
func (c Config) ResolvedStoragePath() (string, error) {
	if c.StoragePath != "" {
		return c.StoragePath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "storefront", "session.yaml"), nil
}
