package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricstore/storefront/pkg/config"
)

type apiConfig struct {
	URL      string        `env:"API_URL" envDefault:"https://example.com"`
	Timeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
	Cooldown time.Duration `env:"CART_COOLDOWN" envDefault:"800ms"`
}

type requiredConfig struct {
	Secret string `env:"REQUIRED_SECRET,required"`
}

type cachedConfig struct {
	Value string `env:"CACHED_VALUE" envDefault:"first"`
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse[apiConfig](config.WithPrefix("CFGTEST_DEFAULTS_"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", cfg.URL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 800*time.Millisecond, cfg.Cooldown)
}

func TestParse_Prefix(t *testing.T) {
	t.Setenv("CFGTEST_API_URL", "http://localhost:8000")
	t.Setenv("CFGTEST_CART_COOLDOWN", "2s")

	cfg, err := config.Parse[apiConfig](config.WithPrefix("CFGTEST_"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.URL)
	assert.Equal(t, 2*time.Second, cfg.Cooldown)
}

func TestParse_MissingRequired(t *testing.T) {
	_, err := config.Parse[requiredConfig](config.WithPrefix("CFGTEST_MISSING_"))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestParse_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFGFILE_REQUIRED_SECRET=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CFGFILE_REQUIRED_SECRET") })

	cfg, err := config.Parse[requiredConfig](config.WithPrefix("CFGFILE_"), config.WithEnvFiles(path))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Secret)

	_, err = config.Parse[requiredConfig](config.WithEnvFiles(filepath.Join(t.TempDir(), "missing.env")))
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}

func TestLoad_Caches(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	var first cachedConfig
	require.NoError(t, config.Load(&first, config.WithPrefix("CFGCACHE_")))
	assert.Equal(t, "first", first.Value)

	t.Setenv("CFGCACHE_CACHED_VALUE", "second")

	var again cachedConfig
	require.NoError(t, config.Load(&again, config.WithPrefix("CFGCACHE_")))
	assert.Equal(t, "first", again.Value, "cached copy wins")

	config.Reset()
	var fresh cachedConfig
	require.NoError(t, config.Load(&fresh, config.WithPrefix("CFGCACHE_")))
	assert.Equal(t, "second", fresh.Value)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *apiConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	assert.Panics(t, func() { config.MustLoad(cfg) })
}
