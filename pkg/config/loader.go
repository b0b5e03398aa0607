package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option tweaks a single Load or Parse call.
type Option func(*options)

type options struct {
	prefix   string
	envFiles []string
}

// WithPrefix parses variables named prefix+tag, e.g. STOREFRONT_API_URL.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvFiles loads the given files before parsing. Unlike the default
// .env, explicitly named files must exist.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = append(o.envFiles, files...) }
}

type cache struct {
	mu     sync.Mutex
	values map[string]any
}

var (
	loaded           = &cache{values: make(map[string]any)}
	defaultEnvLoaded sync.Once
)

// Load parses the environment into v and caches the result per type and
// prefix. Later calls for the same type return the cached copy.
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	o := apply(opts)
	key := cacheKey[T](o.prefix)

	loaded.mu.Lock()
	defer loaded.mu.Unlock()

	if cached, ok := loaded.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	parsed, err := parse[T](o)
	if err != nil {
		return err
	}
	loaded.values[key] = parsed
	*v = parsed
	return nil
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Parse reads the environment into a fresh T without touching the cache.
func Parse[T any](opts ...Option) (T, error) {
	return parse[T](apply(opts))
}

// Reset drops every cached configuration. Intended for tests.
func Reset() {
	loaded.mu.Lock()
	defer loaded.mu.Unlock()
	clear(loaded.values)
}

func parse[T any](o options) (T, error) {
	var v T

	defaultEnvLoaded.Do(func() {
		// .env is optional
		_ = godotenv.Load()
	})
	if len(o.envFiles) > 0 {
		if err := godotenv.Load(o.envFiles...); err != nil {
			return v, errors.Join(ErrLoadingEnvFile, err)
		}
	}

	if err := env.ParseWithOptions(&v, env.Options{Prefix: o.prefix}); err != nil {
		return v, errors.Join(ErrParsingConfig, err)
	}
	return v, nil
}

func apply(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func cacheKey[T any](prefix string) string {
	return prefix + "|" + reflect.TypeFor[T]().String()
}
