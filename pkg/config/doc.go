// Package config loads typed configuration from the environment.
//
// It wraps github.com/joho/godotenv, for optional .env files, and
// github.com/caarlos0/env/v11, for tag-driven parsing. Load caches each
// configuration type (per prefix) so repeated calls from different
// components parse the environment only once; Parse skips the cache.
//
//	type Config struct {
//		APIURL string `env:"API_URL" envDefault:"https://fabricadmin.onrender.com"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg, config.WithPrefix("STOREFRONT_")); err != nil {
//		return err
//	}
package config
