package config

import (
	"os"

	"github.com/kelseyhightower/envconfig"
)

const (
	defaultRedisAddr   = "localhost:6379"
	defaultRedisStream = "carbon_emissions"
)

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB"`
	Stream   string `envconfig:"REDIS_STREAM"`
}

// RedisSettings layers the environment over the redis section of the config
// file. A variable that does not parse leaves the file value in place.
func (c *Config) RedisSettings() RedisConfig {
	return resolveRedis(RedisConfig{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Stream:   c.Redis.Stream,
	})
}

// resolveRedis overrides base with any REDIS_* variables that are set.
func resolveRedis(base RedisConfig) RedisConfig {
	cfg := base
	if err := envconfig.Process("", &cfg); err != nil {
		cfg = RedisConfig{
			Addr:     getEnv("REDIS_ADDR", base.Addr),
			Password: getEnv("REDIS_PASSWORD", base.Password),
			DB:       base.DB,
			Stream:   getEnv("REDIS_STREAM", base.Stream),
		}
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultRedisAddr
	}
	if cfg.Stream == "" {
		cfg.Stream = defaultRedisStream
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
