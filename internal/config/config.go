// Package config loads service settings from the environment, optionally
// layered over a YAML file named by CONFIG_PATH.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port            string        `yaml:"port" env:"PORT" env-default:"8080"`
	DatabaseURL     string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL        string        `yaml:"redis_url" env:"REDIS_URL"`
	RedisTTL        time.Duration `yaml:"redis_ttl" env:"REDIS_TTL" env-default:"30s"`
	PebbleDir       string        `yaml:"pebble_dir" env:"PEBBLE_DIR"`
	KafkaBrokers    string        `yaml:"kafka_brokers" env:"KAFKA_BROKERS"`
	KafkaTopic      string        `yaml:"kafka_topic" env:"KAFKA_TOPIC" env-default:"trade-history"`
	AutoConvert     bool          `yaml:"auto_convert_marketable" env:"AUTO_CONVERT_MARKETABLE" env-default:"false"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// Load reads the config file at CONFIG_PATH if set, then the environment.
func Load() (*Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return &cfg, nil
}

// Brokers splits KafkaBrokers on commas, dropping blanks.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
