// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Quiz    QuizConfig    `toml:"quiz"`
	Catalog CatalogConfig `toml:"catalog"`
	Stats   StatsConfig   `toml:"stats"`
}

// QuizConfig maps round-related settings.
type QuizConfig struct {
	Questions     *int           `toml:"questions"`
	FeedbackDelay *time.Duration `toml:"feedback-delay"`
	ThresholdMin  *int           `toml:"threshold-min"`
	ThresholdMax  *int           `toml:"threshold-max"`
	ShowTitle     *bool          `toml:"show-title"`
}

// CatalogConfig maps the remote movie catalog settings.
type CatalogConfig struct {
	Endpoint   *string        `toml:"endpoint"`
	APIKey     *string        `toml:"api-key"`
	Timeout    *time.Duration `toml:"timeout"`
	ImageWidth *int           `toml:"image-width"`
}

// StatsConfig maps the statistics storage settings.
type StatsConfig struct {
	Backend       *string `toml:"backend"`
	RedisAddr     *string `toml:"redis-addr"`
	RedisPassword *string `toml:"redis-password"`
	RedisDB       *int    `toml:"redis-db"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
