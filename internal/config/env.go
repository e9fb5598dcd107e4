package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvConfig holds overrides read from MOVIEQUIZ_* environment variables.
// Unset variables leave the pointer nil.
type EnvConfig struct {
	Questions     *int           `env:"MOVIEQUIZ_QUESTIONS"`
	FeedbackDelay *time.Duration `env:"MOVIEQUIZ_FEEDBACK_DELAY"`
	ThresholdMin  *int           `env:"MOVIEQUIZ_THRESHOLD_MIN"`
	ThresholdMax  *int           `env:"MOVIEQUIZ_THRESHOLD_MAX"`
	ShowTitle     *bool          `env:"MOVIEQUIZ_SHOW_TITLE"`
	Endpoint      *string        `env:"MOVIEQUIZ_ENDPOINT"`
	APIKey        *string        `env:"MOVIEQUIZ_API_KEY"`
	Timeout       *time.Duration `env:"MOVIEQUIZ_TIMEOUT"`
	ImageWidth    *int           `env:"MOVIEQUIZ_IMAGE_WIDTH"`
	StatsBackend  *string        `env:"MOVIEQUIZ_STATS_BACKEND"`
	RedisAddr     *string        `env:"MOVIEQUIZ_REDIS_ADDR"`
	RedisPassword *string        `env:"MOVIEQUIZ_REDIS_PASSWORD"`
	RedisDB       *int           `env:"MOVIEQUIZ_REDIS_DB"`
}

// LoadDotEnv loads variables from the given .env files. Missing files are skipped
// and variables already present in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ParseEnv reads MOVIEQUIZ_* variables.
func ParseEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment overrides onto a file config.
func ApplyEnv(file *FileConfig, ev EnvConfig) {
	if ev.Questions != nil {
		file.Quiz.Questions = ev.Questions
	}
	if ev.FeedbackDelay != nil {
		file.Quiz.FeedbackDelay = ev.FeedbackDelay
	}
	if ev.ThresholdMin != nil {
		file.Quiz.ThresholdMin = ev.ThresholdMin
	}
	if ev.ThresholdMax != nil {
		file.Quiz.ThresholdMax = ev.ThresholdMax
	}
	if ev.ShowTitle != nil {
		file.Quiz.ShowTitle = ev.ShowTitle
	}
	if ev.Endpoint != nil {
		file.Catalog.Endpoint = ev.Endpoint
	}
	if ev.APIKey != nil {
		file.Catalog.APIKey = ev.APIKey
	}
	if ev.Timeout != nil {
		file.Catalog.Timeout = ev.Timeout
	}
	if ev.ImageWidth != nil {
		file.Catalog.ImageWidth = ev.ImageWidth
	}
	if ev.StatsBackend != nil {
		file.Stats.Backend = ev.StatsBackend
	}
	if ev.RedisAddr != nil {
		file.Stats.RedisAddr = ev.RedisAddr
	}
	if ev.RedisPassword != nil {
		file.Stats.RedisPassword = ev.RedisPassword
	}
	if ev.RedisDB != nil {
		file.Stats.RedisDB = ev.RedisDB
	}
}
