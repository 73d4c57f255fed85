package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const DefaultOptimizerURL = "http://localhost:5001"

// Config holds the process settings. Environment variables override the
// optional YAML file named by CONFIG_FILE.
type Config struct {
	Port             string        `yaml:"port"`
	DatabaseURL      string        `yaml:"database_url"`
	DBPath           string        `yaml:"db_path"`
	SeedPath         string        `yaml:"seed_path"`
	OptimizerURL     string        `yaml:"optimizer_api_url"`
	OptimizerTimeout time.Duration `yaml:"optimizer_timeout"`
	OptimizerRate    float64       `yaml:"optimizer_rate_per_sec"`
	RedisURL         string        `yaml:"redis_url"`
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"`
}

func defaults() Config {
	return Config{
		Port:             "8080",
		DBPath:           "data/app.db",
		SeedPath:         "data/seeds/fieldservice.json",
		OptimizerURL:     DefaultOptimizerURL,
		OptimizerTimeout: 60 * time.Second,
		OptimizerRate:    2,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found (using environment variables)")
	}

	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("load config: parse %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = Get("PORT", cfg.Port)
	cfg.DatabaseURL = Get("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBPath = Get("DB_PATH", cfg.DBPath)
	cfg.SeedPath = Get("SEED_PATH", cfg.SeedPath)
	cfg.OptimizerURL = strings.TrimRight(Get("OPTIMIZER_API_URL", cfg.OptimizerURL), "/")
	cfg.RedisURL = Get("REDIS_URL", cfg.RedisURL)
	cfg.LogLevel = Get("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = Get("LOG_FORMAT", cfg.LogFormat)

	if v := os.Getenv("OPTIMIZER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("load config: OPTIMIZER_TIMEOUT: %w", err)
		}
		cfg.OptimizerTimeout = d
	}
	if cfg.OptimizerTimeout <= 0 {
		return errors.New("load config: optimizer timeout must be positive")
	}

	if v := os.Getenv("OPTIMIZER_RATE_PER_SEC"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("load config: OPTIMIZER_RATE_PER_SEC: %w", err)
		}
		cfg.OptimizerRate = r
	}
	if cfg.OptimizerRate <= 0 {
		return errors.New("load config: optimizer rate must be positive")
	}

	return nil
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LocalOptimizer reports whether routes are planned in-process instead of
// calling the external optimizer.
func (c Config) LocalOptimizer() bool {
	return strings.EqualFold(c.OptimizerURL, "local")
}
