// Package config loads runtime configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries every runtime setting for the stand.
type Config struct {
	// Storage selects and parameterises the durable backend.
	StorageDriver string `env:"STANDCORE_STORAGE_DRIVER" envDefault:"jsonfile"`
	DataDir       string `env:"STANDCORE_DATA_DIR" envDefault:"data"`
	SQLitePath    string `env:"STANDCORE_SQLITE_PATH" envDefault:"data/standcore.db"`
	PostgresDSN   string `env:"STANDCORE_POSTGRES_DSN"`

	// SourceURL is the base URL of the remote read-only catalog source.
	// Empty means no remote fallback: the local files must already exist.
	SourceURL string `env:"STANDCORE_SOURCE_URL"`

	// Stock quantities injected into ingredients that arrive without one.
	DefaultStock int `env:"STANDCORE_DEFAULT_STOCK" envDefault:"50"`
	BreadStock   int `env:"STANDCORE_STOCK_BREAD" envDefault:"100"`
	SausageStock int `env:"STANDCORE_STOCK_SAUSAGE" envDefault:"75"`
	ToppingStock int `env:"STANDCORE_STOCK_TOPPING" envDefault:"200"`
	SauceStock   int `env:"STANDCORE_STOCK_SAUCE" envDefault:"150"`
	SideStock    int `env:"STANDCORE_STOCK_SIDE" envDefault:"80"`

	// Blob storage for report artifacts.
	BlobDriver string `env:"STANDCORE_BLOB_DRIVER" envDefault:"fs"`
	BlobDir    string `env:"STANDCORE_BLOB_DIR" envDefault:"data/reports"`
	S3Bucket   string `env:"STANDCORE_S3_BUCKET"`
	S3Prefix   string `env:"STANDCORE_S3_PREFIX"`

	LoggerLevel  string `env:"LOGGER_LEVEL" envDefault:"info"`
	LoggerAsJSON bool   `env:"LOGGER_AS_JSON" envDefault:"false"`
}

// Load reads optional .env files (local runs only) and parses the
// environment into a Config.
func Load(path ...string) (Config, error) {
	const op = "config.Load"

	if shouldLoadDotenv() {
		if err := godotenv.Load(path...); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%s: load .env: %w", op, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

// StockByCategory folds the per-category quantities into the shape the seed
// pipeline consumes.
func (c Config) StockByCategory() map[string]int {
	return map[string]int{
		"bread":   c.BreadStock,
		"sausage": c.SausageStock,
		"topping": c.ToppingStock,
		"sauce":   c.SauceStock,
		"side":    c.SideStock,
	}
}

func shouldLoadDotenv() bool {
	return os.Getenv("APP_ENV") == "local"
}
