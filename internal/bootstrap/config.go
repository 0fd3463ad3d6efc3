package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/periwatch/brief-api/config"
)

var logLevel = new(slog.LevelVar)

// InitLogger initializes the structured logger. The level starts at info and
// is raised or lowered by ApplyLogLevel once configuration is loaded.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// ApplyLogLevel sets the level of loggers created by InitLogger.
func ApplyLogLevel(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	logLevel.Set(l)
}

// LoadConfig loads configuration from environment variables and the optional
// delivery config file.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if path := cfg.Delivery.ConfigFile; path != "" {
		if err := cfg.Delivery.LoadFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Sanitize()
	return cfg, nil
}
