package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	MemoryStore = "memory"
	SQLiteStore = "sqlite"
)

// Config holds the server settings read from the environment.
type Config struct {
	Port       int    `env:"TICTACFOUR_PORT" envDefault:"8080"`
	Logging    bool   `env:"LOGGING" envDefault:"false"`
	LogFile    string `env:"TICTACFOUR_LOG_FILE" envDefault:"tictacfour.log"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Store      string `env:"TICTACFOUR_STORE" envDefault:"memory"`
	SQLitePath string `env:"TICTACFOUR_SQLITE_PATH" envDefault:"data/tictacfour.db"`
	PublicURL  string `env:"TICTACFOUR_PUBLIC_URL" envDefault:"http://localhost:8080/"`
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads a .env file when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Store != MemoryStore && cfg.Store != SQLiteStore {
		return Config{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
