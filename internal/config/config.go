package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is everything the terminal needs from the environment.
type Config struct {
	BackendURL    string        `envconfig:"VETPOS_BACKEND_URL" required:"true"`
	ListenAddr    string        `envconfig:"VETPOS_LISTEN_ADDR" default:":8080"`
	DBPath        string        `envconfig:"VETPOS_DB_PATH" default:"vetpos-terminal.db"`
	AllowedOrigin string        `envconfig:"VETPOS_ALLOWED_ORIGIN" default:"http://localhost:5173"`
	HTTPTimeout   time.Duration `envconfig:"VETPOS_HTTP_TIMEOUT" default:"30s"`
	Environment   string        `envconfig:"VETPOS_ENV" default:"development"`
}

// Load reads .env (if present) and binds the typed config.
func Load() (*Config, error) {
	// A missing .env is fine: real deployments set the environment
	// directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
