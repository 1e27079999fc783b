// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the banking core. All fields have working
// defaults except JWTSecret, which callers that issue session tokens must
// set.
type Config struct {
	RatesURL     string        `env:"RATES_URL" envDefault:"https://api.nbp.pl/api/exchangerates/tables/A/?format=json"`
	RatesTimeout time.Duration `env:"RATES_TIMEOUT" envDefault:"10s"`
	JWTSecret    string        `env:"JWT_SECRET"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"10"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
