package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RatesURL == "" {
		t.Error("RatesURL default is empty")
	}
	if cfg.RatesTimeout != 10*time.Second {
		t.Errorf("RatesTimeout = %s, want 10s", cfg.RatesTimeout)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %s, want 24h", cfg.SessionTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RATES_URL", "http://localhost:9999/rates")
	t.Setenv("RATES_TIMEOUT", "2s")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BCRYPT_COST", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RatesURL != "http://localhost:9999/rates" {
		t.Errorf("RatesURL = %q", cfg.RatesURL)
	}
	if cfg.RatesTimeout != 2*time.Second {
		t.Errorf("RatesTimeout = %s, want 2s", cfg.RatesTimeout)
	}
	if cfg.JWTSecret != "secret" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
}
