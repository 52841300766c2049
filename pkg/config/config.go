// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Telemetry is shared by every binary.
type Telemetry struct {
	OTELHost        string  `env:"OTEL_HOST"`
	OTELProbability float64 `env:"OTEL_PROBABILITY" envDefault:"1.0"`
	LogLevel        string  `env:"LOG_LEVEL" envDefault:"info"`
}

// API configures the storefront cart API.
type API struct {
	Addr           string        `env:"API_ADDR" envDefault:":8443"`
	TLSCert        string        `env:"TLS_CERT"`
	TLSKey         string        `env:"TLS_KEY"`
	CatalogURL     string        `env:"CATALOG_URL" envDefault:"http://localhost:3333"`
	CatalogTimeout time.Duration `env:"CATALOG_TIMEOUT" envDefault:"5s"`
	// Storage selects the cart backend: memory, redis or postgres.
	Storage     string `env:"CART_STORAGE" envDefault:"memory"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DatabaseURL string `env:"DATABASE_URL"`
	ToastLimit  int    `env:"TOAST_LIMIT" envDefault:"20"`
	Telemetry
}

// Catalog configures the catalog and stock service.
type Catalog struct {
	Addr string `env:"CATALOG_ADDR" envDefault:":3333"`
	// DataFile is a JSON catalog document; the built-in one is used when empty.
	DataFile string `env:"CATALOG_DATA"`
	Telemetry
}
