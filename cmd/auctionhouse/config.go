package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BorislavEnchev/AuctionHouse/services"
)

// Config holds the auction house service configuration, loadable from a
// YAML file with flag overrides on top.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	EnablePprof bool   `yaml:"enable_pprof"`

	// EscrowAccount is the identity the engine holds escrowed assets under
	// in the registry. Sellers approve this account before creating.
	EscrowAccount string `yaml:"escrow_account"`

	// RegistryURL is the base URL of the asset registry service. When
	// empty the server runs an embedded in-memory registry under the
	// address "local" for development.
	RegistryURL string `yaml:"registry_url"`

	// DevMints seeds the embedded dev registry. Ignored when RegistryURL
	// is set.
	DevMints []Mint `yaml:"dev_mints"`

	// Postgres enables persistent auction records when set.
	Postgres *services.PostgresConfig `yaml:"postgres"`

	DrainSeconds    int `yaml:"drain_seconds"`
	ShutdownSeconds int `yaml:"shutdown_seconds"`
}

// DrainDuration is the wait after marking the server not ready.
func (c *Config) DrainDuration() time.Duration {
	return time.Duration(c.DrainSeconds) * time.Second
}

// ShutdownDuration bounds graceful shutdown of in-flight requests.
func (c *Config) ShutdownDuration() time.Duration {
	return time.Duration(c.ShutdownSeconds) * time.Second
}

// Mint describes an asset seeded into the embedded dev registry.
type Mint struct {
	AssetID uint64 `yaml:"asset_id"`
	Owner   string `yaml:"owner"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:        ":8080",
		EscrowAccount:   "auction-house",
		DrainSeconds:    5,
		ShutdownSeconds: 10,
	}
}

// LoadConfig reads a YAML configuration file, filling unset fields with
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.EscrowAccount == "" {
		return nil, fmt.Errorf("escrow_account must not be empty")
	}
	return cfg, nil
}
