// Package config loads resolver settings: defaults, then an optional YAML file,
// then .env and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"doujin-resolver/internal/types"

	"github.com/joho/godotenv"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration. A missing file at path is not an error; an empty path
// skips the file layer entirely.
func Load(path string) (*types.Config, error) {
	cfg := types.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// Load .env file if present
	_ = godotenv.Load()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML
func Save(cfg *types.Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *types.Config) error {
	if v := os.Getenv("RESOLVER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RESOLVER_TIMEOUT %q: %w", v, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("RESOLVER_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RESOLVER_DELAY %q: %w", v, err)
		}
		cfg.RequestDelay = d
	}
	if v := os.Getenv("RESOLVER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RESOLVER_WORKERS %q: %w", v, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("RESOLVER_OUTPUT_ENCODING"); v != "" {
		cfg.OutputEncoding = v
	}
	if v := os.Getenv("RESOLVER_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	return nil
}

// Validate checks limits, storefront ids in every order list, and the output encoding
func Validate(cfg *types.Config) error {
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", cfg.Timeout)
	}
	if cfg.RequestDelay < 0 {
		return fmt.Errorf("request delay must not be negative, got %v", cfg.RequestDelay)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.MaxConcurrentRequests < 1 {
		return fmt.Errorf("max concurrent requests must be at least 1, got %d", cfg.MaxConcurrentRequests)
	}

	orders := []struct {
		name  string
		sites []types.SiteID
	}{
		{"primary_order", cfg.PrimaryOrder},
		{"merge_order", cfg.MergeOrder},
		{"fan_out_order", cfg.FanOutOrder},
		{"last_resort_sites", cfg.LastResortSites},
	}
	for _, o := range orders {
		seen := make(map[types.SiteID]bool)
		for _, site := range o.sites {
			if !types.IsKnownSite(site) {
				return fmt.Errorf("%s: unknown site %q", o.name, site)
			}
			if seen[site] {
				return fmt.Errorf("%s: duplicate site %q", o.name, site)
			}
			seen[site] = true
		}
	}
	if len(cfg.PrimaryOrder) == 0 || len(cfg.MergeOrder) == 0 {
		return fmt.Errorf("primary_order and merge_order must not be empty")
	}

	if _, err := htmlindex.Get(cfg.OutputEncoding); err != nil {
		return fmt.Errorf("unsupported output encoding %q: %w", cfg.OutputEncoding, err)
	}
	return nil
}
