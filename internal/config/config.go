// Package config resolves tool settings from defaults, an optional
// .env file, an optional vigil.yaml file, and the process environment.
// Later sources win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"vigil/internal/baseline"
)

// Config holds resolved tool settings.
type Config struct {
	StorePath   string        // Baseline store file
	LockTimeout time.Duration // Store lock acquisition bound
}

// configFile is the vigil.yaml layout.
type configFile struct {
	Store       string `yaml:"store,omitempty"`
	LockTimeout string `yaml:"lockTimeout,omitempty"`
}

// Load resolves configuration relative to dir (the invocation directory).
// environ is expected to be os.Environ(); it is passed explicitly so
// tests can supply their own.
func Load(environ []string, dir string) (*Config, error) {
	cfg := &Config{
		StorePath:   baseline.DefaultPath(),
		LockTimeout: baseline.DefaultLockTimeout,
	}

	env := envMap(environ)

	// vigil.yaml, lowest-priority file source
	yamlPath := env["VIGIL_CONFIG"]
	if yamlPath == "" {
		yamlPath = filepath.Join(dir, "vigil.yaml")
	}
	if data, err := os.ReadFile(yamlPath); err == nil {
		var cf configFile
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", yamlPath, err)
		}
		if err := cfg.apply(cf.Store, cf.LockTimeout); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", yamlPath, err)
		}
	}

	// .env overrides the yaml file
	if dotenv, err := godotenv.Read(filepath.Join(dir, ".env")); err == nil {
		if err := cfg.apply(dotenv["VIGIL_STORE"], dotenv["VIGIL_LOCK_TIMEOUT"]); err != nil {
			return nil, fmt.Errorf("invalid .env: %w", err)
		}
	}

	// Process environment wins
	if err := cfg.apply(env["VIGIL_STORE"], env["VIGIL_LOCK_TIMEOUT"]); err != nil {
		return nil, err
	}

	store, err := homedir.Expand(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("cannot expand store path %s: %w", cfg.StorePath, err)
	}
	cfg.StorePath = store

	return cfg, nil
}

// apply overlays non-empty values onto the config.
func (c *Config) apply(store, lockTimeout string) error {
	if store != "" {
		c.StorePath = store
	}
	if lockTimeout != "" {
		d, err := time.ParseDuration(lockTimeout)
		if err != nil {
			return fmt.Errorf("invalid lock timeout %q: %w", lockTimeout, err)
		}
		c.LockTimeout = d
	}
	return nil
}

// envMap converts an os.Environ-style slice into a map.
func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, e := range environ {
		idx := strings.Index(e, "=")
		if idx == -1 {
			continue
		}
		m[e[:idx]] = e[idx+1:]
	}
	return m
}
