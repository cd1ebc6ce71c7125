// Package config loads clipio settings from a YAML file.
//
// Every field has a default, so a missing file section keeps the default
// value. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "CLIPIO_CONFIG"

// Config is the clipio configuration.
type Config struct {
	// SaveDir is the root directory local inputs are resolved against.
	SaveDir string `yaml:"save_dir"`

	// PerActorDirs resolves local inputs inside a subdirectory named after
	// the actor's id before falling back to SaveDir itself.
	PerActorDirs bool `yaml:"per_actor_dirs"`

	Web WebConfig `yaml:"web"`

	// TrustedHosts lists hosts remote archives may be fetched from, in
	// addition to the assets host.
	TrustedHosts []string `yaml:"trusted_hosts"`

	// MaxArchiveBytes bounds a single archive entry buffered in memory.
	MaxArchiveBytes int64 `yaml:"max_archive_bytes"`

	// CacheSize is the number of decoded objects kept by cached stores.
	CacheSize int `yaml:"cache_size"`

	// DefaultFormat is the format alias used when none is given.
	DefaultFormat string `yaml:"default_format"`

	// Compression names the codec stored objects are framed with.
	Compression string `yaml:"compression"`
}

// WebConfig locates the sharing service.
type WebConfig struct {
	// URL is the base "url:<id>" inputs are expanded against.
	URL string `yaml:"url"`

	// Assets is the public host uploads are served from.
	Assets string `yaml:"assets"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		SaveDir:         "schematics",
		MaxArchiveBytes: 64 << 20,
		CacheSize:       128,
		DefaultFormat:   "schematic",
		Compression:     "gzip",
	}
}

// Load reads the file named by CLIPIO_CONFIG, or returns Default when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.SaveDir = os.ExpandEnv(cfg.SaveDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.SaveDir == "" {
		errs = append(errs, errors.New("save_dir is required"))
	}
	if c.DefaultFormat == "" {
		errs = append(errs, errors.New("default_format is required"))
	}
	if c.MaxArchiveBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_archive_bytes must be positive, got %d", c.MaxArchiveBytes))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize))
	}
	for name, raw := range map[string]string{"web.url": c.Web.URL, "web.assets": c.Web.Assets} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", name, raw))
		}
	}
	return errors.Join(errs...)
}

// Trusted reports whether remote archives may be fetched from host.
// The web and assets hosts are always trusted.
func (c *Config) Trusted(host string) bool {
	if host == "" {
		return false
	}
	for _, raw := range []string{c.Web.URL, c.Web.Assets} {
		if u, err := url.Parse(raw); err == nil && strings.EqualFold(u.Hostname(), host) {
			return true
		}
	}
	for _, h := range c.TrustedHosts {
		if strings.EqualFold(strings.TrimSpace(h), host) {
			return true
		}
	}
	return false
}
