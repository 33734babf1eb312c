// Package config loads the gateway configuration from a YAML file, with
// environment overrides for deployment secrets.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServiceConfig names one upstream service and the OpenAPI document that
// describes it. Document is a filesystem path; in database mode the
// document is fetched from the spec store by service name instead.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	Document string `yaml:"document,omitempty"`
}

// AccessLogConfig controls the call audit trail.
type AccessLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the full gateway configuration.
type Config struct {
	Listen       string `yaml:"listen"`
	EndpointPath string `yaml:"endpoint_path"`

	// IdentityURL is the endpoint that validates client bearer tokens.
	// Empty disables the remote check and accepts any non-empty token.
	IdentityURL string `yaml:"identity_url"`

	// DatabaseURL enables database mode when set. The DATABASE_URL
	// environment variable overrides the file value.
	DatabaseURL string `yaml:"database_url,omitempty"`

	AllowWriteOperations bool `yaml:"allow_write_operations"`
	IncludeByDefault     bool `yaml:"include_by_default"`

	Services   []ServiceConfig     `yaml:"services"`
	Categories map[string][]string `yaml:"categories,omitempty"`
	AccessLog  AccessLogConfig     `yaml:"access_log"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{
		Listen:           ":8080",
		EndpointPath:     "/mcp",
		IncludeByDefault: true,
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabaseMode reports whether documents come from the spec store.
func (c *Config) DatabaseMode() bool { return c.DatabaseURL != "" }

// Validate checks the configuration for the mistakes that would otherwise
// surface as confusing failures at serve time.
func (c *Config) Validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("no services configured")
	}
	seen := make(map[string]bool, len(c.Services))
	for _, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("service with empty name")
		}
		if seen[svc.Name] {
			return fmt.Errorf("duplicate service name %q", svc.Name)
		}
		seen[svc.Name] = true
		if svc.BaseURL == "" {
			return fmt.Errorf("service %q has no base_url", svc.Name)
		}
		if !c.DatabaseMode() && svc.Document == "" {
			return fmt.Errorf("service %q has no document and database mode is off", svc.Name)
		}
	}
	if c.AccessLog.Enabled && c.AccessLog.Path == "" {
		return fmt.Errorf("access log enabled but no path configured")
	}
	return nil
}

// MaskedDatabaseURL renders the database URL safe for logs.
func (c *Config) MaskedDatabaseURL() string {
	if len(c.DatabaseURL) > 20 {
		return c.DatabaseURL[:8] + "***" + c.DatabaseURL[len(c.DatabaseURL)-8:]
	}
	return "***"
}
