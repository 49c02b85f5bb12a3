package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "astrogonia.yaml"

// Config is the project configuration loaded from astrogonia.yaml.
type Config struct {
	Title   string `yaml:"title"`
	SiteURL string `yaml:"site_url"`

	ContentDir  string `yaml:"content_dir"`
	LayoutDir   string `yaml:"layout_dir"`
	TemplateDir string `yaml:"template_dir"`
	StaticDir   string `yaml:"static_dir"`
	OutputDir   string `yaml:"output_dir"`

	// RenderMode selects the attribute-survival policy for the build
	// pass: "static" strips directive attributes after rendering,
	// "hydrate" keeps them for the client runtime.
	RenderMode string `yaml:"render_mode"`

	// Scope is the integration-level default state, lowest merge
	// priority under per-document embedded scopes.
	Scope map[string]any `yaml:"scope"`

	// Directives optionally names a YAML manifest of custom directive
	// names. A missing manifest is not an error.
	Directives string `yaml:"directives"`

	// SearchIndex is the sqlite page-index path. Empty selects a
	// default under the output directory.
	SearchIndex string `yaml:"search_index"`

	// Unsafe disables HTML sanitization of rendered markdown.
	Unsafe bool `yaml:"unsafe"`

	LogLevel string `yaml:"log_level"`
}

func DefaultPath() string {
	if path := os.Getenv("ASTROGONIA_CONFIG_FILE"); path != "" {
		return path
	}
	return defaultConfigPath
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.LayoutDir == "" {
		c.LayoutDir = "layouts"
	}
	if c.TemplateDir == "" {
		c.TemplateDir = "templates"
	}
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.OutputDir == "" {
		c.OutputDir = "dist"
	}
	if c.RenderMode == "" {
		c.RenderMode = "static"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	if c.Title == "" {
		return errors.New("config title is required")
	}
	if c.RenderMode != "static" && c.RenderMode != "hydrate" {
		return fmt.Errorf("config render_mode must be static or hydrate, got %q", c.RenderMode)
	}
	if c.OutputDir == c.ContentDir {
		return errors.New("config output_dir must differ from content_dir")
	}
	return nil
}

// IndexPath returns the search index location, defaulting under the
// output directory when no explicit path is configured.
func (c *Config) IndexPath() string {
	if c.SearchIndex != "" {
		return c.SearchIndex
	}
	return filepath.Join(c.OutputDir, ".astrogonia", "search.db")
}

// DefaultScope returns the configured default state as a fresh map so
// callers can merge without touching the config.
func (c *Config) DefaultScope() map[string]any {
	scope := make(map[string]any, len(c.Scope))
	for k, v := range c.Scope {
		scope[k] = v
	}
	return scope
}
