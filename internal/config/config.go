package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// DefaultSearchboxFile is the reserved asset every augmented page links to.
	DefaultSearchboxFile = "searchbox.html"

	configEnvVar = "SITEINDEXER_CONFIG_FILE"
)

// DefaultExtensions are the page extensions crawled when none are configured.
var DefaultExtensions = []string{"html", "htm"}

// Config is the JSON configuration accepted by siteindexer. Every field can
// also be set from the command line.
type Config struct {
	StartDir      string   `json:"start_dir"`
	Output        string   `json:"output"`
	Site          string   `json:"site"`
	IndexDB       string   `json:"index_db"`
	SearchboxFile string   `json:"searchbox_file"`
	Extensions    []string `json:"extensions"`
	FailuresLog   string   `json:"failures_log"`
}

// DefaultPath returns the config file named by the environment, or "" when
// siteindexer should run on defaults and flags alone.
func DefaultPath() string {
	return os.Getenv(configEnvVar)
}

// Default returns a configuration with defaults applied and no paths set.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SearchboxFile == "" {
		c.SearchboxFile = DefaultSearchboxFile
	}
	if len(c.Extensions) == 0 {
		c.Extensions = append([]string(nil), DefaultExtensions...)
	}
	c.Extensions = NormalizeExtensions(c.Extensions)
}

// Validate checks that the settings a run cannot do without are present.
// It is called after flag overrides have been applied.
func (c *Config) Validate() error {
	if c.StartDir == "" {
		return errors.New("config start_dir is required")
	}
	if c.Output == "" {
		return errors.New("config output is required")
	}
	if strings.ContainsAny(c.SearchboxFile, `/\`) {
		return fmt.Errorf("config searchbox_file must be a bare file name, got %q", c.SearchboxFile)
	}
	if len(c.Extensions) == 0 {
		return errors.New("config extensions must not be empty")
	}
	return nil
}

// SiteURL returns the configured site without a trailing slash.
func (c *Config) SiteURL() string {
	return strings.TrimRight(c.Site, "/")
}

// NormalizeExtensions lower-cases extensions and strips leading dots,
// dropping empty entries.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}
