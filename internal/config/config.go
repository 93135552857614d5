package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (GRIEVD_*). A missing file yields the
// defaults, not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// GRIEVD_PROVIDER -> provider, GRIEVD_REVIEW_THRESHOLD ->
	// review_threshold, and so on.
	if err := k.Load(env.Provider("GRIEVD_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "GRIEVD_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
	ProviderNone:   true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of openai, ollama, none", c.Provider)
	}
	if c.Provider != ProviderNone && c.Model == "" {
		return fmt.Errorf("model is required for provider %q", c.Provider)
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("review_threshold must be in [0,1]")
	}
	if c.DefaultDepartment == "" {
		return fmt.Errorf("default_department is required")
	}
	if c.OverflowDepartment == "" {
		return fmt.Errorf("overflow_department is required")
	}
	if c.ScanIntervalMinutes <= 0 {
		return fmt.Errorf("scan_interval_minutes must be positive")
	}
	if c.ApproachingHours <= 0 {
		return fmt.Errorf("approaching_hours must be positive")
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider, or "" when none is needed.
func APIKeyEnvVar(provider ProviderType) string {
	if provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return ""
}
