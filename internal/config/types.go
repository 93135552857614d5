package config

// ProviderType identifies an LLM provider used for classification and
// explanation text.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	// ProviderNone disables LLM calls entirely: every complaint gets the
	// zero-confidence fallback classification (and thus manual review)
	// and all narratives come from templates.
	ProviderNone ProviderType = "none"
)

// Config is the top-level grievd configuration, corresponding to
// grievd.yml.
type Config struct {
	Port         int    `yaml:"port" koanf:"port"`
	DatabasePath string `yaml:"database_path" koanf:"database_path"`

	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`

	// ReviewThreshold is the classification confidence below which a
	// complaint is parked for manual review.
	ReviewThreshold float64 `yaml:"review_threshold" koanf:"review_threshold"`

	// DefaultDepartment receives complaints no routing rule matches.
	// OverflowDepartment receives escalated complaints.
	DefaultDepartment  string `yaml:"default_department" koanf:"default_department"`
	OverflowDepartment string `yaml:"overflow_department" koanf:"overflow_department"`

	// ScanIntervalMinutes is how often the breach scanner runs.
	ScanIntervalMinutes int `yaml:"scan_interval_minutes" koanf:"scan_interval_minutes"`

	// ApproachingHours is the look-ahead window for "deadline
	// approaching" statistics.
	ApproachingHours int `yaml:"approaching_hours" koanf:"approaching_hours"`

	// AllowAllOrigins relaxes CORS for development.
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// DefaultConfig returns a Config with the reference policy values.
func DefaultConfig() *Config {
	return &Config{
		Port:                8085,
		DatabasePath:        "data/grievd.db",
		Provider:            ProviderOpenAI,
		Model:               "gpt-4o-mini",
		ReviewThreshold:     0.6,
		DefaultDepartment:   "General Administration",
		OverflowDepartment:  "Municipal Commissioner Office",
		ScanIntervalMinutes: 15,
		ApproachingHours:    24,
	}
}
