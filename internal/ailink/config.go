package ailink

import "time"

// Config is the ailink subtree of the application config.
type Config struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout"`

	// PromptsDir holds *.md prompts that replace embedded ones by slug.
	PromptsDir string `mapstructure:"prompts_dir"`

	// Providers are keyed by a user chosen id such as "gemini" or "openai-eu".
	Providers map[string]ProviderInstanceConfig `mapstructure:"providers"`

	// Routing pins a role to a provider id and wins over Roles.
	Routing map[string]string `mapstructure:"routing"`
}

type ProviderInstanceConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// AIProvider selects the driver: gemini or openai.
	AIProvider string `mapstructure:"ai_provider"`
	BaseURL    string `mapstructure:"base_url"`

	// Models maps a tier (TierDefault, TierImage) to a model id.
	Models map[string]string `mapstructure:"models"`
	Roles  []string          `mapstructure:"roles"`

	// SelectionPolicy is "priority" (default) or "round_robin".
	// DefaultCredential pins a credential label when it is usable.
	SelectionPolicy   string             `mapstructure:"selection_policy"`
	DefaultCredential string             `mapstructure:"default_credential"`
	Credentials       []CredentialConfig `mapstructure:"credentials"`
}

// CredentialConfig is one API key. Higher Priority wins.
type CredentialConfig struct {
	Label    string `mapstructure:"label"`
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
}
