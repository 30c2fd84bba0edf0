package config

// Config represents the main salesbot configuration
type Config struct {
	// Telegram
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// OpenAI generator
	OpenAI OpenAIConfig `json:"openai" mapstructure:"openai"`

	// Dialog lifecycle
	Dialog DialogConfig `json:"dialog" mapstructure:"dialog"`

	// Archive
	Archive ArchiveConfig `json:"archive" mapstructure:"archive"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken string `json:"bot_token" mapstructure:"bot_token"`
}

// OpenAIConfig holds generator configuration
type OpenAIConfig struct {
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	PromptPath  string  `json:"prompt_path" mapstructure:"prompt_path"`
}

// DialogConfig holds session lifecycle settings
type DialogConfig struct {
	TimeoutMinutes      int `json:"timeout_minutes" mapstructure:"timeout_minutes"`
	ReapIntervalSeconds int `json:"reap_interval_seconds" mapstructure:"reap_interval_seconds"`
}

// ArchiveConfig holds dialog archive settings
type ArchiveConfig struct {
	Dir           string `json:"dir" mapstructure:"dir"`
	RetentionDays int    `json:"retention_days" mapstructure:"retention_days"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// MetricsConfig holds the metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.15,
			MaxTokens:   1000,
		},
		Dialog: DialogConfig{
			TimeoutMinutes:      10,
			ReapIntervalSeconds: 60,
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9090",
		},
	}
}
