package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file
func (l *Loader) Load() (*Config, error) {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".salesbot", "salesbot.json")
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("json")

		v.SetEnvPrefix("SALESBOT")
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".salesbot")
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "salesbot.log")
	}

	if cfg.Archive.Dir == "" {
		cfg.Archive.Dir = filepath.Join(cfg.DataDir, "dialogs")
	}

	if cfg.OpenAI.PromptPath == "" {
		cfg.OpenAI.PromptPath = filepath.Join(cfg.DataDir, "prompt.txt")
	}

	return cfg, nil
}

// GetConfigPath returns the path the loader reads from and writes to.
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "salesbot.json"
	}
	return filepath.Join(home, ".salesbot", "salesbot.json")
}

// Save writes the configuration to file with restrictive permissions,
// since it holds API credentials.
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the config can run the daemon.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key is required")
	}
	if c.Dialog.TimeoutMinutes <= 0 {
		return fmt.Errorf("dialog timeout must be positive")
	}
	if c.Dialog.ReapIntervalSeconds <= 0 {
		return fmt.Errorf("reap interval must be positive")
	}
	return nil
}
