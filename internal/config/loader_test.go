package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadDefaults(t *testing.T) {
	// Path points at a missing file: defaults apply
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "salesbot.json")).Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 0.15, cfg.OpenAI.Temperature)
	assert.Equal(t, 1000, cfg.OpenAI.MaxTokens)
	assert.Equal(t, 10, cfg.Dialog.TimeoutMinutes)
	assert.Equal(t, 60, cfg.Dialog.ReapIntervalSeconds)
	assert.Equal(t, 90, cfg.Archive.RetentionDays)
	assert.Equal(t, "info", cfg.Logging.Level)

	// Derived paths are filled in
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "salesbot.log"), cfg.Logging.File)
	assert.Equal(t, filepath.Join(cfg.DataDir, "dialogs"), cfg.Archive.Dir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "prompt.txt"), cfg.OpenAI.PromptPath)
}

func TestLoader_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "salesbot.json")

	content := `{
		"telegram": {"bot_token": "123:abc"},
		"openai": {"api_key": "sk-test", "model": "gpt-4o"},
		"dialog": {"timeout_minutes": 5},
		"data_dir": "` + dir + `"
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	cfg, err := NewLoader(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 5, cfg.Dialog.TimeoutMinutes)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "dialogs"), cfg.Archive.Dir)
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "salesbot.json")
	loader := NewLoader(configPath)

	cfg := DefaultConfig()
	cfg.Telegram.BotToken = "123:abc"
	require.NoError(t, loader.Save(cfg))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", loaded.Telegram.BotToken)
	assert.Equal(t, cfg.OpenAI.Model, loaded.OpenAI.Model)
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	valid.Telegram.BotToken = "123:abc"
	valid.OpenAI.APIKey = "sk-test"
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing bot token", func(c *Config) { c.Telegram.BotToken = "" }},
		{"missing api key", func(c *Config) { c.OpenAI.APIKey = "" }},
		{"zero timeout", func(c *Config) { c.Dialog.TimeoutMinutes = 0 }},
		{"negative reap interval", func(c *Config) { c.Dialog.ReapIntervalSeconds = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Telegram.BotToken = "123:abc"
			cfg.OpenAI.APIKey = "sk-test"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
