package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8080},
		Backend: BackendConfig{BaseURL: "https://api.example.com"},
		Storage: StorageConfig{Path: "/path/to/store.db"},
		Auth:    AuthConfig{RefreshThresholdMinutes: 5, MonitorIntervalMinutes: 1},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port - zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port - too large",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "missing backend URL",
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "missing storage path",
			mutate:  func(c *Config) { c.Storage.Path = "" },
			wantErr: true,
		},
		{
			name:    "zero refresh threshold",
			mutate:  func(c *Config) { c.Auth.RefreshThresholdMinutes = 0 },
			wantErr: true,
		},
		{
			name:    "negative monitor interval",
			mutate:  func(c *Config) { c.Auth.MonitorIntervalMinutes = -1 },
			wantErr: true,
		},
		{
			name:    "telegram token without chat ID",
			mutate:  func(c *Config) { c.Telegram.BotToken = "bot-token" },
			wantErr: true,
		},
		{
			name: "telegram token with chat ID",
			mutate: func(c *Config) {
				c.Telegram.BotToken = "bot-token"
				c.Telegram.ChatID = 42
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Validate_DoesNotMutate(t *testing.T) {
	config := validConfig()
	config.Auth.RefreshThresholdMinutes = 10
	require.NoError(t, config.Validate())

	assert.Equal(t, 10, config.Auth.RefreshThresholdMinutes, "Validate must only inspect the config")
}

func TestLoad_AppliesDefaults(t *testing.T) {
	content := `{
		"server": {"host": "127.0.0.1", "port": 9090},
		"backend": {"base_url": "https://api.example.com"},
		"storage": {"path": "/tmp/callsight.db"}
	}`

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, config.Auth.RefreshThresholdMinutes)
	assert.Equal(t, 1, config.Auth.MonitorIntervalMinutes)
}

func TestLoad_ValidFile(t *testing.T) {
	content := `{
		"server": {"host": "127.0.0.1", "port": 9090},
		"backend": {"base_url": "https://api.example.com"},
		"storage": {"path": "/tmp/callsight.db"},
		"auth": {"refresh_threshold_minutes": 10},
		"logging": {"level": "debug", "format": "text"}
	}`

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "https://api.example.com", config.Backend.BaseURL)
	assert.Equal(t, 10, config.Auth.RefreshThresholdMinutes)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CALLSIGHT_BACKEND_URL", "https://api.example.com")
	t.Setenv("CALLSIGHT_PORT", "9191")
	t.Setenv("CALLSIGHT_LOG_FORMAT", "text")

	config, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", config.Backend.BaseURL)
	assert.Equal(t, 9191, config.Server.Port)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Equal(t, "./callsight.db", config.Storage.Path)
}

func TestLoadFromEnv_MissingBackendURL(t *testing.T) {
	_, err := LoadFromEnv()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
