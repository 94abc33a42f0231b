package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Backend  BackendConfig  `json:"backend"`
	Storage  StorageConfig  `json:"storage"`
	Auth     AuthConfig     `json:"auth"`
	Logging  LoggingConfig  `json:"logging"`
	Telegram TelegramConfig `json:"telegram"`
}

// ServerConfig contains local HTTP server settings
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// BackendConfig contains call-intelligence API settings
type BackendConfig struct {
	BaseURL string `json:"base_url"`
}

// StorageConfig contains credential store settings
type StorageConfig struct {
	Path string `json:"path"`
}

// AuthConfig contains token lifecycle settings
type AuthConfig struct {
	// RefreshThresholdMinutes is the look-ahead window before expiry
	// within which tokens are refreshed proactively.
	RefreshThresholdMinutes int `json:"refresh_threshold_minutes"`
	// MonitorIntervalMinutes is how often the background session check runs.
	MonitorIntervalMinutes int `json:"monitor_interval_minutes"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json or text
}

// TelegramConfig contains optional ops-alerting settings
type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   int64  `json:"chat_id"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port", ErrInvalidConfig)
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("%w: backend base URL is required", ErrInvalidConfig)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage path is required", ErrInvalidConfig)
	}

	if c.Auth.RefreshThresholdMinutes <= 0 {
		return fmt.Errorf("%w: refresh threshold must be positive", ErrInvalidConfig)
	}
	if c.Auth.MonitorIntervalMinutes <= 0 {
		return fmt.Errorf("%w: monitor interval must be positive", ErrInvalidConfig)
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("%w: telegram chat ID is required when a bot token is set", ErrInvalidConfig)
	}

	return nil
}

// applyDefaults fills in optional settings left unset
func (c *Config) applyDefaults() {
	if c.Auth.RefreshThresholdMinutes <= 0 {
		c.Auth.RefreshThresholdMinutes = 5
	}
	if c.Auth.MonitorIntervalMinutes <= 0 {
		c.Auth.MonitorIntervalMinutes = 1
	}
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables
// This is useful for containerized deployments
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnv("CALLSIGHT_HOST", "0.0.0.0"),
			Port: getEnvInt("CALLSIGHT_PORT", 8080),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("CALLSIGHT_BACKEND_URL", ""),
		},
		Storage: StorageConfig{
			Path: getEnv("CALLSIGHT_STORE_PATH", "./callsight.db"),
		},
		Auth: AuthConfig{
			RefreshThresholdMinutes: getEnvInt("CALLSIGHT_REFRESH_THRESHOLD_MINUTES", 5),
			MonitorIntervalMinutes:  getEnvInt("CALLSIGHT_MONITOR_INTERVAL_MINUTES", 1),
		},
		Logging: LoggingConfig{
			Level:  getEnv("CALLSIGHT_LOG_LEVEL", "info"),
			Format: getEnv("CALLSIGHT_LOG_FORMAT", "json"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("CALLSIGHT_TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnvInt64("CALLSIGHT_TELEGRAM_CHAT_ID", 0),
		},
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
