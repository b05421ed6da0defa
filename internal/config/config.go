package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Personas   PersonasConfig   `mapstructure:"personas"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token"`
	AdminIDs      []int64       `mapstructure:"admin_ids"`
	UpdateTimeout int           `mapstructure:"update_timeout"`
	AckDeadline   time.Duration `mapstructure:"ack_deadline"`
}

type ProviderConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float64       `mapstructure:"temperature"`
	DefaultModel string        `mapstructure:"default_model"`
	Models       []ModelConfig `mapstructure:"models"`
}

type ModelConfig struct {
	ID         string `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	TokenLimit int    `mapstructure:"token_limit"`
}

type PersonasConfig struct {
	SeedPath      string `mapstructure:"seed_path"`
	DefaultName   string `mapstructure:"default_name"`
	DefaultPrompt string `mapstructure:"default_prompt"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Secrets come from the environment, never the checked-in config
	viper.BindEnv("bot.token", "BOT_TOKEN")
	viper.BindEnv("provider.api_key", "PROVIDER_API_KEY")
	viper.BindEnv("provider.base_url", "PROVIDER_BASE_URL")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.AckDeadline <= 0 {
		cfg.Bot.AckDeadline = 2500 * time.Millisecond
	}
	if cfg.Bot.UpdateTimeout <= 0 {
		cfg.Bot.UpdateTimeout = 60
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = 120 * time.Second
	}
	if cfg.Provider.MaxTokens <= 0 {
		cfg.Provider.MaxTokens = 300
	}
	if cfg.Provider.Temperature <= 0 {
		cfg.Provider.Temperature = 0.5
	}
	if cfg.Personas.DefaultName == "" {
		cfg.Personas.DefaultName = "default"
	}
	if cfg.Personas.DefaultPrompt == "" {
		cfg.Personas.DefaultPrompt = "You are a helpful assistant."
	}
	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
	if len(cfg.I18n.Languages) == 0 {
		cfg.I18n.Languages = []string{"en"}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Provider.BaseURL == "" {
		return fmt.Errorf("provider base URL is required")
	}
	if len(cfg.Provider.Models) == 0 {
		return fmt.Errorf("at least one model profile is required")
	}
	if cfg.Provider.DefaultModel == "" {
		cfg.Provider.DefaultModel = cfg.Provider.Models[0].ID
	}
	found := false
	for _, m := range cfg.Provider.Models {
		if m.ID == cfg.Provider.DefaultModel {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default model %q is not in the model list", cfg.Provider.DefaultModel)
	}
	return nil
}

// DefaultModelProfile returns the configured default model.
func (c *Config) DefaultModelProfile() ModelConfig {
	for _, m := range c.Provider.Models {
		if m.ID == c.Provider.DefaultModel {
			return m
		}
	}
	return c.Provider.Models[0]
}

// IsAdmin reports whether the user is in the configured admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Bot.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
