package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string `mapstructure:"discord_token"`

	// Persistence
	DataFile   string `mapstructure:"data_file"`
	StylesFile string `mapstructure:"styles_file"`

	// Quote API configuration
	QuoteBaseURL     string        `mapstructure:"quote_base_url"`
	DefaultCMCAPIKey string        `mapstructure:"default_cmc_api_key"`
	QuoteCacheTTL    time.Duration `mapstructure:"quote_cache_ttl"`

	// Update cadence
	VoiceUpdateInterval   time.Duration `mapstructure:"voice_update_interval"`
	MessageUpdateInterval time.Duration `mapstructure:"message_update_interval"`

	// Environment: "development", "production" or "test"
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// Load builds configuration from defaults, an optional config file and the environment
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TICKERBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Keep the original environment variable names working alongside the
	// TICKERBOT_* prefixed forms.
	_ = v.BindEnv("discord_token", "TICKERBOT_DISCORD_TOKEN", "DISCORD_BOT_TOKEN")
	_ = v.BindEnv("default_cmc_api_key", "TICKERBOT_DEFAULT_CMC_API_KEY", "CMC_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Environment != "test" {
		if cfg.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
		}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_file", "crypto_bot_data.json")
	v.SetDefault("styles_file", "crypto_bot_styles.json")
	v.SetDefault("quote_base_url", "https://pro-api.coinmarketcap.com")
	v.SetDefault("quote_cache_ttl", time.Minute)
	v.SetDefault("voice_update_interval", time.Hour)
	v.SetDefault("message_update_interval", 30*time.Minute)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
}
