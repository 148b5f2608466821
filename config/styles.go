package config

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Styles holds the visual customization of rendered tickers
type Styles struct {
	PriceUpIcon   string `mapstructure:"price_up_icon"`
	PriceDownIcon string `mapstructure:"price_down_icon"`
}

// DefaultStyles returns the built-in icon set
func DefaultStyles() Styles {
	return Styles{
		PriceUpIcon:   "📈",
		PriceDownIcon: "📉",
	}
}

// LoadStyles reads icon overrides from the styles JSON file.
// A missing or unreadable file yields the defaults.
func LoadStyles(path string) Styles {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("price_up_icon", "📈")
	v.SetDefault("price_down_icon", "📉")

	if err := v.ReadInConfig(); err != nil {
		log.WithField("file", path).Debug("No styles file found, using defaults")
		return DefaultStyles()
	}

	styles := DefaultStyles()
	if err := v.Unmarshal(&styles); err != nil {
		log.WithError(err).WithField("file", path).Warn("Failed to parse styles file, using defaults")
		return DefaultStyles()
	}
	return styles
}
