package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	BotToken     string `env:"BOT_TOKEN,notEmpty"`
	SettingsPath string `env:"SETTINGS_PATH,notEmpty"`
	DBPath       string `env:"DB_PATH,notEmpty"`

	// HistoryLimit caps the rolling poll log.
	HistoryLimit int `env:"HISTORY_LIMIT" envDefault:"10"`

	// ScheduleTZ is the IANA timezone schedule rules are evaluated in.
	ScheduleTZ string `env:"SCHEDULE_TZ" envDefault:"UTC"`

	SentryDSN string `env:"SENTRY_DSN"`

	// Weather is disabled when the key is empty.
	WeatherAPIKey string  `env:"WEATHERAPI_KEY"`
	WeatherLat    float64 `env:"WEATHER_LAT" envDefault:"41.7151"`
	WeatherLon    float64 `env:"WEATHER_LON" envDefault:"44.8271"`
}

func Load() (*Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if _, err := time.LoadLocation(config.ScheduleTZ); err != nil {
		return nil, fmt.Errorf("SCHEDULE_TZ must be a valid IANA timezone: %w", err)
	}
	return &config, nil
}

// Location returns the civil timezone for schedule evaluation.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ScheduleTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
