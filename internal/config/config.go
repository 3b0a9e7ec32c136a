// Package config loads service configuration from the environment via
// viper, with local-development defaults for every key.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/sympose/conf-reg-pricing/internal/model"
	"github.com/sympose/conf-reg-pricing/internal/pricing"
)

// Config is the full service configuration.
type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a libpq-compatible connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// PricingConfig holds the scalar pricing settings that live outside the
// tier tables: fallback tier, accompanying-person fee and exemption age,
// room rates and GST.
type PricingConfig struct {
	FallbackTier             string  `mapstructure:"fallback_tier"`
	Currency                 string  `mapstructure:"currency"`
	AccompanyingPersonFee    float64 `mapstructure:"accompanying_person_fee"`
	AccompanyingExemptionAge int     `mapstructure:"accompanying_exemption_age"`
	RoomRateSingle           float64 `mapstructure:"room_rate_single"`
	RoomRateSharing          float64 `mapstructure:"room_rate_sharing"`
	GSTPercent               float64 `mapstructure:"gst_percent"`
}

// Settings converts the raw config values into the engine's Settings.
func (c PricingConfig) Settings() pricing.Settings {
	return pricing.Settings{
		FallbackTierName:         c.FallbackTier,
		Currency:                 c.Currency,
		AccompanyingPersonFee:    decimal.NewFromFloat(c.AccompanyingPersonFee),
		AccompanyingExemptionAge: c.AccompanyingExemptionAge,
		RoomRates: map[model.RoomType]decimal.Decimal{
			model.RoomTypeSingle:  decimal.NewFromFloat(c.RoomRateSingle),
			model.RoomTypeSharing: decimal.NewFromFloat(c.RoomRateSharing),
		},
		GSTPercent: decimal.NewFromFloat(c.GSTPercent),
	}
}

// Load reads configuration from the environment. Keys are dot-separated
// and map to underscore-separated env vars (server.port → SERVER_PORT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("env", "development")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "confreg")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("pricing.fallback_tier", pricing.DefaultFallbackTierName)
	v.SetDefault("pricing.currency", "INR")
	v.SetDefault("pricing.accompanying_person_fee", 3000)
	v.SetDefault("pricing.accompanying_exemption_age", pricing.DefaultAccompanyingExemptionAge)
	v.SetDefault("pricing.room_rate_single", 10000)
	v.SetDefault("pricing.room_rate_sharing", 6000)
	v.SetDefault("pricing.gst_percent", 18)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
