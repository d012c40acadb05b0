package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"bizdesk/internal/pricing"
)

const devJWTSecret = "default_super_secret_key"

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Log         LogConfig
	Pricing     PricingConfig
	Marketplace MarketplaceConfig
	Notify      NotifyConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
	Release     bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type PricingConfig struct {
	Rounding          pricing.Rounding
	TargetCurrency    string
	ExchangeRates     map[string]decimal.Decimal
	DefaultGCTPercent decimal.Decimal
}

// RateFor returns the configured rate for currency into the target currency.
// The target currency itself always converts at 1.
func (p PricingConfig) RateFor(currency string) (decimal.Decimal, bool) {
	currency = strings.ToUpper(currency)
	if currency == p.TargetCurrency {
		return decimal.NewFromInt(1), true
	}
	r, ok := p.ExchangeRates[currency]
	return r, ok
}

type MarketplaceConfig struct {
	Timeout   time.Duration
	UserAgent string
}

type NotifyConfig struct {
	QueueSize   int
	NATSURL     string
	NATSSubject string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("auth.access_ttl", 24*time.Hour)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("pricing.rounding", string(pricing.RoundNearestInteger))
	v.SetDefault("pricing.target_currency", "JMD")
	v.SetDefault("pricing.exchange_rates", map[string]string{"USD": "162"})
	v.SetDefault("pricing.default_gct_percent", "15")
	v.SetDefault("marketplace.timeout", 10*time.Second)
	v.SetDefault("marketplace.user_agent", "bizdesk/1.0 (+price lookup)")
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.nats_url", "")
	v.SetDefault("notify.nats_subject", "bizdesk.events")
}

// Load reads configs/.env, then an optional config.yaml from configPath, then
// BIZDESK_* environment variables. Later sources win.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		slog.Debug("No configs/.env file found")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("configs")
	v.SetEnvPrefix("BIZDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names from the original deployment env files
	_ = v.BindEnv("database.host", "BIZDESK_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "BIZDESK_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "BIZDESK_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "BIZDESK_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.name", "BIZDESK_DATABASE_NAME", "DB_NAME")
	_ = v.BindEnv("database.sslmode", "BIZDESK_DATABASE_SSLMODE", "DB_SSLMODE")
	_ = v.BindEnv("auth.jwt_secret", "BIZDESK_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("server.port", "BIZDESK_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.mode", "GIN_MODE")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		slog.Info("Loaded config file", "path", v.ConfigFileUsed())
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("server.port"),
			CORSOrigins: v.GetStringSlice("server.cors_origins"),
			Release:     v.GetString("server.mode") == "release",
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetString("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("auth.jwt_secret"),
			AccessTTL:  v.GetDuration("auth.access_ttl"),
			RefreshTTL: v.GetDuration("auth.refresh_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Marketplace: MarketplaceConfig{
			Timeout:   v.GetDuration("marketplace.timeout"),
			UserAgent: v.GetString("marketplace.user_agent"),
		},
		Notify: NotifyConfig{
			QueueSize:   v.GetInt("notify.queue_size"),
			NATSURL:     v.GetString("notify.nats_url"),
			NATSSubject: v.GetString("notify.nats_subject"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.Server.Release {
			return nil, errors.New("auth.jwt_secret (JWT_SECRET) is required in release mode")
		}
		slog.Warn("Using development JWT secret; set JWT_SECRET before deploying")
		cfg.Auth.JWTSecret = devJWTSecret
	}

	rounding, err := pricing.ParseRounding(v.GetString("pricing.rounding"))
	if err != nil {
		return nil, fmt.Errorf("pricing.rounding: %w", err)
	}
	gct, err := decimal.NewFromString(v.GetString("pricing.default_gct_percent"))
	if err != nil {
		return nil, fmt.Errorf("pricing.default_gct_percent: %w", err)
	}
	rates := make(map[string]decimal.Decimal)
	for currency, raw := range v.GetStringMapString("pricing.exchange_rates") {
		rate, err := decimal.NewFromString(raw)
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("pricing.exchange_rates.%s: invalid rate %q", currency, raw)
		}
		rates[strings.ToUpper(currency)] = rate
	}
	cfg.Pricing = PricingConfig{
		Rounding:          rounding,
		TargetCurrency:    strings.ToUpper(v.GetString("pricing.target_currency")),
		ExchangeRates:     rates,
		DefaultGCTPercent: gct,
	}
	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = 256
	}
	return cfg, nil
}
