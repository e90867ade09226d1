package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stayhub/service-rental/internal/common/database"
)

// StripeConfig holds Stripe-specific configuration.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
}

// JWTConfig holds token signing configuration.
type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// KafkaConfig holds event publishing configuration. No brokers means events are dropped.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// CacheConfig sizes the property read cache.
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int64
}

// ServiceConfig holds all configuration for the rental service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	AutoMigrate bool
	DBConfig    database.PostgresConfig
	JWTConfig   JWTConfig
	KafkaConfig KafkaConfig
	Stripe      StripeConfig
	Cache       CacheConfig
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *ServiceConfig) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	v.AutomaticEnv()

	cfg := &ServiceConfig{
		Port:        v.GetString("SERVICE_PORT"),
		AppEnv:      v.GetString("APP_ENV"),
		AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTConfig: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		KafkaConfig: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			Currency:      strings.ToLower(v.GetString("PAYMENT_CURRENCY")),
			Timeout:       v.GetDuration("GATEWAY_TIMEOUT"),
		},
		Cache: CacheConfig{
			TTL:     v.GetDuration("PROPERTY_CACHE_TTL"),
			MaxSize: v.GetInt64("PROPERTY_CACHE_SIZE"),
		},
	}

	if !strings.HasPrefix(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVICE_PORT", ":8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rental")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", 7*24*time.Hour)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "booking.events")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("PAYMENT_CURRENCY", "inr")
	v.SetDefault("GATEWAY_TIMEOUT", 10*time.Second)
	v.SetDefault("PROPERTY_CACHE_TTL", 5*time.Minute)
	v.SetDefault("PROPERTY_CACHE_SIZE", 1000)
}

func (c *ServiceConfig) validate() error {
	if c.JWTConfig.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IsProduction() && (c.Stripe.SecretKey == "" || c.Stripe.WebhookSecret == "") {
		return errors.New("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET are required in production")
	}
	if c.Stripe.Timeout <= 0 {
		return errors.New("GATEWAY_TIMEOUT must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
