package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Kafka      KafkaConfig
	Cache      CacheConfig
	Sentry     SentryConfig
	Stripe     StripeConfig
	Billing    BillingConfig `validate:"required"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
	// RateLimitRPS and RateLimitBurst shape the per-owner token bucket on
	// the v1 API group.
	RateLimitRPS   float64
	RateLimitBurst int
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type ClickHouseConfig struct {
	Address  string
	TLS      bool
	Username string
	Password string
	Database string
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	// Topic carries the messaging subsystem's outbound-message records.
	Topic string
}

type CacheConfig struct {
	Enabled bool
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// BillingConfig holds the product-level billing rules. Credit amounts are
// explicit here rather than defaulted at the schema level so purchases are
// always constructed with named parameters.
type BillingConfig struct {
	TrialDays        int `validate:"required,gt=0"`
	DefaultGraceDays int `validate:"required,gt=0"`
	AddOn            AddOnCatalogConfig
}

// AddOnCatalogConfig describes the single add-on pack sold today.
type AddOnCatalogConfig struct {
	Credits    int             `validate:"required,gt=0"`
	UnitAmount decimal.Decimal `validate:"required"`
	Currency   string          `validate:"required,len=3"`
}

func NewConfig() (*Configuration, error) {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/omnidesk")

	v.SetEnvPrefix("OMNIDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server: ServerConfig{
			Address:        ":8080",
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Billing: BillingConfig{
			TrialDays:        14,
			DefaultGraceDays: 7,
			AddOn: AddOnCatalogConfig{
				Credits:    500,
				UnitAmount: decimal.NewFromInt(10),
				Currency:   "usd",
			},
		},
	}
}

func (c ClickHouseConfig) GetClientOptions() *clickhouse.Options {
	options := &clickhouse.Options{
		Addr: []string{c.Address},
		Auth: clickhouse.Auth{
			Database: c.Database,
			Username: c.Username,
			Password: c.Password,
		},
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}
	if c.TLS {
		options.TLS = &tls.Config{}
	}
	return options
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
