package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/focusdeck/creditcore/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Sweeper    SweeperConfig    `validate:"required"`
	Webhook    WebhookConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
}

// SweeperConfig controls the lifecycle sweeper schedule and batching
type SweeperConfig struct {
	// Enabled turns the in-process cron schedule on; when false sweeps only
	// run via the /cron endpoints
	Enabled bool
	// Schedule is a cron expression, hourly by default
	Schedule string `validate:"required"`
	// BatchSize caps how many accounts a single sweep pass loads at once
	BatchSize int
}

// WebhookConfig carries the shared secrets used to verify inbound billing
// events from the payment processors
type WebhookConfig struct {
	StripeSecret string
	PaddleSecret string
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetURL returns the URL form of the DSN, used by the migration tool
func (c PostgresConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, url.QueryEscape(c.Password), c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/creditcore")

	v.SetEnvPrefix("CREDITCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file if exists
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "creditcore")
	v.SetDefault("postgres.dbname", "creditcore")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopenconns", 10)
	v.SetDefault("postgres.maxidleconns", 5)
	v.SetDefault("postgres.connmaxlifetime", 30)
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.schedule", "0 * * * *")
	v.SetDefault("sweeper.batchsize", 500)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Sweeper: SweeperConfig{
			Schedule:  "0 * * * *",
			BatchSize: 500,
		},
	}
}
