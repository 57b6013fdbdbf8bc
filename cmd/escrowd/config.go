package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/webhook"
)

const (
	defaultListenAddr    = "localhost:8000"
	defaultLoggingLevel  = logger.LevelInfo
	defaultEnvironment   = logger.EnvProduction
	defaultCommissionPct = "10"
	defaultOutboxWorkers = 4
	defaultOutboxPeriod  = 5 * time.Second
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key shared with the marketplace to verify profile JWT tokens
	SecretKey string

	// Payment gateway webhook signing secret
	WebhookSecret string

	// Max age of webhook signature timestamp, negative disables the check
	WebhookTolerance time.Duration

	// Commission percentage for recipients without active subscription plan
	DefaultCommissionPct string

	// Redis address for notification queue; notifications are only logged if empty
	RedisAddr string

	// Notification outbox settings
	OutboxInterval time.Duration
	OutboxWorkers  int

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:             defaultLoggingLevel,
		ListenAddr:           defaultListenAddr,
		Environment:          defaultEnvironment,
		WebhookTolerance:     webhook.DefaultTolerance,
		DefaultCommissionPct: defaultCommissionPct,
		OutboxInterval:       defaultOutboxPeriod,
		OutboxWorkers:        defaultOutboxWorkers,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) (err error) {
			if value != "" {
				*o, err = time.ParseDuration(value)
			}
			return err
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) (err error) {
			if value != "" {
				*o, err = strconv.Atoi(value)
			}
			return err
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":            setString(&c.ListenAddr),
		"DATABASE_URI":           setString(&c.DatabaseDSN),
		"SECRET_KEY":             setString(&c.SecretKey),
		"WEBHOOK_SECRET":         setString(&c.WebhookSecret),
		"WEBHOOK_TOLERANCE":      setDuration(&c.WebhookTolerance),
		"DEFAULT_COMMISSION_PCT": setString(&c.DefaultCommissionPct),
		"REDIS_ADDR":             setString(&c.RedisAddr),
		"LOG_LEVEL":              setString(&c.LogLevel),
		"ENVIRONMENT":            setString(&c.Environment),
		"OUTBOX_INTERVAL":        setDuration(&c.OutboxInterval),
		"OUTBOX_WORKERS":         setInt(&c.OutboxWorkers),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("escrowd", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key to verify profile tokens")
	fs.StringVarP(&c.WebhookSecret, "webhook-secret", "w", c.WebhookSecret, "Payment gateway webhook signing secret")
	fs.DurationVar(&c.WebhookTolerance, "webhook-tolerance", c.WebhookTolerance, "Max webhook signature age")
	fs.StringVarP(&c.DefaultCommissionPct, "commission", "c", c.DefaultCommissionPct, "Default platform commission percentage")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address for notification queue")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVar(&c.OutboxInterval, "outbox-interval", c.OutboxInterval, "Notification outbox polling interval")
	fs.IntVar(&c.OutboxWorkers, "outbox-workers", c.OutboxWorkers, "Notification delivery workers")

	return fs.Parse(args)
}

// Check required options and return parsed default commission
func (c *Config) Validate() (decimal.Decimal, error) {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.WebhookSecret == "" {
		errs = append(errs, errors.New("webhook secret is required"))
	}

	pct, err := decimal.NewFromString(c.DefaultCommissionPct)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid default commission: %w", err))
	case pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)):
		errs = append(errs, fmt.Errorf("default commission must be within 0..100, got %s", pct))
	}

	return pct, errors.Join(errs...)
}
