// Package config handles loading and validation of application configuration
// from environment variables and an optional .env file.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/pkg/valueobjects"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minJWTLength = 32
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT"`
	Port           string      `mapstructure:"PORT"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS"`
	Version        string      `mapstructure:"VERSION"`
	JwtSecretKey   string      `mapstructure:"JWT_SECRET_KEY"`
	TrustedProxies []string    `mapstructure:"TRUSTED_PROXIES"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST"`
	Port         int    `mapstructure:"PORT"`
	User         string `mapstructure:"USER"`
	Password     string `mapstructure:"PASSWORD"`
	Name         string `mapstructure:"NAME"`
	SSLMode      string `mapstructure:"SSL_MODE"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"MAX_IDLE_CONNS"`
	ConnMaxLife  string `mapstructure:"CONN_MAX_LIFE"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate and other
// URL-based database tools.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS"`
	Password     string `mapstructure:"PASSWORD"`
	DB           int    `mapstructure:"DB"`
	UseTLS       bool   `mapstructure:"USE_TLS"`
	PoolSize     int    `mapstructure:"POOL_SIZE"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS"`
}

// StoreConfig selects the ledger persistence backend.
type StoreConfig struct {
	Driver string `mapstructure:"DRIVER"`
}

// PaymentConfig holds the split rates and the reminder schedule.
// Rates are percentages; "3.30" means 3.30%.
type PaymentConfig struct {
	UpfrontPercent       string `mapstructure:"UPFRONT_PERCENT"`
	GatewayFeePercent    string `mapstructure:"GATEWAY_FEE_PERCENT"`
	CommissionPercent    string `mapstructure:"COMMISSION_PERCENT"`
	BalanceDueOffsetDays int    `mapstructure:"BALANCE_DUE_OFFSET_DAYS"`
	FirstReminderDays    int    `mapstructure:"FIRST_REMINDER_DAYS"`
	FinalReminderDays    int    `mapstructure:"FINAL_REMINDER_DAYS"`
	Currency             string `mapstructure:"CURRENCY"`
	// Timezone decides what "the same calendar day" means for reminders and budget months.
	Timezone string `mapstructure:"TIMEZONE"`
}

// Location resolves Timezone, falling back to UTC.
func (c *PaymentConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

// SchedulerConfig controls the in-process sweep runner.
type SchedulerConfig struct {
	Enabled                 bool `mapstructure:"ENABLED"`
	ReminderIntervalMinutes int  `mapstructure:"REMINDER_INTERVAL_MINUTES"`
	PayoutIntervalHours     int  `mapstructure:"PAYOUT_INTERVAL_HOURS"`
	BudgetResetCheckMinutes int  `mapstructure:"BUDGET_RESET_CHECK_MINUTES"`
	SweepLockTTLSeconds     int  `mapstructure:"SWEEP_LOCK_TTL_SECONDS"`
}

// PayoutConfig holds payout batch settings.
type PayoutConfig struct {
	DriverLockTTLSeconds int `mapstructure:"DRIVER_LOCK_TTL_SECONDS"`
	// DeniedDrivers makes the simulated payout rail reject these drivers.
	DeniedDrivers []string `mapstructure:"DENIED_DRIVERS"`
}

// EmailConfig holds configuration for sending admin alert emails.
type EmailConfig struct {
	FromAddress  string `mapstructure:"FROM_ADDRESS"`
	FromName     string `mapstructure:"FROM_NAME"`
	AdminAddress string `mapstructure:"ADMIN_ADDRESS"`
	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
}

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Maximum payment attempts per user per window
	PaymentRequestsPerWindow int `mapstructure:"PAYMENT_REQUESTS_PER_WINDOW"`
	WindowSeconds            int `mapstructure:"WINDOW_SECONDS"`
}

// NotificationConfig holds configuration for the external notification facade API.
type NotificationConfig struct {
	Enabled        bool   `mapstructure:"ENABLED"`
	APIUrl         string `mapstructure:"API_URL"`
	APIKey         string `mapstructure:"API_KEY"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS"`
}

// WorkerPoolConfig holds configuration for the notification worker pool.
type WorkerPoolConfig struct {
	MaxWorkers             int `mapstructure:"MAX_WORKERS"`
	QueueSize              int `mapstructure:"QUEUE_SIZE"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// StatementArchiveConfig points at S3-compatible storage for payout statements.
type StatementArchiveConfig struct {
	Enabled         bool   `mapstructure:"ENABLED"`
	Endpoint        string `mapstructure:"ENDPOINT"`
	Region          string `mapstructure:"REGION"`
	Bucket          string `mapstructure:"BUCKET"`
	AccessKeyID     string `mapstructure:"ACCESS_KEY_ID"`
	SecretAccessKey string `mapstructure:"SECRET_ACCESS_KEY"`
	Prefix          string `mapstructure:"PREFIX"`
}

// NewRelicConfig enables APM when a license key is present.
type NewRelicConfig struct {
	AppName    string `mapstructure:"APP_NAME"`
	LicenseKey string `mapstructure:"LICENSE_KEY"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server           ServerConfig           `mapstructure:"SERVER"`
	Database         DatabaseConfig         `mapstructure:"DATABASE"`
	Redis            RedisConfig            `mapstructure:"REDIS"`
	Store            StoreConfig            `mapstructure:"STORE"`
	Payment          PaymentConfig          `mapstructure:"PAYMENT"`
	Scheduler        SchedulerConfig        `mapstructure:"SCHEDULER"`
	Payout           PayoutConfig           `mapstructure:"PAYOUT"`
	Email            EmailConfig            `mapstructure:"EMAIL"`
	RateLimit        RateLimitConfig        `mapstructure:"RATE_LIMIT"`
	Notification     NotificationConfig     `mapstructure:"NOTIFICATION"`
	WorkerPool       WorkerPoolConfig       `mapstructure:"WORKER_POOL"`
	StatementArchive StatementArchiveConfig `mapstructure:"STATEMENT_ARCHIVE"`
	NewRelic         NewRelicConfig         `mapstructure:"NEW_RELIC"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{})
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "kidride_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE.MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 5)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("STORE.DRIVER", StoreDriverPostgres)
	v.SetDefault("PAYMENT.UPFRONT_PERCENT", "25")
	v.SetDefault("PAYMENT.GATEWAY_FEE_PERCENT", "3.30")
	v.SetDefault("PAYMENT.COMMISSION_PERCENT", "15")
	v.SetDefault("PAYMENT.BALANCE_DUE_OFFSET_DAYS", 2)
	v.SetDefault("PAYMENT.FIRST_REMINDER_DAYS", 3)
	v.SetDefault("PAYMENT.FINAL_REMINDER_DAYS", 1)
	v.SetDefault("PAYMENT.CURRENCY", "INR")
	v.SetDefault("PAYMENT.TIMEZONE", "UTC")
	v.SetDefault("SCHEDULER.ENABLED", false)
	v.SetDefault("SCHEDULER.REMINDER_INTERVAL_MINUTES", 60)
	v.SetDefault("SCHEDULER.PAYOUT_INTERVAL_HOURS", 168)
	v.SetDefault("SCHEDULER.BUDGET_RESET_CHECK_MINUTES", 60)
	v.SetDefault("SCHEDULER.SWEEP_LOCK_TTL_SECONDS", 600)
	v.SetDefault("PAYOUT.DRIVER_LOCK_TTL_SECONDS", 120)
	v.SetDefault("PAYOUT.DENIED_DRIVERS", []string{})
	v.SetDefault("EMAIL.FROM_NAME", "KidRide Payments")
	v.SetDefault("RATE_LIMIT.PAYMENT_REQUESTS_PER_WINDOW", 10)
	v.SetDefault("RATE_LIMIT.WINDOW_SECONDS", 60)
	v.SetDefault("NOTIFICATION.ENABLED", false)
	v.SetDefault("NOTIFICATION.API_URL", "")
	v.SetDefault("NOTIFICATION.API_KEY", "")
	v.SetDefault("NOTIFICATION.TIMEOUT_SECONDS", 10)
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 10)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 1000)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 30)
	v.SetDefault("STATEMENT_ARCHIVE.ENABLED", false)
	v.SetDefault("STATEMENT_ARCHIVE.REGION", "auto")
	v.SetDefault("STATEMENT_ARCHIVE.PREFIX", "payout-statements")
	v.SetDefault("NEW_RELIC.APP_NAME", "kidride-payments")
}

var envBindings = [][2]string{
	{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
	{"SERVER.PORT", "PORT"},
	{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
	{"SERVER.VERSION", "VERSION"},
	{"SERVER.JWT_SECRET_KEY", "JWT_SECRET_KEY"},
	{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
	{"DATABASE.HOST", "DB_HOST"},
	{"DATABASE.PORT", "DB_PORT"},
	{"DATABASE.USER", "DB_USER"},
	{"DATABASE.PASSWORD", "DB_PASSWORD"},
	{"DATABASE.NAME", "DB_NAME"},
	{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
	{"REDIS.ADDRESS", "REDIS_ADDRESS"},
	{"REDIS.PASSWORD", "REDIS_PASSWORD"},
	{"REDIS.DB", "REDIS_DB"},
	{"REDIS.USE_TLS", "REDIS_USE_TLS"},
	{"STORE.DRIVER", "STORE_DRIVER"},
	{"PAYMENT.UPFRONT_PERCENT", "PAYMENT_UPFRONT_PERCENT"},
	{"PAYMENT.GATEWAY_FEE_PERCENT", "PAYMENT_GATEWAY_FEE_PERCENT"},
	{"PAYMENT.COMMISSION_PERCENT", "PAYMENT_COMMISSION_PERCENT"},
	{"PAYMENT.BALANCE_DUE_OFFSET_DAYS", "PAYMENT_BALANCE_DUE_OFFSET_DAYS"},
	{"PAYMENT.FIRST_REMINDER_DAYS", "PAYMENT_FIRST_REMINDER_DAYS"},
	{"PAYMENT.FINAL_REMINDER_DAYS", "PAYMENT_FINAL_REMINDER_DAYS"},
	{"PAYMENT.CURRENCY", "PAYMENT_CURRENCY"},
	{"PAYMENT.TIMEZONE", "PAYMENT_TIMEZONE"},
	{"SCHEDULER.ENABLED", "SCHEDULER_ENABLED"},
	{"SCHEDULER.REMINDER_INTERVAL_MINUTES", "SCHEDULER_REMINDER_INTERVAL_MINUTES"},
	{"SCHEDULER.PAYOUT_INTERVAL_HOURS", "SCHEDULER_PAYOUT_INTERVAL_HOURS"},
	{"SCHEDULER.BUDGET_RESET_CHECK_MINUTES", "SCHEDULER_BUDGET_RESET_CHECK_MINUTES"},
	{"SCHEDULER.SWEEP_LOCK_TTL_SECONDS", "SCHEDULER_SWEEP_LOCK_TTL_SECONDS"},
	{"PAYOUT.DRIVER_LOCK_TTL_SECONDS", "PAYOUT_DRIVER_LOCK_TTL_SECONDS"},
	{"PAYOUT.DENIED_DRIVERS", "PAYOUT_DENIED_DRIVERS"},
	{"EMAIL.FROM_ADDRESS", "EMAIL_FROM_ADDRESS"},
	{"EMAIL.FROM_NAME", "EMAIL_FROM_NAME"},
	{"EMAIL.ADMIN_ADDRESS", "EMAIL_ADMIN_ADDRESS"},
	{"EMAIL.RESEND_API_KEY", "RESEND_API_KEY"},
	{"RATE_LIMIT.PAYMENT_REQUESTS_PER_WINDOW", "RATE_LIMIT_PAYMENT_REQUESTS_PER_WINDOW"},
	{"RATE_LIMIT.WINDOW_SECONDS", "RATE_LIMIT_WINDOW_SECONDS"},
	{"NOTIFICATION.ENABLED", "NOTIFICATION_ENABLED"},
	{"NOTIFICATION.API_URL", "NOTIFICATION_API_URL"},
	{"NOTIFICATION.API_KEY", "NOTIFICATION_API_KEY"},
	{"NOTIFICATION.TIMEOUT_SECONDS", "NOTIFICATION_TIMEOUT_SECONDS"},
	{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
	{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
	{"WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", "WORKER_POOL_SHUTDOWN_TIMEOUT_SECONDS"},
	{"STATEMENT_ARCHIVE.ENABLED", "STATEMENT_ARCHIVE_ENABLED"},
	{"STATEMENT_ARCHIVE.ENDPOINT", "STATEMENT_ARCHIVE_ENDPOINT"},
	{"STATEMENT_ARCHIVE.REGION", "STATEMENT_ARCHIVE_REGION"},
	{"STATEMENT_ARCHIVE.BUCKET", "STATEMENT_ARCHIVE_BUCKET"},
	{"STATEMENT_ARCHIVE.ACCESS_KEY_ID", "STATEMENT_ARCHIVE_ACCESS_KEY_ID"},
	{"STATEMENT_ARCHIVE.SECRET_ACCESS_KEY", "STATEMENT_ARCHIVE_SECRET_ACCESS_KEY"},
	{"STATEMENT_ARCHIVE.PREFIX", "STATEMENT_ARCHIVE_PREFIX"},
	{"NEW_RELIC.APP_NAME", "NEW_RELIC_APP_NAME"},
	{"NEW_RELIC.LICENSE_KEY", "NEW_RELIC_LICENSE_KEY"},
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, binds environment variables to config struct fields,
// unmarshals the configuration, and validates it. A .env file in the working
// directory is loaded first when present; real environment variables win.
func LoadConfig() (*Config, error) {
	log := logger.GetLogger()

	if err := godotenv.Load(); err == nil {
		log.Info("Loaded environment overrides from .env")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"serverPort", v.GetString("SERVER.PORT"),
		"storeDriver", v.GetString("STORE.DRIVER"),
		"dbHost", v.GetString("DATABASE.HOST"),
		"schedulerEnabled", v.GetBool("SCHEDULER.ENABLED"),
		"paymentTimezone", v.GetString("PAYMENT.TIMEZONE"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}
	// Comma separated env values arrive as a single element.
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Payout.DeniedDrivers = splitList(cfg.Payout.DeniedDrivers)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if len(cfg.Server.JwtSecretKey) < minJWTLength {
		return fmt.Errorf("JWT secret key must be at least %d characters long", minJWTLength)
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	switch cfg.Store.Driver {
	case StoreDriverPostgres:
		if cfg.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if cfg.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if cfg.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
		if cfg.Database.Password == "" {
			log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
		}
	case StoreDriverMemory:
		if cfg.IsProduction() {
			return fmt.Errorf("memory store is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if err := validatePaymentConfig(&cfg.Payment); err != nil {
		return err
	}

	if cfg.Scheduler.Enabled {
		if cfg.Scheduler.ReminderIntervalMinutes <= 0 || cfg.Scheduler.PayoutIntervalHours <= 0 || cfg.Scheduler.BudgetResetCheckMinutes <= 0 {
			return fmt.Errorf("scheduler intervals must be positive")
		}
	}
	if cfg.Scheduler.SweepLockTTLSeconds <= 0 || cfg.Payout.DriverLockTTLSeconds <= 0 {
		return fmt.Errorf("lock TTLs must be positive")
	}

	if cfg.Email.ResendAPIKey != "" && cfg.Email.FromAddress == "" {
		return fmt.Errorf("email from address is required when resend is configured")
	}

	if cfg.RateLimit.PaymentRequestsPerWindow <= 0 {
		return fmt.Errorf("rate limit payment requests must be positive")
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit window seconds must be positive")
	}

	if err := validateNotificationConfig(&cfg.Notification, log); err != nil {
		return err
	}

	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool queue size must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}

	if cfg.StatementArchive.Enabled && cfg.StatementArchive.Bucket == "" {
		return fmt.Errorf("statement archive bucket is required when archiving is enabled")
	}

	return nil
}

func validatePaymentConfig(p *PaymentConfig) error {
	for name, pct := range map[string]string{
		"upfront":    p.UpfrontPercent,
		"gatewayFee": p.GatewayFeePercent,
		"commission": p.CommissionPercent,
	} {
		if _, err := valueobjects.ParsePercent(pct); err != nil {
			return fmt.Errorf("invalid %s percent: %w", name, err)
		}
	}
	if p.BalanceDueOffsetDays < 0 {
		return fmt.Errorf("balance due offset days cannot be negative")
	}
	if p.FirstReminderDays <= p.FinalReminderDays || p.FinalReminderDays <= 0 {
		return fmt.Errorf("reminder offsets must satisfy first > final > 0")
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("invalid payment timezone: %w", err)
	}
	return nil
}

// validateNotificationConfig validates the notification facade configuration.
// If enabled but missing API key, it auto-disables the service with a warning.
func validateNotificationConfig(cfg *NotificationConfig, log *zap.SugaredLogger) error {
	if !cfg.Enabled {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.APIUrl); err != nil {
		return fmt.Errorf("invalid notification API URL: %w", err)
	}

	if cfg.APIKey == "" {
		log.Warn("Notification API key not set, auto-disabling notification service")
		cfg.Enabled = false
		return nil
	}

	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("notification timeout must be positive")
	}

	return nil
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
