package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Chat      ChatConfig
	Store     StoreConfig
	AccountDB AccountDBConfig
	Session   SessionConfig
	Notify    NotifyConfig
	Reminder  ReminderConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"orderhub-bot"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin API login key
}

// ChatConfig holds order-intake tuning knobs.
type ChatConfig struct {
	// FuzzyThreshold is the minimum similarity (0..1) for a fuzzy catalog
	// match. The default tolerates one or two typos in short item names.
	FuzzyThreshold float64 `envconfig:"FUZZY_THRESHOLD" default:"0.6"`

	// LowStockThreshold triggers a low-stock notification when an item's
	// remaining quantity drops below it after a commit.
	LowStockThreshold int64 `envconfig:"LOW_STOCK_THRESHOLD" default:"10"`
}

// StoreConfig holds the primary SQLite store settings
// (catalog, orders, feedback, and the default account roster).
type StoreConfig struct {
	Path string `envconfig:"STORE_DB_PATH" default:"./data/orderhub.db"`
}

// AccountDBConfig holds the account roster backend settings.
// Default is the primary SQLite store; "mysql" points the roster at an
// externally provisioned MySQL database.
type AccountDBConfig struct {
	Type     string `envconfig:"ACCOUNT_DB_TYPE" default:"sqlite"` // sqlite or mysql
	Host     string `envconfig:"ACCOUNT_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"ACCOUNT_DB_PORT" default:"3306"`
	Name     string `envconfig:"ACCOUNT_DB_NAME" default:"orderhub"`
	User     string `envconfig:"ACCOUNT_DB_USER" default:"root"`
	Password string `envconfig:"ACCOUNT_DB_PASS" default:""`
}

// SessionConfig holds conversation session store settings.
type SessionConfig struct {
	// Store selects the backend: "memory" (single instance) or "redis"
	// (required when running more than one process).
	Store string        `envconfig:"SESSION_STORE" default:"memory"`
	TTL   time.Duration `envconfig:"SESSION_TTL" default:"30m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// NotifyConfig holds outbound notification settings.
type NotifyConfig struct {
	// WebhookURL is the chat transport's outbound endpoint. Empty means
	// notifications are logged instead of delivered.
	WebhookURL string        `envconfig:"NOTIFY_WEBHOOK_URL" default:""`
	Timeout    time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`

	// AdminRecipient receives low-stock notifications.
	AdminRecipient string `envconfig:"NOTIFY_ADMIN_RECIPIENT" default:""`
}

// ReminderConfig holds the daily order-reminder sweep settings.
type ReminderConfig struct {
	Enabled  bool          `envconfig:"REMINDER_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"REMINDER_INTERVAL" default:"24h"`
	// Window is how far back the sweep looks for orders when deciding
	// who has already ordered.
	Window time.Duration `envconfig:"REMINDER_WINDOW" default:"24h"`
}

// MySQLDSN returns the MySQL data source name for the account roster.
func (a *AccountDBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		a.User, a.Password, a.Host, a.Port, a.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (s *SessionConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", s.RedisHost, s.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
