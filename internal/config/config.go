package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"moneh/internal/log"
)

const (
	DefaultSecretKey   = "dev-secret-change-me"
	DefaultDatabaseURL = "sqlite://./data/moneh.db"

	// ConfigFileEnv names an optional YAML/TOML/JSON file read before the
	// environment is applied.
	ConfigFileEnv = "MONEH_CONFIG"
)

type Config struct {
	// HTTP Server
	Port               string `mapstructure:"port"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
	CookieSecure       bool   `mapstructure:"cookie_secure"`

	// Auth
	SecretKey            string        `mapstructure:"secret_key"`
	SessionTTL           time.Duration `mapstructure:"session_ttl"`
	SessionPruneSchedule string        `mapstructure:"session_prune_schedule"`
	BcryptCost           int           `mapstructure:"bcrypt_cost"`

	// Database: sqlite://path, postgres://..., memory://
	DatabaseURL string `mapstructure:"database_url"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// AMQP (optional in the web process)
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`
	AMQPQueue    string `mapstructure:"amqp_queue"`

	// Google Sheets mirror (worker only)
	GoogleSpreadsheetID      string `mapstructure:"google_spreadsheet_id"`
	GoogleSheetName          string `mapstructure:"google_sheet_name"`
	GoogleServiceAccountFile string `mapstructure:"google_service_account_file"`
	GoogleServiceAccountJSON string `mapstructure:"google_service_account_json"`
}

var defaults = map[string]any{
	"port":                        "8080",
	"rate_limit_per_minute":       60,
	"cookie_secure":               false,
	"secret_key":                  DefaultSecretKey,
	"session_ttl":                 "168h",
	"session_prune_schedule":      "@hourly",
	"bcrypt_cost":                 10,
	"database_url":                DefaultDatabaseURL,
	"log_level":                   "info",
	"log_format":                  "text",
	"amqp_url":                    "",
	"amqp_exchange":               "moneh",
	"amqp_queue":                  "moneh_entries",
	"google_spreadsheet_id":       "",
	"google_sheet_name":           "Entries",
	"google_service_account_file": "",
	"google_service_account_json": "",
}

// Load builds the configuration from defaults, the optional file named by
// MONEH_CONFIG and the environment, in increasing priority. Keys map to
// upper-case environment variables (database_url -> DATABASE_URL).
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// UsesDefaultSecret reports whether the insecure development key is active.
func (c *Config) UsesDefaultSecret() bool {
	return c.SecretKey == DefaultSecretKey
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.SecretKey) == "" {
		errors = append(errors, "secret key cannot be empty")
	}

	if err := validateDatabaseURL(c.DatabaseURL); err != nil {
		errors = append(errors, err.Error())
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if _, err := cron.ParseStandard(c.SessionPruneSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid session prune schedule '%s': %v", c.SessionPruneSchedule, err))
	}

	// bcrypt.MinCost and bcrypt.MaxCost
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.BcryptCost))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	errors = append(errors, c.amqpErrors()...)

	return joinErrors(errors)
}

// ValidateWorker checks the settings the sheets mirror worker cannot run
// without, in addition to Validate.
func (c *Config) ValidateWorker() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.Split(strings.TrimPrefix(err.Error(), validationPrefix), "\n- ")...)
	}

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for the worker")
	}

	hasFile := c.GoogleServiceAccountFile != ""
	hasJSON := c.GoogleServiceAccountJSON != ""
	if !hasFile && !hasJSON {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the worker")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	return joinErrors(errors)
}

func (c *Config) amqpErrors() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func validateDatabaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid database URL '%s': %v", raw, err)
	}
	switch u.Scheme {
	case "sqlite":
		if u.Host == "" && u.Path == "" && u.Opaque == "" {
			return fmt.Errorf("database URL '%s' has no sqlite file path", raw)
		}
	case "postgres", "postgresql", "memory":
	default:
		return fmt.Errorf("invalid database URL scheme '%s': must be one of sqlite, postgres, memory", u.Scheme)
	}
	return nil
}

const validationPrefix = "configuration validation failed:\n- "

func joinErrors(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	return fmt.Errorf("%s%s", validationPrefix, strings.Join(errors, "\n- "))
}
