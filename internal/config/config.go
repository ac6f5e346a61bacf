package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DBDriver          string
	SQLiteDBPath      string
	DatabaseURL       string
	DatabaseFallbacks []string
	DBMaxOpenConns    int

	// Completion service
	OpenAIAPIType    string
	OpenAIEndpoint   string
	OpenAIAPIKey     string
	OpenAIDeployment string
	OpenAIAPIVersion string

	// Identity
	IdentityHeader   string
	DefaultUserEmail string

	// Dashboard
	BudgetDefault  decimal.Decimal
	CurrencySymbol string

	// Sessions
	SessionTTL time.Duration
	SessionMax int

	// POST requests per client per minute; 0 disables the limiter
	RateLimitPerMinute int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets journal
	GoogleSpreadsheetID      string
	GoogleJournalSheet       string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/tracker.db"),
		DatabaseURL:       getEnv("DATABASE_URL", getEnv("AZURE_SQL_CONNECTIONSTRING", "")),
		DatabaseFallbacks: getEnvList("DATABASE_FALLBACK_URLS"),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),

		OpenAIAPIType:    strings.ToLower(getEnv("OPENAI_API_TYPE", "azure")),
		OpenAIEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
		OpenAIAPIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
		OpenAIDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT_NAME", ""),
		OpenAIAPIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-02-01"),

		IdentityHeader:   getEnv("IDENTITY_HEADER", "X-MS-CLIENT-PRINCIPAL-NAME"),
		DefaultUserEmail: getEnv("DEFAULT_USER_EMAIL", core.PlaceholderOwner),

		BudgetDefault:  getEnvDecimal("BUDGET_DEFAULT", decimal.NewFromInt(50000)),
		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "₹"),

		SessionTTL: getEnvDuration("SESSION_TTL", 12*time.Hour),
		SessionMax: getEnvInt("SESSION_MAX", 1000),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tracker"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "entry_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleJournalSheet:       getEnv("GOOGLE_JOURNAL_SHEET", "Journal"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// DatabaseDSN returns the primary connection string for the selected driver.
func (c *Config) DatabaseDSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLiteDBPath
	}
	return c.DatabaseURL
}

// Validate validates the settings every command needs and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate database driver
	switch c.DBDriver {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite driver")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres driver")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be one of [sqlite postgres]", c.DBDriver))
	}

	if c.DBMaxOpenConns < 1 {
		errors = append(errors, fmt.Sprintf("invalid max open connections %d: must be at least 1", c.DBMaxOpenConns))
	}

	if strings.TrimSpace(c.IdentityHeader) == "" {
		errors = append(errors, "identity header name cannot be empty")
	}
	if strings.TrimSpace(c.DefaultUserEmail) == "" {
		errors = append(errors, "default user email cannot be empty")
	}

	if c.BudgetDefault.IsNegative() {
		errors = append(errors, fmt.Sprintf("invalid default budget %s: must not be negative", c.BudgetDefault))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionMax < 1 {
		errors = append(errors, fmt.Sprintf("invalid session max %d: must be at least 1", c.SessionMax))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
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
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	return joinErrors(errors)
}

// ValidateServe adds the checks only the web server needs.
func (c *Config) ValidateServe() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}

	switch c.OpenAIAPIType {
	case "azure":
		if c.OpenAIEndpoint == "" {
			errors = append(errors, "AZURE_OPENAI_ENDPOINT is required")
		} else if u, err := url.Parse(c.OpenAIEndpoint); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			errors = append(errors, fmt.Sprintf("invalid completion endpoint '%s': must be an http(s) URL", c.OpenAIEndpoint))
		}
		if c.OpenAIAPIVersion == "" {
			errors = append(errors, "AZURE_OPENAI_API_VERSION cannot be empty")
		}
	case "openai":
	default:
		errors = append(errors, fmt.Sprintf("invalid completion API type '%s': must be 'azure' or 'openai'", c.OpenAIAPIType))
	}
	if c.OpenAIAPIKey == "" {
		errors = append(errors, "AZURE_OPENAI_API_KEY is required")
	}
	if c.OpenAIDeployment == "" {
		errors = append(errors, "AZURE_OPENAI_DEPLOYMENT_NAME is required")
	}

	return joinErrors(errors)
}

// ValidateWorker adds the checks the journal worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the journal worker")
	}
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleJournalSheet == "" {
			errors = append(errors, "GOOGLE_JOURNAL_SHEET cannot be empty when a spreadsheet is configured")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
		}
	}
	return joinErrors(errors)
}

func joinErrors(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
