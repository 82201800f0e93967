package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"taxreport/internal/logger"
)

type Config struct {
	// Charge store
	DatabasePath string

	// Report generation
	OutputDir      string
	StrictCurrency bool
	ReportTimeout  time.Duration

	// Mail delivery (Mailgun)
	MailEnabled    bool
	MailgunDomain  string
	MailgunAPIKey  string
	MailgunAPIBase string // e.g. https://api.eu.mailgun.net/v3 for EU domains
	MailFrom       string
	MailTo         []string

	// Google Sheets publishing (optional)
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Prometheus Pushgateway (optional)
	PushgatewayURL string

	// HTTP API
	HTTPAddr string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	timeout, err := getEnvDuration("REPORT_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	config := &Config{
		DatabasePath:         getEnv("DATABASE_PATH", "taxreport.db"),
		OutputDir:            getEnv("REPORT_OUTPUT_DIR", "reports"),
		StrictCurrency:       getEnvBool("REPORT_STRICT_CURRENCY", false),
		ReportTimeout:        timeout,
		MailEnabled:          getEnvBool("MAIL_ENABLED", false),
		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:        getEnv("MAILGUN_API_KEY", ""),
		MailgunAPIBase:       getEnv("MAILGUN_API_BASE", ""),
		MailFrom:             getEnv("MAIL_FROM", ""),
		MailTo:               splitList(getEnv("MAIL_TO", "")),
		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "Tax_Report"),
		PushgatewayURL:       getEnv("PUSHGATEWAY_URL", ""),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	if c.ReportTimeout <= 0 {
		return fmt.Errorf("REPORT_TIMEOUT must be positive")
	}
	if c.MailEnabled {
		if c.MailgunDomain == "" {
			return fmt.Errorf("MAILGUN_DOMAIN is required when MAIL_ENABLED is set")
		}
		if c.MailgunAPIKey == "" {
			return fmt.Errorf("MAILGUN_API_KEY is required when MAIL_ENABLED is set")
		}
		if c.MailFrom == "" {
			return fmt.Errorf("MAIL_FROM is required when MAIL_ENABLED is set")
		}
		if len(c.MailTo) == 0 {
			return fmt.Errorf("MAIL_TO is required when MAIL_ENABLED is set")
		}
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

// splitList splits a comma separated list, dropping empty entries
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
