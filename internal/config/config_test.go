package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_PATH", "REPORT_TIMEOUT", "MAIL_ENABLED", "MAIL_TO", "LOG_OUTPUT", "REPORT_STRICT_CURRENCY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "taxreport.db", cfg.DatabasePath)
	assert.Equal(t, "reports", cfg.OutputDir)
	assert.Equal(t, 5*time.Minute, cfg.ReportTimeout)
	assert.False(t, cfg.MailEnabled)
	assert.False(t, cfg.StrictCurrency)
	assert.Equal(t, "Tax_Report", cfg.GoogleSheetWorksheet)
	assert.Equal(t, "stderr", cfg.GetLoggerConfig().Output)
}

func TestLoadMailRequiresRecipients(t *testing.T) {
	t.Setenv("MAIL_ENABLED", "true")
	t.Setenv("MAILGUN_DOMAIN", "mg.example.com")
	t.Setenv("MAILGUN_API_KEY", "key-123")
	t.Setenv("MAIL_FROM", "reports@example.com")
	t.Setenv("MAIL_TO", " , ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAIL_TO")

	t.Setenv("MAIL_TO", "tax@example.com, accounting@example.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"tax@example.com", "accounting@example.com"}, cfg.MailTo)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("REPORT_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("REPORT_TIMEOUT", "-1m")
	_, err = Load()
	assert.Error(t, err)
}
