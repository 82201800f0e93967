package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportFixture = `[
	{
		"id": "ch_a",
		"created": "2025-03-03T09:00:00Z",
		"country": "DE",
		"tax_number": "DE123",
		"owner": {"id": "u_alice", "name": "Alice", "email": "alice@example.com", "country": "DE"},
		"settlement": {"amount": 10000, "fee": 290, "currency": "eur"}
	},
	{
		"id": "ch_b",
		"created": "2025-05-09T09:00:00Z",
		"country": "France",
		"tax_number": "DE123",
		"owner": {"id": "u_bob", "name": "Bob", "email": "bob@example.com", "country": "FR"},
		"settlement": {"amount": 5000, "fee": 150, "currency": "eur"},
		"refunds": [{"id": "re_1", "amount": 1000, "settlement": {"amount": 1000, "fee": 0, "currency": "eur"}}]
	}
]`

func TestImportAndReport(t *testing.T) {
	for _, key := range []string{"MAIL_ENABLED", "GOOGLE_SHEET_URL", "PUSHGATEWAY_URL", "REPORT_STRICT_CURRENCY"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "taxreport.db")
	exportPath := filepath.Join(dir, "export.json")
	outDir := filepath.Join(dir, "reports")
	require.NoError(t, os.WriteFile(exportPath, []byte(exportFixture), 0o644))

	rootCmd.SetArgs([]string{"import", exportPath, "--db", dbPath})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"report", "--year", "2025", "--db", dbPath, "--out", outDir, "--xlsx", "--no-mail"})
	require.NoError(t, rootCmd.Execute())

	for _, name := range []string{"tax-report-20250101_20260101.pdf", "tax-report-20250101_20260101.xlsx"} {
		info, err := os.Stat(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size())
	}

	rootCmd.SetArgs([]string{"report", "--year", "2024", "--db", dbPath, "--out", outDir, "--xlsx=false", "--no-mail"})
	assert.Error(t, rootCmd.Execute())
}
