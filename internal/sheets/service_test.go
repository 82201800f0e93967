package sheets

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxreport/internal/taxreport"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9", id)

	_, err = extractSpreadsheetID("https://example.com/not-a-sheet")
	assert.Error(t, err)
}

func TestReportRows(t *testing.T) {
	runID := uuid.MustParse("6f1c2f4e-0000-4000-8000-000000000001")
	report := &taxreport.Report{
		RunID:       runID,
		Period:      taxreport.YearPeriod(2025),
		GeneratedAt: time.Date(2026, time.January, 2, 8, 0, 0, 0, time.UTC),
		Payload: &taxreport.ReportPayload{
			Charges: make([]taxreport.EnrichedCharge, 2),
			Totals: taxreport.ReportTotals{
				TransactionVolume: taxreport.Money{Amount: decimal.RequireFromString("150.00"), Currency: "EUR"},
				FeeVolume:         taxreport.Money{Amount: decimal.RequireFromString("4.40"), Currency: "EUR"},
				VolumeByCountry: map[string]decimal.Decimal{
					"FR": decimal.RequireFromString("40.00"),
					"DE": decimal.RequireFromString("100.00"),
				},
			},
			TaxNumberSummaries: []taxreport.TaxNumberSummary{
				{TaxNumber: "DE123", Amount: decimal.RequireFromString("140.00"), Currency: "eur", Country: "DE"},
			},
			Skipped: 1,
		},
	}

	rows, headers := ReportRows(report)

	assert.Equal(t, []interface{}{"Tax Report", "2025"}, rows[0])
	assert.Equal(t, []interface{}{"Generated", "2026-01-02T08:00:00Z"}, rows[1])
	assert.Equal(t, []interface{}{"Run", runID.String()}, rows[2])
	assert.Equal(t, []interface{}{"Transaction volume", 150.0, "EUR"}, rows[3])
	assert.Equal(t, []interface{}{"Fee volume", 4.4, "EUR"}, rows[4])
	assert.Equal(t, []interface{}{"Charges", 2}, rows[5])
	assert.Equal(t, []interface{}{"Skipped (no owner)", 1}, rows[6])

	require.Equal(t, []int64{0, 8, 12}, headers)
	assert.Equal(t, []interface{}{"Country", "Net volume"}, rows[8])
	assert.Equal(t, []interface{}{"DE", 100.0}, rows[9])
	assert.Equal(t, []interface{}{"FR", 40.0}, rows[10])
	assert.Equal(t, []interface{}{"Tax number", "Country", "Net volume", "Currency"}, rows[12])
	assert.Equal(t, []interface{}{"DE123", "DE", 140.0, "EUR"}, rows[13])
	assert.Len(t, rows, 14)
}

func TestReportRowsListsCurrencyMismatches(t *testing.T) {
	report := &taxreport.Report{
		Period: taxreport.YearPeriod(2025),
		Payload: &taxreport.ReportPayload{
			Totals:             taxreport.ReportTotals{VolumeByCountry: map[string]decimal.Decimal{}},
			CurrencyMismatches: []string{"ch_1", "ch_2"},
		},
	}

	rows, headers := ReportRows(report)
	assert.Equal(t, []interface{}{"Currency mismatches", "ch_1, ch_2"}, rows[7])
	assert.Equal(t, []int64{0, 9, 11}, headers)
}
