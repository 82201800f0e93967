package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"taxreport/internal/taxreport"
)

// Sheet names of the XLSX workbook.
const (
	SheetSummary    = "summary"
	SheetCountries  = "countries"
	SheetTaxNumbers = "tax_numbers"
	SheetCharges    = "charges"
)

// XLSX renders a report as a workbook with one sheet per table.
func XLSX(report *taxreport.Report) ([]byte, error) {
	const op = "XLSX"
	if err := checkReport(op, report); err != nil {
		return nil, err
	}
	payload := report.Payload
	totals := payload.Totals

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, name := range []string{SheetCountries, SheetTaxNumbers, SheetCharges} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("%s: failed to add sheet %s: %w", op, name, err)
		}
	}

	_ = f.SetCellValue(SheetSummary, "A1", "Tax Report")
	_ = f.SetCellValue(SheetSummary, "B1", report.Period.Label())
	_ = f.SetCellValue(SheetSummary, "A3", "From")
	_ = f.SetCellValue(SheetSummary, "B3", formatDate(report.Period.From))
	_ = f.SetCellValue(SheetSummary, "A4", "To (exclusive)")
	_ = f.SetCellValue(SheetSummary, "B4", formatDate(report.Period.To))
	_ = f.SetCellValue(SheetSummary, "A5", "Generated")
	_ = f.SetCellValue(SheetSummary, "B5", report.GeneratedAt.UTC().Format(time.RFC3339))
	_ = f.SetCellValue(SheetSummary, "A6", "Run")
	_ = f.SetCellValue(SheetSummary, "B6", report.RunID.String())
	_ = f.SetCellValue(SheetSummary, "A7", "Currency")
	_ = f.SetCellValue(SheetSummary, "B7", totals.TransactionVolume.Currency)
	_ = f.SetCellValue(SheetSummary, "A8", "Transaction volume")
	_ = f.SetCellValue(SheetSummary, "B8", totals.TransactionVolume.Amount.InexactFloat64())
	_ = f.SetCellValue(SheetSummary, "A9", "Fee volume")
	_ = f.SetCellValue(SheetSummary, "B9", totals.FeeVolume.Amount.InexactFloat64())
	_ = f.SetCellValue(SheetSummary, "A10", "Charges")
	_ = f.SetCellValue(SheetSummary, "B10", len(payload.Charges))
	_ = f.SetCellValue(SheetSummary, "A11", "Skipped (no owner)")
	_ = f.SetCellValue(SheetSummary, "B11", payload.Skipped)
	if payload.HasMixedCurrency() {
		_ = f.SetCellValue(SheetSummary, "A12", "Currency mismatches")
		_ = f.SetCellValue(SheetSummary, "B12", len(payload.CurrencyMismatches))
	}

	_ = f.SetCellValue(SheetCountries, "A1", "Country")
	_ = f.SetCellValue(SheetCountries, "B1", "Net volume")
	for i, country := range totals.Countries() {
		row := i + 2
		_ = f.SetCellValue(SheetCountries, fmt.Sprintf("A%d", row), country)
		_ = f.SetCellValue(SheetCountries, fmt.Sprintf("B%d", row), totals.VolumeByCountry[country].InexactFloat64())
	}

	_ = f.SetCellValue(SheetTaxNumbers, "A1", "Tax number")
	_ = f.SetCellValue(SheetTaxNumbers, "B1", "Country")
	_ = f.SetCellValue(SheetTaxNumbers, "C1", "Net volume")
	_ = f.SetCellValue(SheetTaxNumbers, "D1", "Currency")
	for i, s := range payload.TaxNumberSummaries {
		row := i + 2
		_ = f.SetCellValue(SheetTaxNumbers, fmt.Sprintf("A%d", row), s.TaxNumber)
		_ = f.SetCellValue(SheetTaxNumbers, fmt.Sprintf("B%d", row), s.Country)
		_ = f.SetCellValue(SheetTaxNumbers, fmt.Sprintf("C%d", row), s.Amount.InexactFloat64())
		_ = f.SetCellValue(SheetTaxNumbers, fmt.Sprintf("D%d", row), s.Currency)
	}

	headers := []string{"Charge", "Created", "Country", "Tax number", "Owner", "Amount", "Fee", "Refunded", "Net", "Currency"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetCharges, cell, h)
	}
	for i := range payload.Charges {
		ec := &payload.Charges[i]
		values := []interface{}{
			ec.Charge.ID,
			formatDate(ec.Charge.Created),
			ec.Country,
			ec.TaxNumber,
			ec.Charge.Owner.ID,
			minorToFloat(ec.Charge.Settlement.Amount),
			minorToFloat(ec.Charge.Settlement.Fee),
			minorToFloat(taxreport.RefundedAmount(&ec.Charge)),
			minorToFloat(taxreport.NetAmount(&ec.Charge)),
			ec.Charge.Settlement.Currency,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetCharges, cell, &values); err != nil {
			return nil, fmt.Errorf("%s: failed to write charge %s: %w", op, ec.Charge.ID, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("%s: failed to write workbook: %w", op, err)
	}
	return buf.Bytes(), nil
}

func minorToFloat(minor int64) float64 {
	return float64(minor) / 100
}
