package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"taxreport/internal/taxreport"
)

// PDF renders a report as an A4 document: totals, the country table, the
// tax number table and the charge listing.
func PDF(report *taxreport.Report) ([]byte, error) {
	const op = "PDF"
	if err := checkReport(op, report); err != nil {
		return nil, err
	}
	payload := report.Payload
	totals := payload.Totals

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Tax Report %s", report.Period.Label()), false)
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, fmt.Sprintf("Tax Report %s", report.Period.Label()))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s (exclusive)", formatDate(report.Period.From), formatDate(report.Period.To)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", report.RunID))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Transaction volume: %s", totals.TransactionVolume))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Fee volume: %s", totals.FeeVolume))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Charges: %d (skipped without owner: %d)", len(payload.Charges), payload.Skipped))
	pdf.Ln(5)
	if payload.HasMixedCurrency() {
		pdf.SetTextColor(200, 0, 0)
		pdf.Cell(0, 6, fmt.Sprintf("Warning: %d charges not settled in %s", len(payload.CurrencyMismatches), totals.TransactionVolume.Currency))
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	// Volume by country
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Net volume by country")
	pdf.Ln(7)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Country", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, fmt.Sprintf("Amount (%s)", totals.TransactionVolume.Currency), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, country := range totals.Countries() {
		pdf.CellFormat(60, 6, country, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, formatAmount(totals.VolumeByCountry[country]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	// Volume per tax number
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Net volume per tax number")
	pdf.Ln(7)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Tax number", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Country", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Cur.", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	if len(payload.TaxNumberSummaries) == 0 {
		pdf.CellFormat(170, 6, "No charges with a tax number", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	for _, s := range payload.TaxNumberSummaries {
		pdf.CellFormat(60, 6, s.TaxNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, s.Country, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, formatAmount(s.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, s.Currency, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	// Charges
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Charges")
	pdf.Ln(7)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(45, 6, "Charge", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Country", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Tax number", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.CellFormat(18, 6, "Fee", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Refunded", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for i := range payload.Charges {
		ec := &payload.Charges[i]
		pdf.CellFormat(45, 6, ec.Charge.ID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 6, formatDate(ec.Charge.Created), "1", 0, "C", false, 0, "")
		pdf.CellFormat(28, 6, ec.Country, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, taxNumberCell(ec.TaxNumber), "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 6, formatMinor(ec.Charge.Settlement.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(18, 6, formatMinor(ec.Charge.Settlement.Fee), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, formatMinor(taxreport.RefundedAmount(&ec.Charge)), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: failed to write document: %w", op, err)
	}
	return buf.Bytes(), nil
}
