// Package render turns aggregated tax reports into PDF and XLSX documents.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"taxreport/internal/taxreport"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// FileName returns the artifact name for a report, e.g. tax-report-20250101_20260101.pdf.
func FileName(report *taxreport.Report, ext string) string {
	return fmt.Sprintf("tax-report-%s.%s", report.Period.Slug(), strings.TrimPrefix(ext, "."))
}

// PDFRenderer renders reports with PDF.
type PDFRenderer struct{}

// Render renders the report as a PDF document.
func (PDFRenderer) Render(report *taxreport.Report) (taxreport.Artifact, error) {
	data, err := PDF(report)
	if err != nil {
		return taxreport.Artifact{}, err
	}
	return taxreport.Artifact{Name: FileName(report, "pdf"), ContentType: ContentTypePDF, Data: data}, nil
}

// XLSXRenderer renders reports with XLSX.
type XLSXRenderer struct{}

// Render renders the report as an XLSX workbook.
func (XLSXRenderer) Render(report *taxreport.Report) (taxreport.Artifact, error) {
	data, err := XLSX(report)
	if err != nil {
		return taxreport.Artifact{}, err
	}
	return taxreport.Artifact{Name: FileName(report, "xlsx"), ContentType: ContentTypeXLSX, Data: data}, nil
}

func checkReport(op string, report *taxreport.Report) error {
	if report == nil || report.Payload == nil {
		return fmt.Errorf("%s: report has no payload", op)
	}
	return nil
}

func formatAmount(d decimal.Decimal) string {
	return taxreport.FormatAmount(d)
}

func formatMinor(minor int64) string {
	return taxreport.FormatAmount(decimal.New(minor, -2))
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func taxNumberCell(tn string) string {
	if tn == "" {
		return "-"
	}
	return tn
}
