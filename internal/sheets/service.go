package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"taxreport/internal/logger"
	"taxreport/internal/taxreport"
)

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// NewSheetsService creates a new Google Sheets service
func NewSheetsService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewSheetsService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	client := config.Client(ctx)
	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func extractSpreadsheetID(url string) (string, error) {
	re := regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	matches := re.FindStringSubmatch(url)

	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}

	return matches[1], nil
}

// Publisher writes each report to a fixed worksheet.
type Publisher struct {
	service   *Service
	worksheet string
}

// NewPublisher creates a publisher that writes reports to the named worksheet.
func NewPublisher(service *Service, worksheet string) *Publisher {
	return &Publisher{service: service, worksheet: worksheet}
}

// Publish replaces the worksheet content with the report.
func (p *Publisher) Publish(ctx context.Context, report *taxreport.Report) error {
	return p.service.PublishReport(ctx, p.worksheet, report)
}

// PublishReport replaces the content of the worksheet with the report.
func (s *Service) PublishReport(ctx context.Context, sheetName string, report *taxreport.Report) error {
	const op = "PublishReport"

	rows, headerRows := ReportRows(report)

	s.log.Info().
		Str("sheet", sheetName).
		Str("period", report.Period.Label()).
		Int("rows", len(rows)).
		Msg("Publishing tax report to Google Sheet")

	sheetID, err := s.ensureSheet(ctx, sheetName)
	if err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	_, err = s.sheetsService.Spreadsheets.Values.Clear(
		s.spreadsheetID,
		sheetName,
		&sheets.ClearValuesRequest{},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to clear sheet: %w", op, err)
	}

	_, err = s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		sheetName+"!A1",
		&sheets.ValueRange{Values: rows},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to write values to sheet: %w", op, err)
	}

	if err := s.formatHeaders(ctx, sheetID, headerRows); err != nil {
		s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}

	s.log.Info().
		Int("rows_written", len(rows)).
		Msg("Successfully published tax report to Google Sheet")

	return nil
}

// reportColumns is the widest block written by ReportRows.
const reportColumns = 4

// ReportRows lays out a report as sheet rows: a summary block, the net
// volume per country and the net volume per tax number. The second return
// value holds the zero based indices of the header rows.
func ReportRows(report *taxreport.Report) ([][]interface{}, []int64) {
	payload := report.Payload
	totals := payload.Totals

	var rows [][]interface{}
	var headers []int64
	header := func(cells ...interface{}) {
		headers = append(headers, int64(len(rows)))
		rows = append(rows, cells)
	}

	header("Tax Report", report.Period.Label())
	rows = append(rows,
		[]interface{}{"Generated", report.GeneratedAt.UTC().Format(time.RFC3339)},
		[]interface{}{"Run", report.RunID.String()},
		[]interface{}{"Transaction volume", totals.TransactionVolume.Amount.InexactFloat64(), totals.TransactionVolume.Currency},
		[]interface{}{"Fee volume", totals.FeeVolume.Amount.InexactFloat64(), totals.FeeVolume.Currency},
		[]interface{}{"Charges", len(payload.Charges)},
		[]interface{}{"Skipped (no owner)", payload.Skipped},
	)
	if payload.HasMixedCurrency() {
		rows = append(rows, []interface{}{"Currency mismatches", strings.Join(payload.CurrencyMismatches, ", ")})
	}
	rows = append(rows, []interface{}{})

	header("Country", "Net volume")
	for _, country := range totals.Countries() {
		rows = append(rows, []interface{}{country, totals.VolumeByCountry[country].InexactFloat64()})
	}
	rows = append(rows, []interface{}{})

	header("Tax number", "Country", "Net volume", "Currency")
	for _, s := range payload.TaxNumberSummaries {
		rows = append(rows, []interface{}{s.TaxNumber, s.Country, s.Amount.InexactFloat64(), strings.ToUpper(s.Currency)})
	}

	return rows, headers
}

// ensureSheet ensures the sheet exists and returns its id
func (s *Service) ensureSheet(ctx context.Context, sheetName string) (int64, error) {
	const op = "ensureSheet"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			return sheet.Properties.SheetId, nil
		}
	}

	s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")

	batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: sheetName},
			}},
		},
	}

	resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to create sheet: %w", op, err)
	}

	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// formatHeaders makes the header rows bold and resizes the columns
func (s *Service) formatHeaders(ctx context.Context, sheetID int64, headerRows []int64) error {
	const op = "formatHeaders"

	requests := make([]*sheets.Request, 0, len(headerRows)+1)
	for _, row := range headerRows {
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    row,
					EndRowIndex:      row + 1,
					StartColumnIndex: 0,
					EndColumnIndex:   reportColumns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
						BackgroundColor: &sheets.Color{
							Red:   0.9,
							Green: 0.9,
							Blue:  0.9,
						},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		})
	}
	requests = append(requests, &sheets.Request{
		AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
			Dimensions: &sheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "COLUMNS",
				StartIndex: 0,
				EndIndex:   reportColumns,
			},
		},
	})

	batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	_, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}

	return nil
}
