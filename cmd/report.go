package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"taxreport/internal/country"
	"taxreport/internal/logger"
	"taxreport/internal/mailer"
	"taxreport/internal/metrics"
	"taxreport/internal/render"
	"taxreport/internal/sheets"
	"taxreport/internal/taxreport"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the tax report for a year or a date range",
	Long: `Generate the tax report for a period from the charges in the store.

The report contains the gross transaction volume, the fee volume, the net
settled volume per customer country and the net volume per customer tax
number. It is rendered as PDF (and XLSX with --xlsx) into the output
directory, published to Google Sheets when GOOGLE_SHEET_URL is set and
mailed when MAIL_ENABLED is set.

Optional environment variables:
  REPORT_OUTPUT_DIR - Directory for rendered documents (default: reports)
  REPORT_STRICT_CURRENCY - Fail when charges use more than one currency
  REPORT_TIMEOUT - Upper bound for the whole run (default: 5m)
  GOOGLE_SHEET_URL - Spreadsheet to publish the report to
  GOOGLE_SHEET_WORKSHEET - Worksheet name (default: Tax_Report)
  MAIL_ENABLED, MAILGUN_DOMAIN, MAILGUN_API_KEY, MAIL_FROM, MAIL_TO
  PUSHGATEWAY_URL - Pushgateway for run metrics`,
	Example: `  # Report for the calendar year 2025
  taxreport report --year 2025

  # Report for the second quarter, with XLSX, without mail
  taxreport report --from 2025-04-01 --to 2025-06-30 --xlsx --no-mail

  # Print the report as JSON without writing or sending anything
  taxreport report --year 2025 --dry-run --json`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Int("year", 0, "Calendar year to report")
	reportCmd.Flags().String("from", "", "First day of the period (YYYY-MM-DD)")
	reportCmd.Flags().String("to", "", "Last day of the period, inclusive (YYYY-MM-DD)")
	reportCmd.Flags().String("out", "", "Output directory (overrides REPORT_OUTPUT_DIR)")
	reportCmd.Flags().Bool("xlsx", false, "Also render an XLSX workbook")
	reportCmd.Flags().Bool("json", false, "Print the report as JSON to stdout")
	reportCmd.Flags().Bool("no-mail", false, "Do not mail the report")
	reportCmd.Flags().Bool("no-sheet", false, "Do not publish the report to Google Sheets")
	reportCmd.Flags().Bool("dry-run", false, "Compute and render the report but don't write, publish or send it")
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report")

	year, _ := cmd.Flags().GetInt("year")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	outDir, _ := cmd.Flags().GetString("out")
	withXLSX, _ := cmd.Flags().GetBool("xlsx")
	asJSON, _ := cmd.Flags().GetBool("json")
	noMail, _ := cmd.Flags().GetBool("no-mail")
	noSheet, _ := cmd.Flags().GetBool("no-sheet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	period, err := taxreport.ParsePeriod(year, from, to)
	if err != nil {
		return fmt.Errorf("invalid period: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.OutputDir = outDir
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ReportTimeout)
	defer cancel()

	table, err := country.Load()
	if err != nil {
		return err
	}

	db, repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	renderers := []taxreport.Renderer{render.PDFRenderer{}}
	if withXLSX {
		renderers = append(renderers, render.XLSXRenderer{})
	}

	var publishers []taxreport.Publisher
	if cfg.GoogleSheetURL != "" && !noSheet && !dryRun {
		svc, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to initialize Google Sheets: %w", err)
		}
		publishers = append(publishers, sheets.NewPublisher(svc, cfg.GoogleSheetWorksheet))
	}

	var deliverer taxreport.Deliverer
	if !noMail {
		deliverer = mailer.NewReportMailer(mailer.New(cfg))
	}

	runMetrics := metrics.NewRunMetrics()

	pipeline, err := taxreport.NewPipeline(taxreport.PipelineConfig{
		Engine:         taxreport.NewEngine(table),
		Source:         repo,
		Renderers:      renderers,
		Publishers:     publishers,
		Deliverer:      deliverer,
		Recorder:       runMetrics,
		OutputDir:      cfg.OutputDir,
		StrictCurrency: cfg.StrictCurrency,
		DryRun:         dryRun,
	})
	if err != nil {
		return err
	}

	result, runErr := pipeline.Run(ctx, period)

	if cfg.PushgatewayURL != "" && !dryRun {
		if err := runMetrics.Push(context.Background(), cfg.PushgatewayURL); err != nil {
			log.Warn().Err(err).Msg("Failed to push run metrics, continuing anyway")
		}
	}

	if runErr != nil {
		if errors.Is(runErr, taxreport.ErrEmptyInput) {
			fmt.Printf("Nothing to report for %s: no charges with an owner\n", period.Label())
		}
		return runErr
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Report)
	}

	printReport(result)
	return nil
}

func printReport(result *taxreport.RunResult) {
	report := result.Report
	payload := report.Payload
	totals := payload.Totals

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("                 TAX REPORT %s\n", report.Period.Label())
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Transaction volume: %s\n", totals.TransactionVolume)
	fmt.Printf("Fee volume:         %s\n", totals.FeeVolume)
	fmt.Printf("Charges:            %d (skipped without owner: %d)\n", len(payload.Charges), payload.Skipped)
	if payload.HasMixedCurrency() {
		fmt.Printf("WARNING: %d charges not settled in %s\n", len(payload.CurrencyMismatches), totals.TransactionVolume.Currency)
	}

	fmt.Println()
	fmt.Println("Net volume by country:")
	for _, c := range totals.Countries() {
		fmt.Printf("  %-20s %12s\n", c, taxreport.FormatAmount(totals.VolumeByCountry[c]))
	}

	if len(payload.TaxNumberSummaries) > 0 {
		fmt.Println()
		fmt.Println("Net volume per tax number:")
		for _, s := range payload.TaxNumberSummaries {
			fmt.Printf("  %-20s %-20s %12s %s\n", s.TaxNumber, s.Country, taxreport.FormatAmount(s.Amount), strings.ToUpper(s.Currency))
		}
	}

	if len(result.Files) > 0 {
		fmt.Println()
		fmt.Println("Files:")
		for _, f := range result.Files {
			fmt.Printf("  %s\n", f)
		}
	}
	fmt.Println(strings.Repeat("=", 60))
}
