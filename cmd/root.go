package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taxreport/internal/config"
	"taxreport/internal/logger"
	"taxreport/internal/store"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "taxreport",
	Short: "Taxreport - periodic tax reports from payment processor charges",
	Long: `Taxreport aggregates the charges of a payment processor account into a
tax report: gross transaction and fee volume, net volume per customer
country and net volume per customer tax number.

Charges are imported from processor JSON exports into a local SQLite
store. Reports are rendered as PDF (and optionally XLSX), written to the
output directory, published to Google Sheets and mailed via Mailgun when
configured.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Taxreport CLI executed")

		fmt.Println("Welcome to Taxreport!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		_ = logger.Close()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
	rootCmd.PersistentFlags().String("db", "", "Path of the SQLite charge store (overrides DATABASE_PATH)")
}

// loadConfig loads the configuration and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DatabasePath = db
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*sql.DB, *store.ChargeRepo, error) {
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open charge store %s: %w", cfg.DatabasePath, err)
	}
	return db, store.NewChargeRepo(db), nil
}
