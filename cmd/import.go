package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taxreport/internal/logger"
	"taxreport/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import [export.json]",
	Short: "Import charges from a processor JSON export into the charge store",
	Long: `Import charges with their owners and refunds from a JSON export.

The export is a JSON array of charge objects (id, created, country,
source_country, tax_number, owner, settlement, refunds). Charges that are
already stored are replaced, including their refunds, so re-importing an
updated export is safe.`,
	Example: `  # Import an export into the default store
  taxreport import ./exports/charges-2025.json

  # Import into a specific store
  taxreport import ./exports/charges-2025.json --db ./data/taxreport.db`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import")
	path := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	charges, err := store.ReadExport(f)
	if err != nil {
		return fmt.Errorf("failed to read export %s: %w", path, err)
	}

	db, repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repo.Upsert(cmd.Context(), charges)
	if err != nil {
		return fmt.Errorf("failed to store charges: %w", err)
	}

	total, err := repo.Count(cmd.Context())
	if err != nil {
		return err
	}

	log.Info().
		Str("file", path).
		Int("imported", n).
		Int("stored", total).
		Msg("Charges imported")

	fmt.Printf("Imported %d charges from %s (%d charges in store)\n", n, path, total)
	return nil
}
