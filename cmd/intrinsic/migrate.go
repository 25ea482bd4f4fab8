package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/intrinsic/internal/core"
	"github.com/newthinker/intrinsic/internal/storage/record"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the financial record table in the configured database",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.DSN == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("database.dsn (or DATABASE_URL) is not set"))
	}

	store, err := record.Open(cmd.Context(), cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	fmt.Println("financial_data table ready")
	return nil
}
