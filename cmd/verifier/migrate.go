package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long:  "Applies the schema to the database named by DATABASE_URL (a postgres:// URL or a SQLite file path).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := db.Open(cmd.Context(), appConfig.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schema applied to %s\n", appConfig.DatabaseURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
