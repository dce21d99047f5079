package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-matcher/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "Apply the embedded schema migrations to the database named by database.url (DATABASE_URL).",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Database.URL == "" {
		return errors.New("database.url is required (set DATABASE_URL)")
	}
	if err := db.Migrate(commandContext(cmd), a.cfg.Database.URL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	a.logger.Info("migrations applied")
	return nil
}
