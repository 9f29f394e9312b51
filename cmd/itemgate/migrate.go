package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate/config"
	"github.com/sagarc03/itemgate/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and validate the database tables",
	Long: `Create the users, credentials and items tables if they do not
exist, then check that their columns match what itemgate expects.

With --check the tables are only validated.`,
	RunE: runMigrate,
}

var migrateCheckOnly bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateCheckOnly, "check", false, "only validate the existing schema")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if !migrateCheckOnly {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		slog.Info("database migration complete", "type", cfg.Database.Type)
	}

	if err := db.Validate(ctx); err != nil {
		return fmt.Errorf("validate database schema: %w", err)
	}

	slog.Info("database schema is valid",
		"users", cfg.Database.Tables.Users,
		"credentials", cfg.Database.Tables.Credentials,
		"items", cfg.Database.Tables.Items,
	)
	return nil
}
