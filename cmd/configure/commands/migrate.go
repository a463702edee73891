package commands

import (
	"context"
	"fmt"

	"github.com/benvon/apigate/internal/config"
	"github.com/benvon/apigate/internal/database"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the database migration command.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the gateway database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := db.Migrate(context.Background()); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			fmt.Println("Database schema up to date.")
			return nil
		},
	}
}

// openDatabase loads configuration and connects to the gateway database.
func openDatabase() (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}
