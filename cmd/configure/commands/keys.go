package commands

import (
	"context"
	"fmt"

	"github.com/benvon/apigate/internal/database"
	"github.com/benvon/apigate/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewKeysCmd creates the API key management command with its subcommands.
func NewKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
		Long:  "Create, list, activate and deactivate API keys. The raw key is printed once at creation.",
	}
	cmd.AddCommand(newKeysCreateCmd())
	cmd.AddCommand(newKeysListCmd())
	cmd.AddCommand(newKeysSetActiveCmd("activate", true))
	cmd.AddCommand(newKeysSetActiveCmd("deactivate", false))
	return cmd
}

func newKeysCreateCmd() *cobra.Command {
	var (
		name string
		rpm  int
		rph  int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := &models.APIKey{
				Name:              name,
				RequestsPerMinute: rpm,
				RequestsPerHour:   rph,
			}
			if err := validator.New().Struct(key); err != nil {
				return fmt.Errorf("invalid key configuration: %w", err)
			}

			rawKey, err := database.GenerateKey()
			if err != nil {
				return err
			}

			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo := database.NewAPIKeyRepository(db)
			if err := repo.Create(context.Background(), key, rawKey); err != nil {
				return err
			}

			fmt.Println("API key created. The raw key is shown only once:")
			fmt.Printf("  ID:       %s\n", key.ID)
			fmt.Printf("  Name:     %s\n", key.Name)
			fmt.Printf("  Key:      %s\n", rawKey)
			fmt.Printf("  Limits:   %d/minute, %d/hour\n", key.RequestsPerMinute, key.RequestsPerHour)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Human-readable name for the key (required)")
	cmd.Flags().IntVar(&rpm, "rpm", models.DefaultRequestsPerMinute, "Requests per minute")
	cmd.Flags().IntVar(&rph, "rph", models.DefaultRequestsPerHour, "Requests per hour")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo := database.NewAPIKeyRepository(db)
			keys, err := repo.List(context.Background())
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("No API keys configured.")
				return nil
			}
			for _, key := range keys {
				state := "active"
				if !key.Active {
					state = "inactive"
				}
				fmt.Printf("%s  %s...  %-20s  %d/min %d/hour  %s\n",
					key.ID, key.KeyPrefix, key.Name,
					key.RequestsPerMinute, key.RequestsPerHour, state)
			}
			return nil
		},
	}
}

func newKeysSetActiveCmd(verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <key-id>",
		Short: verb + " an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid key id %q: %w", args[0], err)
			}

			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo := database.NewAPIKeyRepository(db)
			if err := repo.SetActive(context.Background(), id, active); err != nil {
				return err
			}
			fmt.Printf("Key %s %sd.\n", id, verb)
			return nil
		},
	}
}
