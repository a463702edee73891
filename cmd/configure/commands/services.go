package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/apigate/internal/database"
	"github.com/benvon/apigate/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

// NewServicesCmd creates the downstream service management command.
func NewServicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Manage downstream services",
		Long:  "Add, list and remove the backend services the gateway can forward to.",
	}
	cmd.AddCommand(newServicesAddCmd())
	cmd.AddCommand(newServicesListCmd())
	cmd.AddCommand(newServicesShowCmd())
	cmd.AddCommand(newServicesRemoveCmd())
	return cmd
}

func newServicesAddCmd() *cobra.Command {
	var (
		name       string
		baseURL    string
		healthPath string
		timeout    int
		inactive   bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a downstream service",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := &models.ServiceConfig{
				Name:            name,
				BaseURL:         baseURL,
				HealthCheckPath: healthPath,
				TimeoutSeconds:  timeout,
				Active:          !inactive,
			}
			if err := validator.New().Struct(svc); err != nil {
				return fmt.Errorf("invalid service configuration: %w", err)
			}

			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo := database.NewServiceRepository(db)
			if err := repo.Upsert(context.Background(), svc); err != nil {
				return err
			}
			fmt.Printf("Service %q -> %s (timeout %ds)\n", svc.Name, svc.BaseURL, svc.TimeoutSeconds)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Service name, the path segment clients use (required)")
	cmd.Flags().StringVar(&baseURL, "url", "", "Base URL of the backend (required)")
	cmd.Flags().StringVar(&healthPath, "health-path", models.DefaultHealthCheckPath, "Health check path")
	cmd.Flags().IntVar(&timeout, "timeout", int(models.DefaultServiceTimeout.Seconds()), "Forwarding timeout in seconds")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Register the service as disabled")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newServicesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List downstream services",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo := database.NewServiceRepository(db)
			services, err := repo.List(context.Background())
			if err != nil {
				return err
			}
			if len(services) == 0 {
				fmt.Println("No services configured.")
				return nil
			}
			for _, svc := range services {
				state := "active"
				if !svc.Active {
					state = "inactive"
				}
				fmt.Printf("%-20s  %s  health=%s  timeout=%ds  %s\n",
					svc.Name, svc.BaseURL, svc.HealthPath(), svc.TimeoutSeconds, state)
			}
			return nil
		},
	}
}

func newServicesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one downstream service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo := database.NewServiceRepository(db)
			svc, err := repo.GetByName(context.Background(), args[0])
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("service %q is not configured", args[0])
				}
				return err
			}

			state := "active"
			if !svc.Active {
				state = "inactive"
			}
			fmt.Printf("Name:         %s\n", svc.Name)
			fmt.Printf("Base URL:     %s\n", svc.BaseURL)
			fmt.Printf("Health path:  %s\n", svc.HealthPath())
			fmt.Printf("Timeout:      %ds\n", svc.TimeoutSeconds)
			fmt.Printf("State:        %s\n", state)
			fmt.Printf("Updated:      %s\n", svc.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newServicesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a downstream service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo := database.NewServiceRepository(db)
			if err := repo.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Service %q removed.\n", args[0])
			return nil
		},
	}
}
