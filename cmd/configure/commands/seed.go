package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benvon/apigate/internal/database"
	"github.com/benvon/apigate/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML shape consumed by the seed command.
type seedFile struct {
	Services []*models.ServiceConfig `yaml:"services"`
}

// NewSeedCmd creates the service seeding command. It bulk-loads downstream
// service configuration from a YAML file, validating every entry first.
func NewSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load downstream services from a YAML file",
		Long: `Load downstream service configuration from a YAML file, for example:

services:
  - name: user-service
    base_url: http://users.internal:8000
    health_check_path: /health
    timeout_seconds: 30
    active: true`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}

			var seed seedFile
			if err := yaml.Unmarshal(raw, &seed); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}
			if len(seed.Services) == 0 {
				return fmt.Errorf("seed file %q contains no services", file)
			}

			validate := validator.New()
			for _, svc := range seed.Services {
				if err := validate.Struct(svc); err != nil {
					return fmt.Errorf("invalid service %q: %w", svc.Name, err)
				}
			}

			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo := database.NewServiceRepository(db)
			for _, svc := range seed.Services {
				if err := repo.Upsert(context.Background(), svc); err != nil {
					return err
				}
				fmt.Printf("Seeded service %q -> %s\n", svc.Name, svc.BaseURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "services.yaml", "Path to the YAML seed file")
	return cmd
}
