package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/turtacn/ReactEA/internal/infrastructure/database/postgres"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
)

// NewMigrateCmd manages the run store schema.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL run store schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, logger, err := databaseURL(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(url); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return printMigrationStatus(cmd, url)
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, logger, err := databaseURL(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(url, steps); err != nil {
				return err
			}
			logger.Info("migrations rolled back", logging.Int("steps", steps))
			return printMigrationStatus(cmd, url)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _, err := databaseURL(cmd)
			if err != nil {
				return err
			}
			return printMigrationStatus(cmd, url)
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

func databaseURL(cmd *cobra.Command) (string, logging.Logger, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return "", nil, err
	}
	cfg, err := cliCtx.RequireConfig()
	if err != nil {
		return "", nil, err
	}
	return postgres.BuildConnString(cfg.Database), cliCtx.Logger, nil
}

func printMigrationStatus(cmd *cobra.Command, url string) error {
	version, dirty, err := postgres.MigrationStatus(url)
	if err != nil {
		return err
	}
	bundled, err := postgres.MigrationVersions()
	if err != nil {
		return err
	}
	return PrintResult(cmd, newMigrationStatus(version, dirty, bundled))
}

type migrationStatus struct {
	Version uint   `json:"version"`
	Dirty   bool   `json:"dirty"`
	Latest  uint   `json:"latest"`
	Pending []uint `json:"pending,omitempty"`
}

func newMigrationStatus(version uint, dirty bool, bundled []uint) migrationStatus {
	st := migrationStatus{Version: version, Dirty: dirty}
	for _, v := range bundled {
		if v > st.Latest {
			st.Latest = v
		}
		if v > version {
			st.Pending = append(st.Pending, v)
		}
	}
	return st
}

func (s migrationStatus) String() string {
	out := fmt.Sprintf("schema version %d of %d, %d pending", s.Version, s.Latest, len(s.Pending))
	if s.Dirty {
		out += " (dirty: a migration failed halfway, fix it and force the version)"
	}
	return out
}
