package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/MetaboScope/internal/infrastructure/database/postgres"
	"github.com/turtacn/MetaboScope/pkg/errors"
)

// NewMigrateCmd manages the snapshot database schema.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply all pending migrations", cobra.NoArgs,
			func(m *postgres.Migrator, cmd *cobra.Command, _ []string) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printMigrationState(cmd, m)
			}),
		migrateSubcommand("down [steps]", "Roll back migrations (default one step)", cobra.MaximumNArgs(1),
			func(m *postgres.Migrator, cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return errors.InvalidParam("steps must be a positive integer")
					}
					steps = n
				}
				if err := m.Down(steps); err != nil {
					return err
				}
				return printMigrationState(cmd, m)
			}),
		migrateSubcommand("status", "Show the current schema version", cobra.NoArgs,
			func(m *postgres.Migrator, cmd *cobra.Command, _ []string) error {
				return printMigrationState(cmd, m)
			}),
		migrateSubcommand("force <version>", "Mark a version as applied and clear the dirty flag", cobra.ExactArgs(1),
			func(m *postgres.Migrator, cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.InvalidParam("version must be an integer")
				}
				if err := m.Force(v); err != nil {
					return err
				}
				return printMigrationState(cmd, m)
			}),
	)
	return cmd
}

func migrateSubcommand(use, short string, args cobra.PositionalArgs, run func(*postgres.Migrator, *cobra.Command, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if !cliCtx.Config.Database.Enabled {
				return disabled("database")
			}
			m, err := postgres.NewMigrator(postgres.BuildDSN(postgresConfig(cliCtx.Config.Database)), cliCtx.Logger)
			if err != nil {
				return err
			}
			defer m.Close()
			return run(m, cmd, args)
		},
	}
}

type migrationResult postgres.MigrationState

func (r migrationResult) TableHeaders() []string { return []string{"VERSION", "DIRTY"} }

func (r migrationResult) TableRows() [][]string {
	return [][]string{{strconv.FormatUint(uint64(r.Version), 10), strconv.FormatBool(r.Dirty)}}
}

func printMigrationState(cmd *cobra.Command, m *postgres.Migrator) error {
	st, err := m.Status()
	if err != nil {
		return err
	}
	return PrintResult(cmd, migrationResult(st))
}
