package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ammiranda/category_service/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect or roll back the schema",
	Long: `Pending migrations are applied whenever the store is opened; these
subcommands report the applied version or revert the latest migration.`,
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := migrator()
		if err != nil {
			return err
		}
		version, dirty, err := m.SchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := migrator()
		if err != nil {
			return err
		}
		if err := m.Rollback(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Rolled back one migration")
		return nil
	},
}

func migrator() (repository.Migrator, error) {
	m, ok := store.(repository.Migrator)
	if !ok {
		return nil, fmt.Errorf("store %T has no schema migrations", store)
	}
	return m, nil
}

func init() {
	migrateCmd.AddCommand(migrateVersionCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}
