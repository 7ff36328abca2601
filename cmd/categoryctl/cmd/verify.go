package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the tree boundaries",
	Long: `Check every stored boundary against the nested-set rules and report
the violations by kind. Exits non-zero when any violation is found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := service.Verify(cmd.Context())
		if err != nil {
			return err
		}
		if report.Total() > 0 {
			return fmt.Errorf("tree has %d violations: %s", report.Total(), report)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Tree is consistent")
		return nil
	},
}

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Rebuild the tree boundaries from parent links",
	Long: `Recompute every boundary from the stored parent ids. Siblings keep
their current order; categories whose parent is missing become roots.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := service.Fix(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tree rebuilt, %d violations remain\n", report.Total())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(fixCmd)
}
