package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ammiranda/category_service/models"
)

var (
	createSlug   string
	createParent int64
	createBefore int64
	createAfter  int64
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a category",
	Long: `Create a category as the last child of --parent, directly before or
after a sibling, or as the last root when no position is given.

Examples:
  categoryctl create "Electronics"
  categoryctl create "Phones" --parent 1
  categoryctl create "Tablets" --before 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := service.Create(cmd.Context(), &models.CreateCategoryRequest{
			Name:     args[0],
			Slug:     createSlug,
			ParentID: optionalID(createParent),
			BeforeID: optionalID(createBefore),
			AfterID:  optionalID(createAfter),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %d %s [%d, %d]\n", c.ID, c.Slug, c.Left, c.Right)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createSlug, "slug", "", "slug (derived from the name when empty)")
	createCmd.Flags().Int64Var(&createParent, "parent", 0, "parent category id")
	createCmd.Flags().Int64Var(&createBefore, "before", 0, "create directly before this sibling")
	createCmd.Flags().Int64Var(&createAfter, "after", 0, "create directly after this sibling")
	createCmd.MarkFlagsMutuallyExclusive("parent", "before", "after")
	rootCmd.AddCommand(createCmd)
}
