package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ammiranda/category_service/models"
)

var (
	moveParent int64
	moveBefore int64
	moveAfter  int64
)

var moveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Move a category and its subtree",
	Long: `Move a category with everything below it. Without a position the
category becomes the last root. Moving a category into its own subtree is
rejected.

Examples:
  categoryctl move 5 --parent 2     # last child of 2
  categoryctl move 5 --after 3      # next to sibling 3
  categoryctl move 5                # promote to root`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := service.Move(cmd.Context(), id, &models.MoveCategoryRequest{
			ParentID: optionalID(moveParent),
			BeforeID: optionalID(moveBefore),
			AfterID:  optionalID(moveAfter),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved %d to [%d, %d]\n", c.ID, c.Left, c.Right)
		return nil
	},
}

func init() {
	moveCmd.Flags().Int64Var(&moveParent, "parent", 0, "new parent category id")
	moveCmd.Flags().Int64Var(&moveBefore, "before", 0, "place directly before this sibling")
	moveCmd.Flags().Int64Var(&moveAfter, "after", 0, "place directly after this sibling")
	moveCmd.MarkFlagsMutuallyExclusive("parent", "before", "after")
	rootCmd.AddCommand(moveCmd)
}
