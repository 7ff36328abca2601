package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/ammiranda/category_service/models"
)

var treeJSON bool

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Display the category forest",
	Long: `Display every category nested under its parent, with its id and
boundaries.

Example:
  categoryctl tree
  categoryctl tree --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		forest, err := service.Forest(cmd.Context())
		if err != nil {
			return err
		}

		if treeJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(forest)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderForest(forest))
		return nil
	},
}

// renderForest draws the forest under a single synthetic root.
func renderForest(forest []*models.Category) string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("categories (%d roots)", len(forest)))
	for _, c := range forest {
		addBranch(tree, c)
	}
	return tree.String()
}

func addBranch(tree treeprint.Tree, c *models.Category) {
	label := fmt.Sprintf("%s (id=%d) [%d, %d]", c.Name, c.ID, c.Left, c.Right)
	if len(c.Children) == 0 {
		tree.AddNode(label)
		return
	}
	branch := tree.AddBranch(label)
	for _, child := range c.Children {
		addBranch(branch, child)
	}
}

func init() {
	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "print the forest as JSON")
	rootCmd.AddCommand(treeCmd)
}
