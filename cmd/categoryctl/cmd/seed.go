package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ammiranda/category_service/category"
	"github.com/ammiranda/category_service/models"
)

const seedRootSlug = "test-root"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a test root and child and check them",
	Long: `Create "Test Root" with a "Test Child" below it and confirm the child
is a descendant of the root. Does nothing when the test root already exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return seed(cmd.Context(), service, cmd.OutOrStdout())
	},
}

func seed(ctx context.Context, svc *category.Service, out io.Writer) error {
	forest, err := svc.Forest(ctx)
	if err != nil {
		return err
	}
	present := false
	for _, r := range forest {
		r.Walk(func(c *models.Category) {
			present = present || c.Slug == seedRootSlug
		})
	}
	if present {
		fmt.Fprintln(out, "Test root already present")
		return nil
	}

	root, err := svc.Create(ctx, &models.CreateCategoryRequest{Name: "Test Root", Slug: seedRootSlug})
	if err != nil {
		return err
	}
	child, err := svc.Create(ctx, &models.CreateCategoryRequest{Name: "Test Child", Slug: "test-child", ParentID: &root.ID})
	if err != nil {
		return err
	}

	ok, err := svc.IsDescendantOf(ctx, child.ID, root.ID)
	if err != nil {
		return err
	}
	if !ok {
		root, _ = svc.Get(ctx, root.ID)
		child, _ = svc.Get(ctx, child.ID)
		return fmt.Errorf("tree integrity check failed: child [%d, %d] is not inside root [%d, %d]",
			child.Left, child.Right, root.Left, root.Right)
	}

	fmt.Fprintln(out, "Nested set integrity check passed")
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
