package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammiranda/category_service/category"
	"github.com/ammiranda/category_service/internal/logger"
	"github.com/ammiranda/category_service/models"
	"github.com/ammiranda/category_service/nestedset"
	"github.com/ammiranda/category_service/repository"
)

func newTestService(t *testing.T) *category.Service {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Initialize(context.Background()))
	log := logger.Discard()
	return category.NewService(nestedset.New(store, nestedset.WithLogger(log)), nil, log)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var out bytes.Buffer
	require.NoError(t, seed(ctx, svc, &out))
	assert.Contains(t, out.String(), "integrity check passed")

	out.Reset()
	require.NoError(t, seed(ctx, svc, &out))
	assert.Contains(t, out.String(), "already present")

	roots, err := svc.Children(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)

	children, err := svc.Children(ctx, &roots[0].ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "test-child", children[0].Slug)
}

func TestSeedFindsMovedTestRoot(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var out bytes.Buffer
	require.NoError(t, seed(ctx, svc, &out))

	roots, err := svc.Children(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	testRoot := roots[0]

	other, err := svc.Create(ctx, &models.CreateCategoryRequest{Name: "Archive"})
	require.NoError(t, err)
	_, err = svc.MoveToParent(ctx, testRoot.ID, &other.ID)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, seed(ctx, svc, &out))
	assert.Contains(t, out.String(), "already present")

	forest, err := svc.Forest(ctx)
	require.NoError(t, err)
	count := 0
	for _, r := range forest {
		r.Walk(func(c *models.Category) {
			if c.Slug == "test-root" {
				count++
			}
		})
	}
	assert.Equal(t, 1, count)
}

func TestRenderForest(t *testing.T) {
	forest := []*models.Category{
		{
			ID: 1, Name: "Root", Left: 1, Right: 4,
			Children: []*models.Category{
				{ID: 2, Name: "Child", Left: 2, Right: 3, Children: []*models.Category{}},
			},
		},
		{ID: 3, Name: "Other", Left: 5, Right: 6, Children: []*models.Category{}},
	}

	out := renderForest(forest)
	assert.Contains(t, out, "categories (2 roots)")
	assert.Contains(t, out, "Root (id=1) [1, 4]")
	assert.Contains(t, out, "Child (id=2) [2, 3]")
	assert.Contains(t, out, "Other (id=3) [5, 6]")
}

func TestCommandsAgainstMemoryStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.ExecuteContext(context.Background()))
		return out.String()
	}

	// Every invocation opens a fresh memory store, so each run is self-contained.
	assert.Contains(t, run("create", "Electronics"), "Created 1 electronics [1, 2]")
	assert.Contains(t, run("seed"), "integrity check passed")
	assert.Contains(t, run("verify"), "Tree is consistent")
	assert.Contains(t, run("tree"), "categories (0 roots)")
}
