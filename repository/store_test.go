package repository

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammiranda/category_service/config"
	"github.com/ammiranda/category_service/internal/logger"
	"github.com/ammiranda/category_service/nestedset"
)

type storeFactory func(t *testing.T) Store

func newSQLiteTestStore(t *testing.T) Store {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "categories.db"))
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { store.Cleanup(context.Background()) })
	return store
}

func newMemoryTestStore(t *testing.T) Store {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func newPostgresTestStore(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	cfg, err := config.GetDatabaseConfig(ctx, config.NewEnvProvider(""))
	require.NoError(t, err)

	store := NewPostgresStore(cfg)
	require.NoError(t, store.Initialize(ctx))
	require.NoError(t, clearRows(ctx, store))
	t.Cleanup(func() {
		clearRows(ctx, store)
		store.Cleanup(ctx)
	})
	return store
}

// clearRows removes every row so integration runs start empty.
func clearRows(ctx context.Context, store Store) error {
	return store.WithTx(ctx, func(tx nestedset.Tx) error {
		nodes, err := tx.All(ctx)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if err := tx.Remove(ctx, n.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func stores() map[string]storeFactory {
	factories := map[string]storeFactory{
		"memory": newMemoryTestStore,
		"sqlite": newSQLiteTestStore,
	}
	if os.Getenv("DB_HOST") != "" {
		factories["postgres"] = newPostgresTestStore
	}
	return factories
}

func TestStores(t *testing.T) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			t.Run("rows", func(t *testing.T) { testRows(t, factory(t)) })
			t.Run("boundary primitives", func(t *testing.T) { testPrimitives(t, factory(t)) })
			t.Run("rollback", func(t *testing.T) { testRollback(t, factory(t)) })
			t.Run("tree", func(t *testing.T) { testTree(t, factory(t)) })
			t.Run("random operations", func(t *testing.T) { testRandomOperations(t, factory(t), 150) })
		})
	}
}

// seedRows writes root(1,6) > child(2,3), child(4,5) and a second root(7,8).
func seedRows(t *testing.T, store Store) (root, a, b, other int64) {
	t.Helper()
	ctx := context.Background()
	err := store.WithTx(ctx, func(tx nestedset.Tx) error {
		var err error
		if root, err = tx.Insert(ctx, &nestedset.Node{Left: 1, Right: 6, Payload: nestedset.Payload{Name: "Root", Slug: "root"}}); err != nil {
			return err
		}
		if a, err = tx.Insert(ctx, &nestedset.Node{ParentID: &root, Left: 2, Right: 3, Payload: nestedset.Payload{Name: "A", Slug: "a"}}); err != nil {
			return err
		}
		if b, err = tx.Insert(ctx, &nestedset.Node{ParentID: &root, Left: 4, Right: 5, Payload: nestedset.Payload{Name: "B", Slug: "b"}}); err != nil {
			return err
		}
		other, err = tx.Insert(ctx, &nestedset.Node{Left: 7, Right: 8, Payload: nestedset.Payload{Name: "Other", Slug: "other"}})
		return err
	})
	require.NoError(t, err)
	return root, a, b, other
}

func nodeIDs(nodes []*nestedset.Node) []int64 {
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func testRows(t *testing.T, store Store) {
	ctx := context.Background()
	root, a, b, other := seedRows(t, store)

	err := store.View(ctx, func(r nestedset.Reader) error {
		n, err := r.Get(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, "A", n.Payload.Name)
		assert.Equal(t, "a", n.Payload.Slug)
		require.NotNil(t, n.ParentID)
		assert.Equal(t, root, *n.ParentID)

		_, err = r.Get(ctx, 9999)
		assert.ErrorIs(t, err, nestedset.ErrNotFound)

		roots, err := r.Children(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []int64{root, other}, nodeIDs(roots))

		children, err := r.Children(ctx, &root)
		require.NoError(t, err)
		assert.Equal(t, []int64{a, b}, nodeIDs(children))

		inside, err := r.Range(ctx, 1, 6)
		require.NoError(t, err)
		assert.Equal(t, []int64{a, b}, nodeIDs(inside))

		enclosing, err := r.Enclosing(ctx, 4, 5)
		require.NoError(t, err)
		assert.Equal(t, []int64{root}, nodeIDs(enclosing))

		all, err := r.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{root, a, b, other}, nodeIDs(all))
		return nil
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(tx nestedset.Tx) error {
		max, err := tx.MaxRight(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(8), max)

		require.NoError(t, tx.UpdatePayload(ctx, b, nestedset.Payload{Name: "Bee", Slug: "bee"}))
		require.NoError(t, tx.SetParent(ctx, other, &root))
		assert.ErrorIs(t, tx.SetParent(ctx, 9999, nil), nestedset.ErrNotFound)
		assert.ErrorIs(t, tx.Remove(ctx, 9999), nestedset.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	err = store.View(ctx, func(r nestedset.Reader) error {
		n, err := r.Get(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, "Bee", n.Payload.Name)

		n, err = r.Get(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, root, *n.ParentID)
		return nil
	})
	require.NoError(t, err)
}

func testPrimitives(t *testing.T, store Store) {
	ctx := context.Background()
	root, a, b, other := seedRows(t, store)

	bounds := func() map[int64][2]int64 {
		out := map[int64][2]int64{}
		require.NoError(t, store.View(ctx, func(r nestedset.Reader) error {
			all, err := r.All(ctx)
			for _, n := range all {
				out[n.ID] = [2]int64{n.Left, n.Right}
			}
			return err
		}))
		return out
	}

	// Move a to the end of the forest the way the tree does.
	err := store.WithTx(ctx, func(tx nestedset.Tx) error {
		if err := tx.Detach(ctx, 2, 3); err != nil {
			return err
		}
		if err := tx.Shift(ctx, 4, -2); err != nil {
			return err
		}
		max, err := tx.MaxRight(ctx)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(6), max, "detached rows are ignored")
		return tx.Attach(ctx, max+1-2)
	})
	require.NoError(t, err)

	assert.Equal(t, map[int64][2]int64{
		root:  {1, 4},
		b:     {2, 3},
		other: {5, 6},
		a:     {7, 8},
	}, bounds())

	err = store.WithTx(ctx, func(tx nestedset.Tx) error {
		return tx.SetBounds(ctx, a, 20, 21)
	})
	require.NoError(t, err)
	assert.Equal(t, [2]int64{20, 21}, bounds()[a])
}

func testRollback(t *testing.T, store Store) {
	ctx := context.Background()
	root, _, _, _ := seedRows(t, store)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx nestedset.Tx) error {
		if err := tx.Shift(ctx, 1, 100); err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, &nestedset.Node{Left: 1, Right: 2, Payload: nestedset.Payload{Name: "X", Slug: "x"}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.View(ctx, func(r nestedset.Reader) error {
		all, err := r.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)
		n, err := r.Get(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n.Left)
		return nil
	})
	require.NoError(t, err)
}

func testTree(t *testing.T, store Store) {
	ctx := context.Background()
	tree := nestedset.New(store, nestedset.WithLogger(logger.Discard()))

	r1, err := tree.Create(ctx, nil, nestedset.Payload{Name: "R1", Slug: "r1"})
	require.NoError(t, err)
	r2, err := tree.Create(ctx, nil, nestedset.Payload{Name: "R2", Slug: "r2"})
	require.NoError(t, err)
	c, err := tree.Create(ctx, &r1.ID, nestedset.Payload{Name: "C", Slug: "c"})
	require.NoError(t, err)
	g, err := tree.Create(ctx, &c.ID, nestedset.Payload{Name: "G", Slug: "g"})
	require.NoError(t, err)

	require.NoError(t, tree.Move(ctx, c.ID, &r2.ID))
	in, err := tree.IsDescendantOf(ctx, g.ID, r2.ID)
	require.NoError(t, err)
	assert.True(t, in)

	assert.ErrorIs(t, tree.Move(ctx, r2.ID, &g.ID), nestedset.ErrCycle)

	require.NoError(t, tree.Delete(ctx, c.ID))
	n, err := tree.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, r2.ID, *n.ParentID)
	assert.Equal(t, 1, n.Depth)

	count, err := tree.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// parentChainContains walks parent ids upward from id looking for ancestorID.
func parentChainContains(byID map[int64]*nestedset.Node, id, ancestorID int64) bool {
	n := byID[id]
	for n.ParentID != nil {
		if *n.ParentID == ancestorID {
			return true
		}
		n = byID[*n.ParentID]
	}
	return false
}

// testRandomOperations applies a seeded mix of creates, moves, sibling moves
// and deletes, checking the boundary encoding after every step.
func testRandomOperations(t *testing.T, store Store, steps int) {
	ctx := context.Background()
	tree := nestedset.New(store, nestedset.WithLogger(logger.Discard()))
	rng := rand.New(rand.NewSource(7))

	var live []int64
	pick := func() int64 { return live[rng.Intn(len(live))] }

	for step := 0; step < steps; step++ {
		op := rng.Intn(10)
		var err error
		switch {
		case len(live) < 3 || op < 4:
			var parent *int64
			if len(live) > 0 && rng.Intn(4) > 0 {
				parent = nestedset.Int64(pick())
			}
			var n *nestedset.Node
			n, err = tree.Create(ctx, parent, nestedset.Payload{Name: "n", Slug: "n"})
			if err == nil {
				live = append(live, n.ID)
			}
		case op < 6:
			var target *int64
			if rng.Intn(5) > 0 {
				target = nestedset.Int64(pick())
			}
			err = tree.Move(ctx, pick(), target)
		case op < 8:
			if rng.Intn(2) == 0 {
				err = tree.MoveBefore(ctx, pick(), pick())
			} else {
				err = tree.MoveAfter(ctx, pick(), pick())
			}
		default:
			i := rng.Intn(len(live))
			err = tree.Delete(ctx, live[i])
			if err == nil {
				live = append(live[:i], live[i+1:]...)
			}
		}
		if err != nil {
			require.ErrorIs(t, err, nestedset.ErrCycle, "step %d", step)
		}

		all, err := tree.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, len(live), "step %d", step)
		report := nestedset.Check(all)
		require.Zero(t, report.Total(), "step %d: %s", step, report)

		byID := make(map[int64]*nestedset.Node, len(all))
		for _, n := range all {
			byID[n.ID] = n
		}
		for _, a := range all {
			for _, b := range all {
				require.Equal(t, parentChainContains(byID, a.ID, b.ID), a.IsDescendantOf(b),
					"step %d: %d in %d", step, a.ID, b.ID)
			}
		}
	}
}

func TestSQLiteMigrator(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "categories.db"))
	require.NoError(t, store.Initialize(ctx))
	defer store.Cleanup(ctx)

	var m Migrator = store
	version, dirty, err := m.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, m.Rollback(ctx))
	version, _, err = m.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultServiceConfig()

	cfg.StoreDriver = DriverMemory
	store, err := NewStore(ctx, cfg, config.NewEnvProvider(""))
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	cfg.StoreDriver = DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "x.db")
	store, err = NewStore(ctx, cfg, config.NewEnvProvider(""))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)

	cfg.StoreDriver = "mongo"
	_, err = NewStore(ctx, cfg, config.NewEnvProvider(""))
	assert.Error(t, err)
}

func TestDialectRebind(t *testing.T) {
	pg := dialect{numbered: true}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ?", dialect{}.rebind("a = ?"))
}

func TestDialectWrap(t *testing.T) {
	d := dialect{conflict: func(err error) bool { return err.Error() == "busy" }}
	assert.ErrorIs(t, d.wrap(errors.New("busy")), nestedset.ErrConflict)
	assert.NotErrorIs(t, d.wrap(errors.New("other")), nestedset.ErrConflict)
	assert.NoError(t, d.wrap(nil))
}
