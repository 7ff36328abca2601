package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/ammiranda/category_service/nestedset"
)

// MemoryStore implements Store in process memory.
//
// Writers hold the store lock for the whole transaction and work on a
// private copy of the rows, which replaces the committed rows only when the
// transaction succeeds. Readers never see a half-applied shift.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]*nestedset.Node
	nextID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[int64]*nestedset.Node),
		nextID: 1,
	}
}

// Initialize performs any necessary setup
func (m *MemoryStore) Initialize(ctx context.Context) error {
	return nil
}

// Cleanup drops every row
func (m *MemoryStore) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[int64]*nestedset.Node)
	m.nextID = 1
	return nil
}

// View runs fn against the committed rows.
func (m *MemoryStore) View(ctx context.Context, fn func(nestedset.Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTx{rows: m.rows})
}

// WithTx runs fn on a copy of the rows and commits the copy if fn succeeds.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(nestedset.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		rows:   make(map[int64]*nestedset.Node, len(m.rows)),
		nextID: m.nextID,
	}
	for id, n := range m.rows {
		tx.rows[id] = n.Clone()
	}

	if err := fn(tx); err != nil {
		return err
	}

	m.rows = tx.rows
	m.nextID = tx.nextID
	return nil
}

// memTx serves both views (read-only use) and transactions.
type memTx struct {
	rows   map[int64]*nestedset.Node
	nextID int64
}

func (t *memTx) Get(ctx context.Context, id int64) (*nestedset.Node, error) {
	n, ok := t.rows[id]
	if !ok {
		return nil, &nestedset.NotFoundError{ID: id}
	}
	return n.Clone(), nil
}

func (t *memTx) Children(ctx context.Context, parentID *int64) ([]*nestedset.Node, error) {
	return t.collect(func(n *nestedset.Node) bool {
		if parentID == nil {
			return n.ParentID == nil
		}
		return n.ParentID != nil && *n.ParentID == *parentID
	}), nil
}

func (t *memTx) Range(ctx context.Context, left, right int64) ([]*nestedset.Node, error) {
	return t.collect(func(n *nestedset.Node) bool {
		return n.Left > left && n.Right < right
	}), nil
}

func (t *memTx) Enclosing(ctx context.Context, left, right int64) ([]*nestedset.Node, error) {
	return t.collect(func(n *nestedset.Node) bool {
		return n.Left < left && n.Right > right
	}), nil
}

func (t *memTx) All(ctx context.Context) ([]*nestedset.Node, error) {
	return t.collect(func(*nestedset.Node) bool { return true }), nil
}

// collect copies the matching rows ordered by Left.
func (t *memTx) collect(match func(*nestedset.Node) bool) []*nestedset.Node {
	result := make([]*nestedset.Node, 0)
	for _, n := range t.rows {
		if match(n) {
			result = append(result, n.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Left < result[j].Left
	})
	return result
}

func (t *memTx) MaxRight(ctx context.Context) (int64, error) {
	var max int64
	for _, n := range t.rows {
		if n.Right > max {
			max = n.Right
		}
	}
	return max, nil
}

func (t *memTx) Insert(ctx context.Context, n *nestedset.Node) (int64, error) {
	id := t.nextID
	t.nextID++

	row := n.Clone()
	row.ID = id
	row.Depth = 0
	t.rows[id] = row
	return id, nil
}

func (t *memTx) Remove(ctx context.Context, id int64) error {
	if _, ok := t.rows[id]; !ok {
		return &nestedset.NotFoundError{ID: id}
	}
	delete(t.rows, id)
	return nil
}

func (t *memTx) SetParent(ctx context.Context, id int64, parentID *int64) error {
	n, ok := t.rows[id]
	if !ok {
		return &nestedset.NotFoundError{ID: id}
	}
	if parentID == nil {
		n.ParentID = nil
	} else {
		n.ParentID = nestedset.Int64(*parentID)
	}
	return nil
}

func (t *memTx) SetBounds(ctx context.Context, id int64, left, right int64) error {
	n, ok := t.rows[id]
	if !ok {
		return &nestedset.NotFoundError{ID: id}
	}
	n.Left, n.Right = left, right
	return nil
}

func (t *memTx) UpdatePayload(ctx context.Context, id int64, p nestedset.Payload) error {
	n, ok := t.rows[id]
	if !ok {
		return &nestedset.NotFoundError{ID: id}
	}
	n.Payload = p
	return nil
}

func (t *memTx) Shift(ctx context.Context, from, delta int64) error {
	for _, n := range t.rows {
		if n.Left >= from {
			n.Left += delta
		}
		if n.Right >= from {
			n.Right += delta
		}
	}
	return nil
}

func (t *memTx) Detach(ctx context.Context, left, right int64) error {
	for _, n := range t.rows {
		if n.Left >= left && n.Right <= right {
			n.Left, n.Right = -n.Left, -n.Right
		}
	}
	return nil
}

func (t *memTx) Attach(ctx context.Context, offset int64) error {
	for _, n := range t.rows {
		if n.Left < 0 {
			n.Left, n.Right = -n.Left+offset, -n.Right+offset
		}
	}
	return nil
}
