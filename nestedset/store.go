package nestedset

import "context"

// Reader is a consistent read view of the tree rows.
type Reader interface {
	// Get returns the node with the given id or an error wrapping ErrNotFound.
	Get(ctx context.Context, id int64) (*Node, error)

	// Children returns the nodes whose parent is parentID (roots for nil),
	// ordered by Left.
	Children(ctx context.Context, parentID *int64) ([]*Node, error)

	// Range returns the nodes with left < Left and Right < right, ordered by
	// Left. For a node's own boundaries this is its descendant set.
	Range(ctx context.Context, left, right int64) ([]*Node, error)

	// Enclosing returns the nodes with Left < left and Right > right, ordered
	// by Left. For a node's own boundaries this is its ancestor chain.
	Enclosing(ctx context.Context, left, right int64) ([]*Node, error)

	// All returns every node ordered by Left.
	All(ctx context.Context) ([]*Node, error)
}

// Tx is a write transaction. Its boundary primitives are the only way the
// engine changes Left and Right.
type Tx interface {
	Reader

	// MaxRight returns the largest attached Right boundary, 0 when empty.
	MaxRight(ctx context.Context) (int64, error)

	// Insert stores a new row and returns its id.
	Insert(ctx context.Context, n *Node) (int64, error)

	// Remove deletes a single row. Children are not touched.
	Remove(ctx context.Context, id int64) error

	SetParent(ctx context.Context, id int64, parentID *int64) error
	SetBounds(ctx context.Context, id int64, left, right int64) error
	UpdatePayload(ctx context.Context, id int64, p Payload) error

	// Shift adds delta to every attached Left >= from and every attached
	// Right >= from.
	Shift(ctx context.Context, from, delta int64) error

	// Detach takes the rows with Left >= left and Right <= right out of the
	// boundary space by negating their boundaries, so Shift skips them.
	Detach(ctx context.Context, left, right int64) error

	// Attach puts detached rows back with boundary = -boundary + offset.
	Attach(ctx context.Context, offset int64) error
}

// Store is the transactional row store the tree runs on.
//
// WithTx must apply fn atomically and serialize it against every other
// WithTx on the same tree. A store that loses a race returns an error
// wrapping ErrConflict; the tree then re-runs the whole mutation.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	WithTx(ctx context.Context, fn func(Tx) error) error
}
