package nestedset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultMaxRetries is how often a conflicting mutation is re-run.
	DefaultMaxRetries = 3
	defaultBackoff    = 10 * time.Millisecond
)

// Option configures a Tree.
type Option func(*Tree)

// WithMaxRetries sets how many times a mutation is re-run after ErrConflict.
func WithMaxRetries(n int) Option {
	return func(t *Tree) {
		if n >= 0 {
			t.maxRetries = n
		}
	}
}

// WithBackoff sets the initial pause between retries. It doubles per attempt.
func WithBackoff(d time.Duration) Option {
	return func(t *Tree) {
		t.backoff = d
	}
}

// WithLogger sets the logger used for mutation and retry events.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.logger = l
		}
	}
}

// Tree runs nested-set operations against a Store.
// It holds no tree state of its own and is safe for concurrent use.
type Tree struct {
	store      Store
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// New creates a Tree on top of store.
func New(store Store, opts ...Option) *Tree {
	t := &Tree{
		store:      store,
		maxRetries: DefaultMaxRetries,
		backoff:    defaultBackoff,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Position says where a node is placed: as the last child of ParentID (a new
// root when ParentID is nil), or directly before or after a sibling.
type Position struct {
	ParentID *int64
	BeforeID *int64
	AfterID  *int64
}

// AsChildOf places a node as the rightmost child of parentID, or as the last
// root when parentID is nil.
func AsChildOf(parentID *int64) Position {
	return Position{ParentID: parentID}
}

// Before places a node immediately before the sibling id.
func Before(id int64) Position {
	return Position{BeforeID: &id}
}

// After places a node immediately after the sibling id.
func After(id int64) Position {
	return Position{AfterID: &id}
}

func (p Position) validate() error {
	set := 0
	for _, v := range []*int64{p.ParentID, p.BeforeID, p.AfterID} {
		if v != nil {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("%w: parent, before and after are mutually exclusive", ErrInvalidPosition)
	}
	return nil
}

// reference is the id the position is relative to, nil for "new root".
func (p Position) reference() *int64 {
	switch {
	case p.BeforeID != nil:
		return p.BeforeID
	case p.AfterID != nil:
		return p.AfterID
	default:
		return p.ParentID
	}
}

// target resolves p against the current boundaries and returns the
// insertion point together with the parent the node will have.
func (t *Tree) target(ctx context.Context, tx Tx, p Position) (int64, *int64, error) {
	switch {
	case p.BeforeID != nil:
		s, err := tx.Get(ctx, *p.BeforeID)
		if err != nil {
			return 0, nil, err
		}
		return s.Left, s.ParentID, nil
	case p.AfterID != nil:
		s, err := tx.Get(ctx, *p.AfterID)
		if err != nil {
			return 0, nil, err
		}
		return s.Right + 1, s.ParentID, nil
	case p.ParentID != nil:
		parent, err := tx.Get(ctx, *p.ParentID)
		if err != nil {
			return 0, nil, err
		}
		return parent.Right, Int64(parent.ID), nil
	default:
		max, err := tx.MaxRight(ctx)
		if err != nil {
			return 0, nil, err
		}
		return max + 1, nil, nil
	}
}

// Create adds a node as the rightmost child of parentID, or as a new root
// after all existing roots when parentID is nil.
func (t *Tree) Create(ctx context.Context, parentID *int64, payload Payload) (*Node, error) {
	return t.CreateAt(ctx, AsChildOf(parentID), payload)
}

// CreateAt adds a node at the given position.
func (t *Tree) CreateAt(ctx context.Context, pos Position, payload Payload) (*Node, error) {
	if err := pos.validate(); err != nil {
		return nil, err
	}

	var created *Node
	err := t.mutate(ctx, "create", func(tx Tx) error {
		point, parentID, err := t.target(ctx, tx, pos)
		if err != nil {
			return err
		}
		if err := tx.Shift(ctx, point, 2); err != nil {
			return fmt.Errorf("error opening gap: %w", err)
		}

		n := &Node{
			ParentID: parentID,
			Left:     point,
			Right:    point + 1,
			Payload:  payload,
		}
		id, err := tx.Insert(ctx, n)
		if err != nil {
			return fmt.Errorf("error inserting node: %w", err)
		}
		n.ID = id

		ancestors, err := tx.Enclosing(ctx, n.Left, n.Right)
		if err != nil {
			return err
		}
		n.Depth = len(ancestors)
		created = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Move makes id the rightmost child of newParentID, or a root when
// newParentID is nil. Moving a node to the parent it already has is a no-op.
func (t *Tree) Move(ctx context.Context, id int64, newParentID *int64) error {
	return t.MoveTo(ctx, id, AsChildOf(newParentID))
}

// MoveBefore places id directly before siblingID, adopting its parent.
func (t *Tree) MoveBefore(ctx context.Context, id, siblingID int64) error {
	return t.MoveTo(ctx, id, Before(siblingID))
}

// MoveAfter places id directly after siblingID, adopting its parent.
func (t *Tree) MoveAfter(ctx context.Context, id, siblingID int64) error {
	return t.MoveTo(ctx, id, After(siblingID))
}

// MoveTo relocates the subtree rooted at id to pos.
//
// The subtree is detached, the gap it leaves is closed, a gap of the same
// width is opened at the target and the subtree is re-based into it. A
// target inside the subtree is rejected with a CycleError before any
// boundary is written.
func (t *Tree) MoveTo(ctx context.Context, id int64, pos Position) error {
	if err := pos.validate(); err != nil {
		return err
	}

	return t.mutate(ctx, "move", func(tx Tx) error {
		n, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		noop, err := t.checkMove(ctx, tx, n, pos)
		if err != nil || noop {
			return err
		}

		width := n.Width()
		if err := tx.Detach(ctx, n.Left, n.Right); err != nil {
			return fmt.Errorf("error detaching subtree: %w", err)
		}
		if err := tx.Shift(ctx, n.Right+1, -width); err != nil {
			return fmt.Errorf("error closing gap: %w", err)
		}

		point, parentID, err := t.target(ctx, tx, pos)
		if err != nil {
			return err
		}
		if err := tx.Shift(ctx, point, width); err != nil {
			return fmt.Errorf("error opening gap: %w", err)
		}
		if err := tx.Attach(ctx, point-n.Left); err != nil {
			return fmt.Errorf("error attaching subtree: %w", err)
		}

		if !sameParent(n.ParentID, parentID) {
			if err := tx.SetParent(ctx, n.ID, parentID); err != nil {
				return fmt.Errorf("error updating parent: %w", err)
			}
		}
		return nil
	})
}

// checkMove rejects cycles and reports moves that would change nothing.
func (t *Tree) checkMove(ctx context.Context, tx Tx, n *Node, pos Position) (bool, error) {
	ref := pos.reference()
	if ref == nil {
		return n.IsRoot(), nil
	}

	r, err := tx.Get(ctx, *ref)
	if err != nil {
		return false, err
	}
	if r.ID == n.ID || r.IsDescendantOf(n) {
		return false, &CycleError{ID: n.ID, TargetID: r.ID}
	}

	switch {
	case pos.BeforeID != nil:
		return sameParent(n.ParentID, r.ParentID) && r.Left == n.Right+1, nil
	case pos.AfterID != nil:
		return sameParent(n.ParentID, r.ParentID) && r.Right+1 == n.Left, nil
	default:
		return sameParent(n.ParentID, &r.ID), nil
	}
}

// Delete removes id without removing its descendants. The direct children
// take the deleted node's place under its parent, keeping their order; the
// children of a deleted root become roots.
func (t *Tree) Delete(ctx context.Context, id int64) error {
	return t.mutate(ctx, "delete", func(tx Tx) error {
		n, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		children, err := tx.Children(ctx, &n.ID)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := tx.SetParent(ctx, c.ID, n.ParentID); err != nil {
				return fmt.Errorf("error reparenting child %d: %w", c.ID, err)
			}
		}

		// Descendants are lifted one level: every boundary inside n moves
		// down by one, everything after n by two.
		inner := !n.IsLeaf()
		if inner {
			if err := tx.Detach(ctx, n.Left+1, n.Right-1); err != nil {
				return fmt.Errorf("error detaching descendants: %w", err)
			}
		}
		if err := tx.Remove(ctx, n.ID); err != nil {
			return fmt.Errorf("error removing node: %w", err)
		}
		if err := tx.Shift(ctx, n.Right+1, -2); err != nil {
			return fmt.Errorf("error closing gap: %w", err)
		}
		if inner {
			if err := tx.Attach(ctx, -1); err != nil {
				return fmt.Errorf("error attaching descendants: %w", err)
			}
		}
		return nil
	})
}

// Rename replaces the payload of id. Boundaries are not touched.
func (t *Tree) Rename(ctx context.Context, id int64, payload Payload) error {
	return t.mutate(ctx, "rename", func(tx Tx) error {
		return tx.UpdatePayload(ctx, id, payload)
	})
}

// mutate runs fn in a store transaction, re-running it from scratch while
// the store reports a conflict.
func (t *Tree) mutate(ctx context.Context, op string, fn func(Tx) error) error {
	start := time.Now()
	attempt := 0
	var err error
	for {
		attempt++
		err = t.store.WithTx(ctx, fn)
		if err == nil || !errors.Is(err, ErrConflict) || attempt > t.maxRetries {
			break
		}

		conflictRetries.WithLabelValues(op).Inc()
		wait := t.backoff << (attempt - 1)
		t.logger.Warn("tree mutation conflicted, retrying",
			"op", op,
			"attempt", attempt,
			"wait", wait,
		)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return t.finish(op, start, err)
		case <-time.After(wait):
		}
	}

	if errors.Is(err, ErrConflict) {
		err = &ConflictError{Op: op, Attempts: attempt, Err: err}
	}
	return t.finish(op, start, err)
}

func (t *Tree) finish(op string, start time.Time, err error) error {
	elapsed := time.Since(start)
	mutationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	mutationsTotal.WithLabelValues(op, resultLabel(err)).Inc()

	if err != nil {
		t.logger.Debug("tree mutation failed", "op", op, "duration", elapsed, "error", err)
		return err
	}
	t.logger.Debug("tree mutation committed", "op", op, "duration", elapsed)
	return nil
}
