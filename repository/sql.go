package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ammiranda/category_service/nestedset"
)

// categoryColumns is the ordered list of columns selected in node queries.
// Must match the scan order in scanNode.
const categoryColumns = `id, name, slug, parent_id, lft, rgt`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dialect captures what differs between the SQL backends.
type dialect struct {
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
	// conflict reports whether err means the transaction lost a race.
	conflict func(err error) bool
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// wrap turns backend conflicts into nestedset.ErrConflict.
func (d dialect) wrap(err error) error {
	if err == nil {
		return nil
	}
	if d.conflict != nil && d.conflict(err) {
		return fmt.Errorf("%w: %v", nestedset.ErrConflict, err)
	}
	return err
}

// sqlTx implements nestedset.Tx over a querier.
type sqlTx struct {
	q querier
	d dialect
}

// scanNode scans a sql.Row (or sql.Rows via its Scan method) into a node.
func scanNode(scanner interface{ Scan(dest ...any) error }) (*nestedset.Node, error) {
	var n nestedset.Node
	var parentID sql.NullInt64
	err := scanner.Scan(&n.ID, &n.Payload.Name, &n.Payload.Slug, &parentID, &n.Left, &n.Right)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		n.ParentID = nestedset.Int64(parentID.Int64)
	}
	return &n, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func (t *sqlTx) query(ctx context.Context, where string, args ...any) ([]*nestedset.Node, error) {
	rows, err := t.q.QueryContext(ctx,
		t.d.rebind(`SELECT `+categoryColumns+` FROM categories `+where+` ORDER BY lft`), args...)
	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", t.d.wrap(err))
	}
	defer rows.Close()

	nodes := make([]*nestedset.Node, 0)
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", t.d.wrap(err))
	}
	return nodes, nil
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := t.q.ExecContext(ctx, t.d.rebind(query), args...)
	if err != nil {
		return 0, t.d.wrap(err)
	}
	return result.RowsAffected()
}

// execOne runs an update addressed to a single id.
func (t *sqlTx) execOne(ctx context.Context, id int64, query string, args ...any) error {
	n, err := t.exec(ctx, query, append(args, id)...)
	if err != nil {
		return err
	}
	if n == 0 {
		return &nestedset.NotFoundError{ID: id}
	}
	return nil
}

func (t *sqlTx) Get(ctx context.Context, id int64) (*nestedset.Node, error) {
	row := t.q.QueryRowContext(ctx,
		t.d.rebind(`SELECT `+categoryColumns+` FROM categories WHERE id = ?`), id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &nestedset.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("error getting category: %w", t.d.wrap(err))
	}
	return n, nil
}

func (t *sqlTx) Children(ctx context.Context, parentID *int64) ([]*nestedset.Node, error) {
	if parentID == nil {
		return t.query(ctx, `WHERE parent_id IS NULL`)
	}
	return t.query(ctx, `WHERE parent_id = ?`, *parentID)
}

func (t *sqlTx) Range(ctx context.Context, left, right int64) ([]*nestedset.Node, error) {
	return t.query(ctx, `WHERE lft > ? AND rgt < ?`, left, right)
}

func (t *sqlTx) Enclosing(ctx context.Context, left, right int64) ([]*nestedset.Node, error) {
	return t.query(ctx, `WHERE lft < ? AND rgt > ?`, left, right)
}

func (t *sqlTx) All(ctx context.Context) ([]*nestedset.Node, error) {
	return t.query(ctx, ``)
}

func (t *sqlTx) MaxRight(ctx context.Context) (int64, error) {
	var max int64
	err := t.q.QueryRowContext(ctx, `SELECT COALESCE(MAX(rgt), 0) FROM categories WHERE rgt > 0`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("error reading max boundary: %w", t.d.wrap(err))
	}
	return max, nil
}

func (t *sqlTx) Insert(ctx context.Context, n *nestedset.Node) (int64, error) {
	var id int64
	err := t.q.QueryRowContext(ctx, t.d.rebind(`
		INSERT INTO categories (name, slug, parent_id, lft, rgt)
		VALUES (?, ?, ?, ?, ?) RETURNING id`),
		n.Payload.Name, n.Payload.Slug, nullInt64(n.ParentID), n.Left, n.Right,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating category: %w", t.d.wrap(err))
	}
	return id, nil
}

func (t *sqlTx) Remove(ctx context.Context, id int64) error {
	return t.execOne(ctx, id, `DELETE FROM categories WHERE id = ?`)
}

func (t *sqlTx) SetParent(ctx context.Context, id int64, parentID *int64) error {
	return t.execOne(ctx, id, `UPDATE categories SET parent_id = ? WHERE id = ?`, nullInt64(parentID))
}

func (t *sqlTx) SetBounds(ctx context.Context, id int64, left, right int64) error {
	return t.execOne(ctx, id, `UPDATE categories SET lft = ?, rgt = ? WHERE id = ?`, left, right)
}

func (t *sqlTx) UpdatePayload(ctx context.Context, id int64, p nestedset.Payload) error {
	return t.execOne(ctx, id, `UPDATE categories SET name = ?, slug = ? WHERE id = ?`, p.Name, p.Slug)
}

func (t *sqlTx) Shift(ctx context.Context, from, delta int64) error {
	if _, err := t.exec(ctx, `UPDATE categories SET lft = lft + ? WHERE lft >= ?`, delta, from); err != nil {
		return fmt.Errorf("error shifting left boundaries: %w", err)
	}
	if _, err := t.exec(ctx, `UPDATE categories SET rgt = rgt + ? WHERE rgt >= ?`, delta, from); err != nil {
		return fmt.Errorf("error shifting right boundaries: %w", err)
	}
	return nil
}

func (t *sqlTx) Detach(ctx context.Context, left, right int64) error {
	_, err := t.exec(ctx, `UPDATE categories SET lft = -lft, rgt = -rgt WHERE lft >= ? AND rgt <= ?`, left, right)
	return err
}

func (t *sqlTx) Attach(ctx context.Context, offset int64) error {
	_, err := t.exec(ctx, `UPDATE categories SET lft = ? - lft, rgt = ? - rgt WHERE lft < 0`, offset, offset)
	return err
}

// runTx begins a transaction, lets lock prepare it, runs fn and commits.
func runTx(ctx context.Context, db *sql.DB, d dialect, opts *sql.TxOptions, lock func(*sql.Tx) error, fn func(*sqlTx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", d.wrap(err))
	}
	defer tx.Rollback()

	if lock != nil {
		if err := lock(tx); err != nil {
			return fmt.Errorf("error locking tree: %w", d.wrap(err))
		}
	}
	if err := fn(&sqlTx{q: tx, d: d}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", d.wrap(err))
	}
	return nil
}
