// Package nestedset maintains a forest of nodes using the nested-set
// (left/right boundary) encoding on top of a transactional row store.
//
// Every node stores a Left and Right boundary. The descendants of a node are
// exactly the nodes whose boundaries fall strictly between its own, so
// subtree, ancestor and descendant-of queries are single range comparisons.
// Structural writes pay for this by shifting every boundary after the point
// of change.
package nestedset

// Payload is the domain data stored next to the tree columns.
// The engine never inspects it.
type Payload struct {
	Name string
	Slug string
}

// Node is a single row of the tree.
type Node struct {
	ID       int64
	ParentID *int64 // nil for roots
	Left     int64
	Right    int64
	Depth    int // 0 for roots; filled by Tree reads
	Payload  Payload
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

// Width is the number of boundary values the node's subtree occupies.
func (n *Node) Width() int64 {
	return n.Right - n.Left + 1
}

// DescendantCount derives the subtree size from the boundaries.
func (n *Node) DescendantCount() int64 {
	return (n.Right - n.Left - 1) / 2
}

// IsLeaf reports whether the node has no descendants.
func (n *Node) IsLeaf() bool {
	return n.Right == n.Left+1
}

// IsDescendantOf compares boundaries only; both nodes must come from the
// same consistent read.
func (n *Node) IsDescendantOf(other *Node) bool {
	return n.Left > other.Left && n.Right < other.Right
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	return &c
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Int64 returns a pointer to v. Handy for parent ids.
func Int64(v int64) *int64 {
	return &v
}
