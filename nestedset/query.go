package nestedset

import "context"

// Get returns the node with its depth.
func (t *Tree) Get(ctx context.Context, id int64) (*Node, error) {
	var n *Node
	err := t.store.View(ctx, func(r Reader) error {
		var err error
		n, err = getWithDepth(ctx, r, id)
		return err
	})
	return n, err
}

// Children returns the direct children of parentID ordered by Left, or the
// roots when parentID is nil.
func (t *Tree) Children(ctx context.Context, parentID *int64) ([]*Node, error) {
	var nodes []*Node
	err := t.store.View(ctx, func(r Reader) error {
		depth := 0
		if parentID != nil {
			parent, err := getWithDepth(ctx, r, *parentID)
			if err != nil {
				return err
			}
			depth = parent.Depth + 1
		}

		var err error
		nodes, err = r.Children(ctx, parentID)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			n.Depth = depth
		}
		return nil
	})
	return nodes, err
}

// Descendants returns the subtree below id in preorder.
func (t *Tree) Descendants(ctx context.Context, id int64) ([]*Node, error) {
	var nodes []*Node
	err := t.store.View(ctx, func(r Reader) error {
		n, err := getWithDepth(ctx, r, id)
		if err != nil {
			return err
		}
		nodes, err = r.Range(ctx, n.Left, n.Right)
		if err != nil {
			return err
		}
		setDepths(nodes, n.Depth+1)
		return nil
	})
	return nodes, err
}

// Ancestors returns the chain from the root down to the parent of id.
func (t *Tree) Ancestors(ctx context.Context, id int64) ([]*Node, error) {
	var nodes []*Node
	err := t.store.View(ctx, func(r Reader) error {
		n, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		nodes, err = r.Enclosing(ctx, n.Left, n.Right)
		if err != nil {
			return err
		}
		for i, a := range nodes {
			a.Depth = i
		}
		return nil
	})
	return nodes, err
}

// Siblings returns the other children of id's parent, ordered by Left.
func (t *Tree) Siblings(ctx context.Context, id int64) ([]*Node, error) {
	var siblings []*Node
	err := t.store.View(ctx, func(r Reader) error {
		n, err := getWithDepth(ctx, r, id)
		if err != nil {
			return err
		}
		all, err := r.Children(ctx, n.ParentID)
		if err != nil {
			return err
		}
		for _, s := range all {
			if s.ID != n.ID {
				s.Depth = n.Depth
				siblings = append(siblings, s)
			}
		}
		return nil
	})
	return siblings, err
}

// IsDescendantOf reports whether id lies strictly inside ancestorID's
// interval.
func (t *Tree) IsDescendantOf(ctx context.Context, id, ancestorID int64) (bool, error) {
	var result bool
	err := t.store.View(ctx, func(r Reader) error {
		n, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		a, err := r.Get(ctx, ancestorID)
		if err != nil {
			return err
		}
		result = n.IsDescendantOf(a)
		return nil
	})
	return result, err
}

// IsRoot reports whether id has no parent.
func (t *Tree) IsRoot(ctx context.Context, id int64) (bool, error) {
	var result bool
	err := t.store.View(ctx, func(r Reader) error {
		n, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		result = n.IsRoot()
		return nil
	})
	return result, err
}

// All returns every node in preorder with depths filled in.
func (t *Tree) All(ctx context.Context) ([]*Node, error) {
	var nodes []*Node
	err := t.store.View(ctx, func(r Reader) error {
		var err error
		nodes, err = r.All(ctx)
		if err != nil {
			return err
		}
		setDepths(nodes, 0)
		return nil
	})
	return nodes, err
}

// Forest reads every node and nests it.
func (t *Tree) Forest(ctx context.Context) ([]*TreeNode, error) {
	nodes, err := t.All(ctx)
	if err != nil {
		return nil, err
	}
	return ToTree(nodes), nil
}

func getWithDepth(ctx context.Context, r Reader, id int64) (*Node, error) {
	n, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ancestors, err := r.Enclosing(ctx, n.Left, n.Right)
	if err != nil {
		return nil, err
	}
	n.Depth = len(ancestors)
	return n, nil
}

// setDepths fills Depth for a Left-ordered run of nodes whose shallowest
// members sit at base.
func setDepths(nodes []*Node, base int) {
	var open []int64
	for _, n := range nodes {
		for len(open) > 0 && open[len(open)-1] < n.Left {
			open = open[:len(open)-1]
		}
		n.Depth = base + len(open)
		open = append(open, n.Right)
	}
}
