package models

import (
	"github.com/ammiranda/category_service/nestedset"
)

// Category is the API representation of a tree node
type Category struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Slug     string      `json:"slug"`
	ParentID *int64      `json:"parentId"`
	Left     int64       `json:"lft"`
	Right    int64       `json:"rgt"`
	Depth    int         `json:"depth"`
	Children []*Category `json:"children"`
}

// NewCategory converts a stored node
func NewCategory(n *nestedset.Node) *Category {
	return &Category{
		ID:       n.ID,
		Name:     n.Payload.Name,
		Slug:     n.Payload.Slug,
		ParentID: n.ParentID,
		Left:     n.Left,
		Right:    n.Right,
		Depth:    n.Depth,
	}
}

// NewCategories converts a flat node list, keeping its order
func NewCategories(nodes []*nestedset.Node) []*Category {
	out := make([]*Category, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NewCategory(n))
	}
	return out
}

// NewForest converts a nested forest. Every category in the result has a
// non-nil Children slice so leaves encode as "children": [].
func NewForest(forest []*nestedset.TreeNode) []*Category {
	out := make([]*Category, 0, len(forest))
	for _, tn := range forest {
		c := NewCategory(&tn.Node)
		c.Children = NewForest(tn.Children)
		out = append(out, c)
	}
	return out
}

// Walk visits c and its descendants in preorder.
func (c *Category) Walk(fn func(*Category)) {
	fn(c)
	for _, child := range c.Children {
		child.Walk(fn)
	}
}
