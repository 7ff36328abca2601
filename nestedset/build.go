package nestedset

// TreeNode is a Node with its children attached.
type TreeNode struct {
	Node
	Children []*TreeNode
}

// ToTree nests a Left-ordered list of nodes in one pass.
//
// A stack holds the chain of open ancestors; whenever the current node's Left
// is past the Right of the top of the stack, that ancestor is closed. The
// input may be the whole table or any contiguous preorder run such as the
// result of Descendants. Depth is set relative to the shallowest input node.
func ToTree(nodes []*Node) []*TreeNode {
	var roots []*TreeNode
	var stack []*TreeNode

	for _, n := range nodes {
		for len(stack) > 0 && n.Left > stack[len(stack)-1].Right {
			stack = stack[:len(stack)-1]
		}

		tn := &TreeNode{Node: *n, Children: make([]*TreeNode, 0)}
		tn.Depth = len(stack)
		if len(stack) == 0 {
			roots = append(roots, tn)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, tn)
		}
		stack = append(stack, tn)
	}
	return roots
}

// Flatten lists the ids of a forest in preorder. For a forest built by
// ToTree it reproduces the Left order of the input.
func Flatten(forest []*TreeNode) []int64 {
	var ids []int64
	var walk func([]*TreeNode)
	walk = func(level []*TreeNode) {
		for _, tn := range level {
			ids = append(ids, tn.ID)
			walk(tn.Children)
		}
	}
	walk(forest)
	return ids
}
