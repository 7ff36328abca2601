package nestedset

import (
	"context"
	"fmt"
	"sort"
)

// IntegrityReport counts boundary-encoding violations per kind.
type IntegrityReport struct {
	// Oddness counts nodes with Left >= Right or an even Right-Left.
	Oddness int `json:"oddness"`
	// Duplicates counts boundary values used more than once.
	Duplicates int `json:"duplicates"`
	// WrongParent counts nodes whose parent id disagrees with the node
	// that encloses them most tightly.
	WrongParent int `json:"wrongParent"`
	// MissingParent counts nodes whose parent id references no row.
	MissingParent int `json:"missingParent"`
	// WrongWidth counts nodes where (Right-Left-1)/2 is not the number of
	// nodes inside the interval.
	WrongWidth int `json:"wrongWidth"`
	// Overlap counts intervals that cross another instead of nesting.
	Overlap int `json:"overlap"`
	// Containment counts nodes that are not strictly inside their parent.
	Containment int `json:"containment"`
}

// Total is the overall number of violations; 0 means consistent.
func (r *IntegrityReport) Total() int {
	return r.Oddness + r.Duplicates + r.WrongParent + r.MissingParent +
		r.WrongWidth + r.Overlap + r.Containment
}

func (r *IntegrityReport) String() string {
	return fmt.Sprintf("oddness=%d duplicates=%d wrong_parent=%d missing_parent=%d wrong_width=%d overlap=%d containment=%d",
		r.Oddness, r.Duplicates, r.WrongParent, r.MissingParent, r.WrongWidth, r.Overlap, r.Containment)
}

// Check inspects a full table of nodes. The input is not modified.
func Check(nodes []*Node) *IntegrityReport {
	report := &IntegrityReport{}

	sorted := make([]*Node, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Left < sorted[j].Left })

	byID := make(map[int64]*Node, len(sorted))
	lefts := make([]int64, len(sorted))
	seen := make(map[int64]bool, 2*len(sorted))
	for i, n := range sorted {
		byID[n.ID] = n
		lefts[i] = n.Left
		for _, b := range []int64{n.Left, n.Right} {
			if seen[b] {
				report.Duplicates++
			}
			seen[b] = true
		}
	}

	var stack []*Node
	for _, n := range sorted {
		odd := n.Left >= n.Right || (n.Right-n.Left)%2 == 0
		if odd {
			report.Oddness++
		} else {
			lo := sort.Search(len(lefts), func(i int) bool { return lefts[i] > n.Left })
			hi := sort.Search(len(lefts), func(i int) bool { return lefts[i] >= n.Right })
			if int64(hi-lo) != n.DescendantCount() {
				report.WrongWidth++
			}
		}

		for len(stack) > 0 && stack[len(stack)-1].Right < n.Left {
			stack = stack[:len(stack)-1]
		}
		var enclosing *Node
		if len(stack) > 0 {
			enclosing = stack[len(stack)-1]
			if n.Right > enclosing.Right {
				report.Overlap++
			}
		}
		stack = append(stack, n)

		if n.ParentID == nil {
			if enclosing != nil {
				report.WrongParent++
			}
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok {
			report.MissingParent++
			continue
		}
		if enclosing == nil || enclosing.ID != parent.ID {
			report.WrongParent++
		}
		if !(parent.Left < n.Left && n.Right < parent.Right) {
			report.Containment++
		}
	}

	return report
}

// CountErrors reads every node and checks the encoding.
func (t *Tree) CountErrors(ctx context.Context) (*IntegrityReport, error) {
	var report *IntegrityReport
	err := t.store.View(ctx, func(r Reader) error {
		nodes, err := r.All(ctx)
		if err != nil {
			return err
		}
		report = Check(nodes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	integrityViolations.Set(float64(report.Total()))
	return report, nil
}

// VerifyIntegrity returns the number of violations, 0 for a consistent tree.
func (t *Tree) VerifyIntegrity(ctx context.Context) (int, error) {
	report, err := t.CountErrors(ctx)
	if err != nil {
		return 0, err
	}
	return report.Total(), nil
}

// MustBeConsistent returns an IntegrityViolation when the tree has any
// violation.
func (t *Tree) MustBeConsistent(ctx context.Context) error {
	report, err := t.CountErrors(ctx)
	if err != nil {
		return err
	}
	if report.Total() > 0 {
		return &IntegrityViolation{Report: report}
	}
	return nil
}

// FixTree rebuilds every boundary from parent ids. Siblings keep their
// current Left order. Nodes whose parent is missing, or that are only
// reachable through a parent cycle, become roots.
func (t *Tree) FixTree(ctx context.Context) error {
	return t.mutate(ctx, "fix", func(tx Tx) error {
		nodes, err := tx.All(ctx)
		if err != nil {
			return err
		}

		byID := make(map[int64]*Node, len(nodes))
		for _, n := range nodes {
			byID[n.ID] = n
		}
		children := make(map[int64][]*Node)
		var roots []*Node
		for _, n := range nodes {
			if n.ParentID != nil && byID[*n.ParentID] != nil && *n.ParentID != n.ID {
				children[*n.ParentID] = append(children[*n.ParentID], n)
			} else {
				roots = append(roots, n)
			}
		}

		type bounds struct{ left, right int64 }
		next := int64(1)
		placed := make(map[int64]bounds, len(nodes))
		var visit func(n *Node)
		visit = func(n *Node) {
			left := next
			next++
			placed[n.ID] = bounds{} // mark before recursing to stop on cycles
			for _, c := range children[n.ID] {
				if _, done := placed[c.ID]; !done {
					visit(c)
				}
			}
			placed[n.ID] = bounds{left: left, right: next}
			next++
		}

		promote := make(map[int64]bool)
		for _, r := range roots {
			if r.ParentID != nil {
				promote[r.ID] = true
			}
			visit(r)
		}
		// Whatever is left hangs off a parent cycle.
		for _, n := range nodes {
			if _, done := placed[n.ID]; !done {
				promote[n.ID] = true
				visit(n)
			}
		}

		for _, n := range nodes {
			b := placed[n.ID]
			if promote[n.ID] {
				if err := tx.SetParent(ctx, n.ID, nil); err != nil {
					return fmt.Errorf("error promoting node %d: %w", n.ID, err)
				}
			}
			if b.left != n.Left || b.right != n.Right {
				if err := tx.SetBounds(ctx, n.ID, b.left, b.right); err != nil {
					return fmt.Errorf("error rebounding node %d: %w", n.ID, err)
				}
			}
		}
		return nil
	})
}
