package sptree

// IsCorrect reports whether every point index held in the subtree lies
// inside the cell of the node holding it.
func (t *Tree) IsCorrect() bool {
	for _, idx := range t.index {
		if !t.boundary.Contains(t.data.RawRowView(idx)) {
			return false
		}
	}
	if !t.isLeaf {
		for _, child := range t.children {
			if !child.IsCorrect() {
				return false
			}
		}
	}
	return true
}

// Depth returns the number of levels in the subtree: 1 for a leaf,
// otherwise 1 plus the deepest child.
func (t *Tree) Depth() int {
	if t.isLeaf {
		return 1
	}
	maxChildDepth := 0
	for _, child := range t.children {
		maxChildDepth = max(maxChildDepth, child.Depth())
	}
	return 1 + maxChildDepth
}

// TreeStats summarizes the shape of a tree.
type TreeStats struct {
	Nodes       int // all nodes, internal and leaf
	Leaves      int
	EmptyLeaves int // leaves no point was ever inserted into
	Depth       int
	MaxLeafSize int // largest number of indices held by one leaf
}

// Stats walks the subtree and returns its shape.
func (t *Tree) Stats() TreeStats {
	var s TreeStats
	t.collectStats(&s)
	s.Depth = t.Depth()
	return s
}

func (t *Tree) collectStats(s *TreeStats) {
	s.Nodes++
	if t.isLeaf {
		s.Leaves++
		if t.cumSize == 0 {
			s.EmptyLeaves++
		}
		s.MaxLeafSize = max(s.MaxLeafSize, t.size)
		return
	}
	for _, child := range t.children {
		child.collectStats(s)
	}
}
