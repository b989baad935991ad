package sptree

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NodeRatio determines the default leaf capacity: N mod NodeRatio.
const NodeRatio = 8000

// DefaultEpsilon pads every root half-width so no axis has zero extent.
const DefaultEpsilon = 1e-5

// MaxDims is the largest supported dimensionality. Every subdivision
// allocates 2^D children.
const MaxDims = 20

// Config controls tree construction and the parallel force entry points.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// LeafCapacity is the number of point indices a leaf holds before it
	// subdivides. 0 derives N mod NodeRatio (NodeRatio when that is 0).
	// Must be >= 0. Default: 0.
	LeafCapacity int

	// Epsilon is added to every root half-width. Must be >= 0 and finite.
	// 0 is replaced by DefaultEpsilon, so the padding cannot be switched
	// off; pass a tiny positive value such as math.SmallestNonzeroFloat64
	// to make it negligible.
	Epsilon float64

	// Seen is the de-duplication set shared by all nodes. nil creates a new
	// one. A non-empty set skips the fill pass.
	Seen *PointSet

	// Workers controls the number of goroutines used by the Parallel force
	// functions. 0 means use runtime.NumCPU().
	Workers int

	// Logger receives build diagnostics. nil discards them.
	Logger *Logger
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Epsilon: DefaultEpsilon,
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.LeafCapacity < 0 {
		return fmt.Errorf("sptree: LeafCapacity must be >= 0, got %d", cfg.LeafCapacity)
	}
	if cfg.Epsilon < 0 || math.IsNaN(cfg.Epsilon) || math.IsInf(cfg.Epsilon, 0) {
		return fmt.Errorf("sptree: Epsilon must be finite and >= 0, got %f", cfg.Epsilon)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("sptree: Workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Epsilon == 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.Seen == nil {
		cfg.Seen = NewPointSet()
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = NoopLogger()
	}
}

// leafCapacity resolves the per-leaf capacity for n points.
func leafCapacity(requested, n int) int {
	if requested > 0 {
		return requested
	}
	if c := n % NodeRatio; c > 0 {
		return c
	}
	return NodeRatio
}

// Tree is one node of a space-partitioning tree (a quadtree in 2D, an
// octree in 3D, 2^D-ary in general). The root owns the whole point set;
// every node references the same matrix.
//
// A node starts as a leaf holding up to capacity point indices. On overflow
// it subdivides into 2^D children, hands its points down and stays internal
// for the rest of its life. Construction happens once in [New]; afterwards
// the tree is read-only and safe for concurrent queries.
type Tree struct {
	data     *mat.Dense
	n        int
	dims     int
	capacity int
	workers  int
	logger   *Logger

	parent   *Tree
	boundary *Cell

	index   []int // point indices held directly; only for leaves
	size    int
	cumSize int
	com     []float64 // center of mass of the subtree

	isLeaf   bool
	children []*Tree
	seen     *PointSet
}

// New builds a tree over the rows of data. The matrix is referenced, not
// copied, and must not be modified while the tree is in use.
//
// The root cell is centered on the per-axis mean with half-width
// max(max-mean, mean-min) + Epsilon, widened if needed so every point lies
// inside. Points are then inserted in row order.
func New(data *mat.Dense, cfg Config) (*Tree, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if data == nil || data.IsEmpty() {
		return nil, ErrEmptyData
	}
	n, dims := data.Dims()
	if dims > MaxDims {
		return nil, fmt.Errorf("sptree: at most %d dimensions are supported, got %d", MaxDims, dims)
	}
	for i := 0; i < n; i++ {
		for _, v := range data.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d", ErrNonFinite, i)
			}
		}
	}

	corner := make([]float64, dims)
	width := make([]float64, dims)
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	col := make([]float64, n)
	for d := 0; d < dims; d++ {
		mat.Col(col, d, data)
		mean := stat.Mean(col, nil)
		lo[d], hi[d] = floats.Min(col), floats.Max(col)
		corner[d] = mean
		width[d] = math.Max(hi[d]-mean, mean-lo[d]) + cfg.Epsilon
	}
	boundary := NewCell(corner, width)
	// Rounding in mean ± width must not leave the extreme rows outside.
	boundary.extend(lo, hi)

	root := newNode(nil, data, boundary, cfg.Seen)
	root.capacity = leafCapacity(cfg.LeafCapacity, n)
	root.index = make([]int, 0, root.capacity)
	root.workers = cfg.Workers
	root.logger = cfg.Logger.WithDimension(dims)

	if err := root.fill(n); err != nil {
		return nil, err
	}

	if root.logger.Enabled(context.Background(), slog.LevelDebug) {
		root.logger.Debug("tree built",
			"points", n,
			"capacity", root.capacity,
			"depth", root.Depth(),
		)
	}
	return root, nil
}

// newNode creates an empty leaf. Capacity, workers and logger are inherited
// from parent when one is given.
func newNode(parent *Tree, data *mat.Dense, boundary *Cell, seen *PointSet) *Tree {
	n, dims := data.Dims()
	t := &Tree{
		data:     data,
		n:        n,
		dims:     dims,
		parent:   parent,
		boundary: boundary,
		com:      make([]float64, dims),
		isLeaf:   true,
		seen:     seen,
	}
	if parent != nil {
		t.capacity = parent.capacity
		t.workers = parent.workers
		t.logger = parent.logger
		t.index = make([]int, 0, t.capacity)
	}
	return t
}

// fill inserts rows 0..n-1 into the root. It runs at most once per tree: a
// non-empty shared set means the points are already placed.
func (t *Tree) fill(n int) error {
	if t.parent != nil || !t.seen.IsEmpty() {
		t.logger.WithCount(n).Warn("fill already called", "seen", t.seen.Len())
		return nil
	}
	for i := 0; i < n; i++ {
		ok, err := t.insert(i)
		if err != nil {
			t.logger.Error("insert failed", "index", i, "error", err)
			return err
		}
		if !ok {
			// The root cell is sized to hold every row.
			err := fmt.Errorf("%w: row %d is outside the root cell", ErrInvariantViolation, i)
			t.logger.Error("insert failed", "index", i, "error", err)
			return err
		}
	}
	return nil
}

// insert places row idx in this subtree. It returns false when the point is
// outside this node's cell, which is how the parent finds the right child.
//
// Aggregates are updated before the duplicate check, so a repeated
// coordinate still counts towards cumSize and the center of mass.
func (t *Tree) insert(idx int) (bool, error) {
	point := t.data.RawRowView(idx)
	if !t.boundary.Contains(point) {
		return false, nil
	}

	t.cumSize++
	mult1 := float64(t.cumSize-1) / float64(t.cumSize)
	mult2 := 1.0 / float64(t.cumSize)
	floats.Scale(mult1, t.com)
	floats.AddScaled(t.com, mult2, point)

	if t.isLeaf && t.size < t.capacity {
		t.index = append(t.index, idx)
		t.seen.Add(point)
		t.size++
		return true, nil
	}

	for _, held := range t.index {
		if floats.Equal(t.data.RawRowView(held), point) {
			return true, nil
		}
	}

	if t.isLeaf {
		if !t.boundary.splittable() {
			// Distinct points closer than float64 can separate share a leaf.
			t.index = append(t.index, idx)
			t.seen.Add(point)
			t.size++
			return true, nil
		}
		if err := t.subdivide(); err != nil {
			return false, err
		}
	}

	return t.insertIntoChildren(idx)
}

// insertIntoChildren offers idx to each child in orthant order; the first
// child that accepts it wins.
func (t *Tree) insertIntoChildren(idx int) (bool, error) {
	for _, child := range t.children {
		ok, err := child.insert(idx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: row %d, cell bounds %v..%v",
		ErrInvariantViolation, idx, t.boundary.lo, t.boundary.hi)
}

// Subdivide splits a leaf into 2^D children and moves its points into them.
// It is a no-op on a node that has already been subdivided.
func (t *Tree) Subdivide() error {
	if !t.isLeaf {
		return nil
	}
	return t.subdivide()
}

func (t *Tree) subdivide() error {
	numChildren := t.NumChildren()
	t.children = make([]*Tree, numChildren)
	for i := 0; i < numChildren; i++ {
		t.children[i] = newNode(t, t.data, t.boundary.orthantCell(i), t.seen)
	}

	held := t.index
	t.index = nil
	t.size = 0
	t.isLeaf = false

	for _, idx := range held {
		if _, err := t.insertIntoChildren(idx); err != nil {
			return err
		}
	}
	return nil
}

// --- accessors ---

// Data returns the point matrix shared by every node.
func (t *Tree) Data() *mat.Dense { return t.data }

// NumPoints returns the number of rows in the point matrix.
func (t *Tree) NumPoints() int { return t.n }

// Dims returns the dimensionality of the points.
func (t *Tree) Dims() int { return t.dims }

// NumChildren returns the fan-out of an internal node, 2^D.
func (t *Tree) NumChildren() int { return 1 << t.dims }

// Capacity returns the maximum number of indices a leaf holds directly. A
// leaf whose cell is too small to split any further may exceed it.
func (t *Tree) Capacity() int { return t.capacity }

// Parent returns the parent node, or nil for the root.
func (t *Tree) Parent() *Tree { return t.parent }

// Children returns the child nodes in orthant order, or nil for a leaf.
func (t *Tree) Children() []*Tree { return t.children }

// Boundary returns the node's cell.
func (t *Tree) Boundary() *Cell { return t.boundary }

// CenterOfMass returns the running mean of every point inserted into this
// subtree. The returned slice must not be modified.
func (t *Tree) CenterOfMass() []float64 { return t.com }

// Indices returns the point indices held directly by this node.
func (t *Tree) Indices() []int { return t.index }

// Size returns the number of indices held directly by this node.
func (t *Tree) Size() int { return t.size }

// CumulativeSize returns the number of insertions accepted by this subtree,
// duplicates included.
func (t *Tree) CumulativeSize() int { return t.cumSize }

// IsLeaf reports whether the node has not been subdivided.
func (t *Tree) IsLeaf() bool { return t.isLeaf }
