package sptree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const floatTol = 1e-10

func generateFlatData(n, dims int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.Float64() * 100
	}
	return data
}

func generateDense(n, dims int, seed int64) *mat.Dense {
	return mat.NewDense(n, dims, generateFlatData(n, dims, seed))
}

// buildTree builds a tree with the given leaf capacity and fails the test on error.
func buildTree(t testing.TB, data *mat.Dense, capacity int) *Tree {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LeafCapacity = capacity
	tree, err := New(data, cfg)
	require.NoError(t, err)
	return tree
}

// walk visits every node of the subtree in depth-first orthant order.
func walk(t *Tree, fn func(*Tree)) {
	fn(t)
	for _, child := range t.children {
		walk(child, fn)
	}
}

// referenceDepth is the longest root-to-leaf path, computed independently of Depth.
func referenceDepth(t *Tree) int {
	best := 0
	var visit func(node *Tree, level int)
	visit = func(node *Tree, level int) {
		if node.isLeaf {
			best = max(best, level)
			return
		}
		for _, child := range node.children {
			visit(child, level+1)
		}
	}
	visit(t, 1)
	return best
}

// bruteForceNonEdge computes the exact repulsive force and sum(Q) term for
// point i over all other points.
func bruteForceNonEdge(data *mat.Dense, i int) ([]float64, float64) {
	n, dims := data.Dims()
	force := make([]float64, dims)
	var sumQ float64
	pi := data.RawRowView(i)
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		pj := data.RawRowView(j)
		var sq float64
		for d := 0; d < dims; d++ {
			diff := pi[d] - pj[d]
			sq += diff * diff
		}
		q := 1.0 / (1.0 + sq)
		sumQ += q
		for d := 0; d < dims; d++ {
			force[d] += (pi[d] - pj[d]) * q * q
		}
	}
	return force, sumQ
}
