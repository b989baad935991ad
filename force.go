package sptree

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NonEdgeForces computes the Barnes-Hut approximation of the repulsive
// t-SNE force on point pointIndex and adds it to negF, which must have
// length Dims(). It returns this point's contribution to the normalization
// term sum(Q).
//
// A subtree is summarized by its center of mass when it is a leaf or when
// maxWidth/dist < theta. theta = 0 only summarizes leaves; larger values
// trade accuracy for speed. Safe for concurrent use as long as each caller
// passes its own negF.
func (t *Tree) NonEdgeForces(pointIndex int, theta float64, negF []float64) (float64, error) {
	if err := t.checkQuery(pointIndex, theta, negF); err != nil {
		return 0, err
	}
	buf := make([]float64, t.dims)
	sumQ, _ := t.nonEdgeForces(pointIndex, theta, t.data.RawRowView(pointIndex), buf, negF)
	return sumQ, nil
}

// ComputeNonEdgeForces is NonEdgeForces with the normalization term added
// to a shared accumulator, for callers that fan out over points and collect
// sum(Q) in one place.
func (t *Tree) ComputeNonEdgeForces(pointIndex int, theta float64, negF []float64, sumQ *SumQ) error {
	q, err := t.NonEdgeForces(pointIndex, theta, negF)
	if err != nil {
		return err
	}
	sumQ.Add(q)
	return nil
}

func (t *Tree) checkQuery(pointIndex int, theta float64, negF []float64) error {
	if pointIndex < 0 || pointIndex >= t.n {
		return &ErrIndexOutOfRange{Index: pointIndex, N: t.n}
	}
	if len(negF) != t.dims {
		return &ErrDimensionMismatch{Expected: t.dims, Actual: len(negF)}
	}
	if theta < 0 || math.IsNaN(theta) {
		return fmt.Errorf("sptree: theta must be >= 0, got %f", theta)
	}
	return nil
}

// nonEdgeForces walks the subtree and returns the sum(Q) contribution and
// the number of nodes visited. buf is scratch space of length dims.
func (t *Tree) nonEdgeForces(pointIndex int, theta float64, point, buf, negF []float64) (float64, int) {
	// No time on empty nodes or self-interactions.
	if t.cumSize == 0 || (t.isLeaf && t.size == 1 && t.index[0] == pointIndex) {
		return 0, 1
	}

	floats.SubTo(buf, point, t.com)
	sqDist := floats.Dot(buf, buf)

	maxWidth := t.boundary.MaxWidth()
	if t.isLeaf || maxWidth/math.Sqrt(sqDist) < theta {
		q := 1.0 / (1.0 + sqDist)
		mult := float64(t.cumSize) * q
		floats.AddScaled(negF, mult*q, buf)
		return mult, 1
	}

	var sumQ float64
	visited := 1
	for _, child := range t.children {
		q, v := child.nonEdgeForces(pointIndex, theta, point, buf, negF)
		sumQ += q
		visited += v
	}
	return sumQ, visited
}

// ComputeEdgeForces computes the exact attractive t-SNE forces over a sparse
// neighbor graph in compressed-row form and adds them to posF (n x Dims()).
//
// Neighbors of point i are colP[rowP[i]:rowP[i+1]] with weights in valP at
// the same positions. rowP must be a vector; ErrNotVector is returned before
// anything else is checked. An edge whose endpoints have identical
// coordinates, a self-edge included, has no direction and is rejected with
// ErrInvalidGraph. The tree structure is not used.
func (t *Tree) ComputeEdgeForces(rowP mat.Matrix, colP, valP mat.Vector, n int, posF *mat.Dense) error {
	if err := t.checkEdgeInput(rowP, colP, valP, n, posF); err != nil {
		return err
	}
	rows := asVector(rowP)
	buf := make([]float64, t.dims)
	for i := 0; i < n; i++ {
		t.edgeForcesRow(i, rows, colP, valP, buf, posF.RawRowView(i))
	}
	return nil
}

// edgeForcesRow accumulates the edge forces of point i into out.
func (t *Tree) edgeForcesRow(i int, rowP, colP, valP mat.Vector, buf, out []float64) {
	point := t.data.RawRowView(i)
	start, end := int(rowP.AtVec(i)), int(rowP.AtVec(i+1))
	for k := start; k < end; k++ {
		floats.SubTo(buf, point, t.data.RawRowView(int(colP.AtVec(k))))
		d := valP.AtVec(k) / floats.Dot(buf, buf)
		floats.AddScaled(out, d, buf)
	}
}

func (t *Tree) checkEdgeInput(rowP mat.Matrix, colP, valP mat.Vector, n int, posF *mat.Dense) error {
	if rowP == nil {
		return ErrNotVector
	}
	if r, c := rowP.Dims(); r != 1 && c != 1 {
		return fmt.Errorf("%w: got %dx%d", ErrNotVector, r, c)
	}
	if n < 0 || n > t.n {
		return fmt.Errorf("%w: n = %d with %d points", ErrInvalidGraph, n, t.n)
	}
	if posF == nil {
		return &ErrDimensionMismatch{Expected: n * t.dims, Actual: 0}
	}
	if r, c := posF.Dims(); r < n || c != t.dims {
		return &ErrDimensionMismatch{Expected: n * t.dims, Actual: r * c}
	}
	rows := asVector(rowP)
	if rows.Len() < n+1 {
		return fmt.Errorf("%w: rowP has %d entries, need %d", ErrInvalidGraph, rows.Len(), n+1)
	}
	if n == 0 {
		return nil
	}
	nnz := int(rows.AtVec(n))
	if colP == nil || valP == nil || colP.Len() < nnz || valP.Len() < nnz {
		return fmt.Errorf("%w: rowP ends at %d but colP/valP are shorter", ErrInvalidGraph, nnz)
	}
	for i := 0; i < n; i++ {
		if rows.AtVec(i) > rows.AtVec(i+1) || rows.AtVec(i) < 0 {
			return fmt.Errorf("%w: rowP is not non-decreasing at %d", ErrInvalidGraph, i)
		}
	}
	for k := 0; k < nnz; k++ {
		if j := int(colP.AtVec(k)); j < 0 || j >= t.n {
			return fmt.Errorf("%w: colP[%d] = %d out of range", ErrInvalidGraph, k, j)
		}
	}
	for i := 0; i < n; i++ {
		point := t.data.RawRowView(i)
		for k := int(rows.AtVec(i)); k < int(rows.AtVec(i+1)); k++ {
			j := int(colP.AtVec(k))
			if floats.Equal(point, t.data.RawRowView(j)) {
				return fmt.Errorf("%w: edge %d joins coincident points %d and %d", ErrInvalidGraph, k, i, j)
			}
		}
	}
	return nil
}

// asVector views a 1xN or Nx1 matrix as a vector.
func asVector(m mat.Matrix) mat.Vector {
	if v, ok := m.(mat.Vector); ok {
		return v
	}
	r, c := m.Dims()
	if r == 1 {
		return mat.NewVecDense(c, mat.Row(nil, 0, m))
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m))
}
