package sptree

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ComputeNonEdgeForcesParallel computes the Barnes-Hut repulsive force for
// every point and adds row i of the result to row i of negF (N x Dims()).
// It returns the full normalization term sum(Q).
//
// Rows are split into contiguous ranges, one per worker, using the Workers
// value from the Config the tree was built with. Each worker sums its own
// partial sum(Q) and the partials are added in range order, so the result
// does not depend on scheduling. Falls back to a single goroutine if the
// tree has one worker.
func (t *Tree) ComputeNonEdgeForcesParallel(theta float64, negF *mat.Dense) (float64, error) {
	if negF == nil {
		return 0, &ErrDimensionMismatch{Expected: t.n * t.dims, Actual: 0}
	}
	if r, c := negF.Dims(); r != t.n || c != t.dims {
		return 0, &ErrDimensionMismatch{Expected: t.n * t.dims, Actual: r * c}
	}
	if theta < 0 || math.IsNaN(theta) {
		return 0, fmt.Errorf("sptree: theta must be >= 0, got %f", theta)
	}

	ranges := splitRows(t.n, t.workers)
	partial := make([]float64, len(ranges))

	var g errgroup.Group
	for w, r := range ranges {
		w, r := w, r
		g.Go(func() error {
			buf := make([]float64, t.dims)
			var sumQ float64
			for i := r.start; i < r.end; i++ {
				q, _ := t.nonEdgeForces(i, theta, t.data.RawRowView(i), buf, negF.RawRowView(i))
				sumQ += q
			}
			partial[w] = sumQ
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var sumQ float64
	for _, q := range partial {
		sumQ += q
	}
	return sumQ, nil
}

// ComputeEdgeForcesParallel is ComputeEdgeForces with the rows of posF
// split across workers. Each row is written by exactly one worker, so the
// result is bitwise identical to the sequential version.
func (t *Tree) ComputeEdgeForcesParallel(rowP mat.Matrix, colP, valP mat.Vector, n int, posF *mat.Dense) error {
	if err := t.checkEdgeInput(rowP, colP, valP, n, posF); err != nil {
		return err
	}
	rows := asVector(rowP)

	var g errgroup.Group
	for _, r := range splitRows(n, t.workers) {
		r := r
		g.Go(func() error {
			buf := make([]float64, t.dims)
			for i := r.start; i < r.end; i++ {
				t.edgeForcesRow(i, rows, colP, valP, buf, posF.RawRowView(i))
			}
			return nil
		})
	}
	return g.Wait()
}

type rowRange struct {
	start, end int
}

// splitRows divides [0, n) into at most workers contiguous ranges.
func splitRows(n, workers int) []rowRange {
	if workers < 1 {
		workers = 1
	}
	rowsPerWorker := (n + workers - 1) / workers
	var ranges []rowRange
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := start + rowsPerWorker
		if end > n {
			end = n
		}
		if start >= n {
			break
		}
		ranges = append(ranges, rowRange{start: start, end: end})
	}
	return ranges
}
