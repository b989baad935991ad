// Package sptree implements a space-partitioning tree for Barnes-Hut
// approximation of t-SNE gradients.
//
// The tree recursively splits D-dimensional space into 2^D orthants (a
// quadtree in 2D, an octree in 3D) and keeps a running center of mass per
// node. Distant groups of points are then treated as a single mass, which
// brings the repulsive force computation from O(N²) down to O(N log N).
//
// Basic usage:
//
//	tree, err := sptree.New(embedding, sptree.DefaultConfig())
//	// repulsive forces, one point at a time
//	negF := make([]float64, tree.Dims())
//	sumQ, err := tree.NonEdgeForces(i, 0.5, negF)
//	// or all points at once
//	negAll := mat.NewDense(n, dims, nil)
//	sumQ, err = tree.ComputeNonEdgeForcesParallel(0.5, negAll)
//	// attractive forces over a sparse neighbor graph (CSR)
//	posF := mat.NewDense(n, dims, nil)
//	err = tree.ComputeEdgeForces(rowP, colP, valP, n, posF)
//
// # Theta
//
// theta controls when a node is summarized: a node whose largest half-width
// divided by its distance to the query point is below theta is used as one
// pseudo-point. theta = 0 summarizes only leaves. Values around 0.5 are
// common for t-SNE.
//
// # Duplicates
//
// A point that arrives at a full leaf already holding an equal coordinate
// vector is not stored again, but every insertion is still counted in
// CumulativeSize and the center of mass.
package sptree
