package sptree

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cell is an axis-aligned hyper-rectangle described by its center point
// (corner) and a half-width per dimension.
//
// Containment is decided by closed per-axis bounds [lo, hi]. A child cell
// takes its parent's corner as one of its bounds, so the 2^D children tile
// the parent exactly and a point on a split plane always has a home.
type Cell struct {
	corner []float64
	width  []float64
	lo, hi []float64
}

// NewCell returns a cell centered at corner with the given per-axis
// half-widths. Both slices are copied, so later changes to the arguments do
// not affect the cell. Panics if the lengths differ.
func NewCell(corner, width []float64) *Cell {
	if len(corner) != len(width) {
		panic("sptree: corner and width must have the same length")
	}
	c := newCell(len(corner))
	copy(c.corner, corner)
	copy(c.width, width)
	for d := range c.corner {
		c.lo[d] = c.corner[d] - c.width[d]
		c.hi[d] = c.corner[d] + c.width[d]
	}
	return c
}

func newCell(dims int) *Cell {
	return &Cell{
		corner: make([]float64, dims),
		width:  make([]float64, dims),
		lo:     make([]float64, dims),
		hi:     make([]float64, dims),
	}
}

// Dims returns the dimensionality of the cell.
func (c *Cell) Dims() int { return len(c.corner) }

// Corner returns the center coordinate along axis d.
func (c *Cell) Corner(d int) float64 { return c.corner[d] }

// Width returns the half-width along axis d.
func (c *Cell) Width(d int) float64 { return c.width[d] }

// Lo returns the lower bound along axis d.
func (c *Cell) Lo(d int) float64 { return c.lo[d] }

// Hi returns the upper bound along axis d.
func (c *Cell) Hi(d int) float64 { return c.hi[d] }

// MaxWidth returns the largest half-width across all axes.
func (c *Cell) MaxWidth() float64 { return floats.Max(c.width) }

// Contains reports whether point lies inside the cell, boundary included.
func (c *Cell) Contains(point []float64) bool {
	for d := range c.corner {
		if point[d] < c.lo[d] || point[d] > c.hi[d] {
			return false
		}
	}
	return true
}

// extend widens the bounds so that they cover [lo, hi] on every axis.
func (c *Cell) extend(lo, hi []float64) {
	for d := range c.lo {
		c.lo[d] = math.Min(c.lo[d], lo[d])
		c.hi[d] = math.Max(c.hi[d], hi[d])
	}
}

// splitAt returns the plane that separates the two halves along axis d,
// clamped into the cell's bounds.
func (c *Cell) splitAt(d int) float64 {
	return math.Min(math.Max(c.corner[d], c.lo[d]), c.hi[d])
}

// splittable reports whether subdividing would shrink the bounds on at
// least one axis. Once float64 resolution runs out the corner stops moving
// and every child would repeat its parent's bounds.
func (c *Cell) splittable() bool {
	for d := range c.corner {
		if c.lo[d] < c.corner[d] && c.corner[d] < c.hi[d] {
			return true
		}
	}
	return false
}

// orthantCell returns the child cell for orthant i. Axis d of the child is
// shifted towards the negative side when bit d of i is set, and towards the
// positive side otherwise.
func (c *Cell) orthantCell(i int) *Cell {
	child := newCell(len(c.corner))
	div := 1
	for d := range c.corner {
		half := .5 * c.width[d]
		split := c.splitAt(d)
		child.width[d] = half
		if (i/div)%2 == 1 {
			child.corner[d] = c.corner[d] - half
			child.lo[d], child.hi[d] = c.lo[d], split
		} else {
			child.corner[d] = c.corner[d] + half
			child.lo[d], child.hi[d] = split, c.hi[d]
		}
		div *= 2
	}
	return child
}
