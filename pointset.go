package sptree

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// PointSet records the coordinate vectors stored in a tree's leaves. One set
// is shared by every node of a tree. A non-empty set handed to [New] marks the
// tree as already filled.
type PointSet struct {
	points map[string]struct{}
}

// NewPointSet returns an empty set.
func NewPointSet() *PointSet {
	return &PointSet{points: make(map[string]struct{})}
}

// Add records point. Coordinates are compared bit for bit.
func (s *PointSet) Add(point []float64) {
	s.points[pointKey(point)] = struct{}{}
}

// Has reports whether point has been recorded.
func (s *PointSet) Has(point []float64) bool {
	_, ok := s.points[pointKey(point)]
	return ok
}

// Len returns the number of distinct points recorded.
func (s *PointSet) Len() int { return len(s.points) }

// IsEmpty reports whether nothing has been recorded.
func (s *PointSet) IsEmpty() bool { return len(s.points) == 0 }

func pointKey(point []float64) string {
	buf := make([]byte, 8*len(point))
	for i, v := range point {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return string(buf)
}

// SumQ is a float64 accumulator for the t-SNE normalization term that is
// safe for concurrent Add from multiple traversals.
type SumQ struct {
	bits atomic.Uint64
}

// Add atomically adds delta and returns the new total.
func (q *SumQ) Add(delta float64) float64 {
	for {
		old := q.bits.Load()
		next := math.Float64frombits(old) + delta
		if q.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// Load returns the current total.
func (q *SumQ) Load() float64 {
	return math.Float64frombits(q.bits.Load())
}

// Reset sets the total back to zero.
func (q *SumQ) Reset() {
	q.bits.Store(0)
}
