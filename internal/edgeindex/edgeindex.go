// Package edgeindex builds the Edge Compatibility Index: a read-only,
// build-once lookup from (side, required color) to every (piece,
// rotation) pair that presents that color on that side. It plays the
// role the teacher's transposition and pawn hash tables play for chess
// search — a flat slice keyed by a small integer, queried on the hot
// path without locking, never mutated after construction.
package edgeindex

import "github.com/hailam/eternity2/internal/puzzle"

// Candidate names one piece at one rotation.
type Candidate struct {
	PieceID  int
	Rotation int
}

// Index answers "which (piece,rotation) show color c on side s" in O(1)
// plus the size of the result, with no hashing and no collisions: the
// key space (4 sides x numColors) is small and known exactly up front.
type Index struct {
	numColors int
	buckets   [][]Candidate // indexed by side*numColors + color
}

// Build scans every piece at every one of its unique rotations and
// indexes the four edges it presents. numColors must be at least one
// greater than the highest color ID used by any piece (BorderColor
// included).
func Build(pieces map[int]puzzle.Piece, numColors int) *Index {
	buckets := make([][]Candidate, 4*numColors)
	ids := make([]int, 0, len(pieces))
	for id := range pieces {
		ids = append(ids, id)
	}
	for _, id := range ids {
		p := pieces[id]
		for rot := 0; rot < p.UniqueRotationCount(); rot++ {
			edges := p.RotatedEdges(rot)
			for side := 0; side < 4; side++ {
				key := side*numColors + int(edges[side])
				buckets[key] = append(buckets[key], Candidate{PieceID: id, Rotation: rot})
			}
		}
	}
	return &Index{numColors: numColors, buckets: buckets}
}

// Lookup returns every candidate presenting color c on side s. The
// returned slice must not be modified; callers that need to filter it
// should copy first.
func (idx *Index) Lookup(s puzzle.Side, c puzzle.Color) []Candidate {
	key := int(s)*idx.numColors + int(c)
	if key < 0 || key >= len(idx.buckets) {
		return nil
	}
	return idx.buckets[key]
}

// NumColors returns the color-space size the index was built with.
func (idx *Index) NumColors() int {
	return idx.numColors
}
