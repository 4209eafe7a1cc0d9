package driver

import (
	"sort"

	"github.com/hailam/eternity2/internal/puzzle"
	"github.com/hailam/eternity2/internal/solver"
)

// cornerSpec names a grid corner position and the two border sides a
// piece placed there must satisfy.
type cornerSpec struct {
	row, col     int
	sideA, sideB puzzle.Side
}

// cornerSpecs returns the puzzle's four corner positions in a fixed
// order (top-left, top-right, bottom-left, bottom-right), or nil if
// the grid is too small to have four distinct corners (1xN, Nx1, 1x1).
func cornerSpecs(pz *puzzle.Puzzle) []cornerSpec {
	if pz.Rows < 2 || pz.Cols < 2 {
		return nil
	}
	return []cornerSpec{
		{row: 0, col: 0, sideA: puzzle.North, sideB: puzzle.West},
		{row: 0, col: pz.Cols - 1, sideA: puzzle.North, sideB: puzzle.East},
		{row: pz.Rows - 1, col: 0, sideA: puzzle.South, sideB: puzzle.West},
		{row: pz.Rows - 1, col: pz.Cols - 1, sideA: puzzle.South, sideB: puzzle.East},
	}
}

// cornerPieceIDs returns every piece with exactly two border-colored
// edges on adjacent sides: the shape required to occupy a grid corner
// at all, since a corner position constrains two adjacent sides to the
// border color simultaneously.
func cornerPieceIDs(pz *puzzle.Puzzle) []int {
	var out []int
	for id, p := range pz.Pieces {
		var borderSides []puzzle.Side
		for s := puzzle.Side(0); s < 4; s++ {
			if p.Edge(s) == puzzle.BorderColor {
				borderSides = append(borderSides, s)
			}
		}
		if len(borderSides) == 2 && borderSides[0].Opposite() != borderSides[1] {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// rotationForCorner finds the rotation that puts piece's two border
// edges on spec's required sides, or ok=false if no rotation does
// (which means this piece cannot occupy this corner at all).
func rotationForCorner(p puzzle.Piece, spec cornerSpec) (rotation int, ok bool) {
	for k := 0; k < p.UniqueRotationCount(); k++ {
		if p.RotatedEdge(spec.sideA, k) == puzzle.BorderColor && p.RotatedEdge(spec.sideB, k) == puzzle.BorderColor {
			return k, true
		}
	}
	for k := 0; k < 4; k++ {
		if p.RotatedEdge(spec.sideA, k) == puzzle.BorderColor && p.RotatedEdge(spec.sideB, k) == puzzle.BorderColor {
			return k, true
		}
	}
	return 0, false
}

// cornerDiversifications builds up to 24 distinct starting points, one
// per permutation of the puzzle's corner pieces across its four corner
// positions, per spec.md §4.7. Each starting point is expressed as a
// replay prefix the kernel's existing replay-then-extend machinery
// already knows how to seed and, crucially, to backtrack out of if it
// turns out to be part of a dead subtree. Returns nil if the puzzle
// doesn't have a clean 4-corner-piece set to permute (degenerate
// dimensions, a corner already fixed by the puzzle itself, or a corner
// count other than exactly 4).
func cornerDiversifications(pz *puzzle.Puzzle, limit int) [][]solver.PlacementEntry {
	specs := cornerSpecs(pz)
	if specs == nil {
		return nil
	}
	fixed := make(map[[2]int]bool, len(pz.Fixed))
	for _, fp := range pz.Fixed {
		fixed[[2]int{fp.Row, fp.Col}] = true
	}
	for _, s := range specs {
		if fixed[[2]int{s.row, s.col}] {
			return nil // this run already pins a corner; don't fight it
		}
	}
	pieceIDs := cornerPieceIDs(pz)
	if len(pieceIDs) != 4 {
		return nil
	}

	var perms [][]int
	permute(pieceIDs, nil, &perms)
	if limit < len(perms) {
		perms = perms[:limit]
	}

	out := make([][]solver.PlacementEntry, 0, len(perms))
	for _, perm := range perms {
		entries := make([]solver.PlacementEntry, 0, 4)
		valid := true
		for i, spec := range specs {
			piece := pz.Pieces[perm[i]]
			rot, ok := rotationForCorner(piece, spec)
			if !ok {
				valid = false
				break
			}
			entries = append(entries, solver.PlacementEntry{Row: spec.row, Col: spec.col, PieceID: perm[i], Rotation: rot})
		}
		if valid {
			out = append(out, entries)
		}
	}
	return out
}

func permute(remaining, chosen []int, out *[][]int) {
	if len(remaining) == 0 {
		perm := make([]int, len(chosen))
		copy(perm, chosen)
		*out = append(*out, perm)
		return
	}
	for i, id := range remaining {
		rest := make([]int, 0, len(remaining)-1)
		rest = append(rest, remaining[:i]...)
		rest = append(rest, remaining[i+1:]...)
		permute(rest, append(chosen, id), out)
	}
}
