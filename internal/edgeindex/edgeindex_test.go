package edgeindex

import (
	"testing"

	"github.com/hailam/eternity2/internal/puzzle"
)

func TestBuildAndLookup(t *testing.T) {
	pieces := map[int]puzzle.Piece{
		1: puzzle.NewPiece(1, 0, 5, 0, 0),
		2: puzzle.NewPiece(2, 0, 7, 0, 5),
	}
	idx := Build(pieces, 8)

	t.Run("finds a piece presenting the requested color", func(t *testing.T) {
		cands := idx.Lookup(puzzle.West, 5)
		found := false
		for _, c := range cands {
			if c.PieceID == 2 {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected piece 2 in West=5 bucket, got %v", cands)
		}
	})

	t.Run("unknown color returns nothing", func(t *testing.T) {
		cands := idx.Lookup(puzzle.North, 99)
		if cands != nil {
			t.Fatalf("expected nil for out-of-range color, got %v", cands)
		}
	})

	t.Run("every unique rotation is indexed", func(t *testing.T) {
		// piece 1 has edges N0 E5 S0 W0: two adjacent border pairs, so
		// 4 unique rotations, each contributing 4 side entries.
		total := 0
		for s := puzzle.Side(0); s < 4; s++ {
			for c := puzzle.Color(0); c < 8; c++ {
				for _, cand := range idx.Lookup(s, c) {
					if cand.PieceID == 1 {
						total++
					}
				}
			}
		}
		if total != 4*4 {
			t.Fatalf("expected 16 entries for piece 1 (4 rotations x 4 sides), got %d", total)
		}
	})
}
