package solver

import (
	"sync/atomic"
	"testing"

	"github.com/hailam/eternity2/internal/edgeindex"
	"github.com/hailam/eternity2/internal/puzzle"
)

func numColors(pz *puzzle.Puzzle) int {
	max := 0
	for _, p := range pz.Pieces {
		for s := puzzle.Side(0); s < 4; s++ {
			if c := int(p.Edge(s)); c > max {
				max = c
			}
		}
	}
	return max + 1
}

func newTestKernel(pz *puzzle.Puzzle) *Kernel {
	idx := edgeindex.Build(pz.Pieces, numColors(pz))
	shared := NewSharedState()
	var stop atomic.Bool
	return NewKernel(pz, idx, shared, &stop)
}

// TestS1ThreePieceRow is spec.md scenario S1: a 1x3 row solved
// deterministically to the documented placements and score.
func TestS1ThreePieceRow(t *testing.T) {
	pz := &puzzle.Puzzle{
		Rows: 1, Cols: 3,
		Pieces: map[int]puzzle.Piece{
			1: puzzle.NewPiece(1, 0, 5, 0, 0),
			2: puzzle.NewPiece(2, 0, 7, 0, 5),
			3: puzzle.NewPiece(3, 0, 0, 0, 7),
		},
	}
	k := newTestKernel(pz)
	outcome := k.Solve()
	if outcome != Solved {
		t.Fatalf("outcome = %v, want Solved", outcome)
	}

	want := map[[2]int]int{{0, 0}: 1, {0, 1}: 2, {0, 2}: 3}
	for pos, pieceID := range want {
		pl, ok := k.Board.Get(pos[0], pos[1])
		if !ok || pl.PieceID != pieceID {
			t.Errorf("cell %v = %v, want piece %d", pos, pl, pieceID)
		}
	}
	correct, _ := k.Board.Score()
	if correct != 2 {
		t.Errorf("score = %d, want 2", correct)
	}
}

// TestS2IdentitySingletons is spec.md scenario S2: a fully consistent
// 2x2 grid with exactly one piece per corner, each edge matching its
// neighbor. The kernel must find a complete, fully-scoring assignment.
func TestS2IdentitySingletons(t *testing.T) {
	pz := &puzzle.Puzzle{
		Rows: 2, Cols: 2,
		Pieces: map[int]puzzle.Piece{
			1: puzzle.NewPiece(1, 0, 1, 2, 0), // top-left: N0 W0
			2: puzzle.NewPiece(2, 0, 0, 3, 1), // top-right: N0 E0
			3: puzzle.NewPiece(3, 2, 4, 0, 0), // bottom-left: S0 W0
			4: puzzle.NewPiece(4, 3, 0, 0, 4), // bottom-right: S0 E0
		},
	}
	k := newTestKernel(pz)
	outcome := k.Solve()
	if outcome != Solved {
		t.Fatalf("outcome = %v, want Solved", outcome)
	}
	correct, max := k.Board.Score()
	if correct != max {
		t.Errorf("score = %d/%d, want a fully correct board", correct, max)
	}
}

// TestS3SkipsRedundantRotations is spec.md scenario S3: a 2-fold
// symmetric piece (edges [1,2,1,2]) reports 2 unique rotations, and
// its rotations 2 and 3 duplicate rotations 0 and 1. The search only
// enumerates rotations below UniqueRotationCount, so this count is
// what keeps rotations 2 and 3 from being tried.
func TestS3SkipsRedundantRotations(t *testing.T) {
	p := puzzle.NewPiece(1, 1, 2, 1, 2)
	if got := p.UniqueRotationCount(); got != 2 {
		t.Fatalf("UniqueRotationCount() = %d, want 2", got)
	}
	if p.RotatedEdges(0) != p.RotatedEdges(2) {
		t.Errorf("rotation 2 should duplicate rotation 0 for this piece")
	}
	if p.RotatedEdges(1) != p.RotatedEdges(3) {
		t.Errorf("rotation 3 should duplicate rotation 1 for this piece")
	}
}

// TestDeadEndReturnsImmediately is spec.md property 10: a puzzle with
// zero feasible placements at an empty cell returns "no solution" from
// that branch without panicking.
func TestDeadEndReturnsImmediately(t *testing.T) {
	pz := &puzzle.Puzzle{
		Rows: 1, Cols: 2,
		Pieces: map[int]puzzle.Piece{
			1: puzzle.NewPiece(1, 0, 9, 0, 0), // east edge matches nothing
			2: puzzle.NewPiece(2, 0, 0, 0, 1),
		},
	}
	k := newTestKernel(pz)
	outcome := k.Solve()
	if outcome != DeadEnd {
		t.Fatalf("outcome = %v, want DeadEnd", outcome)
	}
}

// TestUndoRestoresBoardExactly is spec.md property 3: board state
// after undo equals the state before the corresponding placement.
func TestUndoRestoresBoardExactly(t *testing.T) {
	pz := &puzzle.Puzzle{
		Rows: 1, Cols: 3,
		Pieces: map[int]puzzle.Piece{
			1: puzzle.NewPiece(1, 0, 5, 0, 0),
			2: puzzle.NewPiece(2, 0, 7, 0, 5),
			3: puzzle.NewPiece(3, 0, 0, 0, 7),
		},
	}
	k := newTestKernel(pz)
	before := k.Board.Clone()

	trail, ok := k.place(0, 0, heuristicsCandidate(1, 0))
	if !ok {
		t.Fatalf("placing piece 1 at (0,0) should succeed")
	}
	k.pushOrder(0, 0, heuristicsCandidate(1, 0), trail)
	k.popOrder()

	after := k.Board
	if before.Rows != after.Rows || before.Cols != after.Cols {
		t.Fatalf("dimensions changed")
	}
	for r := 0; r < before.Rows; r++ {
		for c := 0; c < before.Cols; c++ {
			bEmpty := before.IsEmpty(r, c)
			aEmpty := after.IsEmpty(r, c)
			if bEmpty != aEmpty {
				t.Fatalf("cell (%d,%d) occupancy changed after place+undo", r, c)
			}
		}
	}
}

func heuristicsCandidate(pieceID, rotation int) heuristicsCand {
	return heuristicsCand{PieceID: pieceID, Rotation: rotation}
}

type heuristicsCand = edgeindex.Candidate
