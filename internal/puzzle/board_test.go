package puzzle

import "testing"

func TestBoardPlaceAndRemove(t *testing.T) {
	b := NewBoard(2, 2)

	if !b.IsEmpty(0, 0) {
		t.Fatalf("fresh board should be empty")
	}

	p := NewPiece(1, 0, 5, 6, 0)
	pl := NewPlacement(p, 0)
	b.Place(0, 0, pl)

	if b.IsEmpty(0, 0) {
		t.Fatalf("cell should be occupied after Place")
	}
	got, ok := b.Get(0, 0)
	if !ok || got.PieceID != 1 {
		t.Fatalf("Get(0,0) = %v, %v, want piece 1", got, ok)
	}

	removed := b.Remove(0, 0)
	if removed.PieceID != 1 {
		t.Fatalf("Remove returned %v, want piece 1", removed)
	}
	if !b.IsEmpty(0, 0) {
		t.Fatalf("cell should be empty after Remove")
	}
}

func TestBoardDoublePlacePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double placement")
		}
	}()
	b := NewBoard(1, 1)
	p := NewPiece(1, 0, 0, 0, 0)
	b.Place(0, 0, NewPlacement(p, 0))
	b.Place(0, 0, NewPlacement(p, 0))
}

func TestBoardOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on out-of-range coordinate")
		}
	}()
	b := NewBoard(2, 2)
	b.IsEmpty(5, 5)
}

func TestBoardScore(t *testing.T) {
	// 1x3 row: piece edges are N E S W. Interior matches are on the
	// E/W axis since it's a single row.
	b := NewBoard(1, 3)
	p1 := NewPiece(1, 0, 5, 0, 0)
	p2 := NewPiece(2, 0, 7, 0, 5)
	p3 := NewPiece(3, 0, 0, 0, 7)
	b.Place(0, 0, NewPlacement(p1, 0))
	b.Place(0, 1, NewPlacement(p2, 0))
	b.Place(0, 2, NewPlacement(p3, 0))

	correct, max := b.Score()
	if max != 2 {
		t.Fatalf("max = %d, want 2", max)
	}
	if correct != 2 {
		t.Fatalf("correct = %d, want 2", correct)
	}
}

func TestBoardCloneIsIndependent(t *testing.T) {
	b := NewBoard(1, 1)
	p := NewPiece(1, 0, 0, 0, 0)
	b.Place(0, 0, NewPlacement(p, 0))

	clone := b.Clone()
	clone.Remove(0, 0)

	if b.IsEmpty(0, 0) {
		t.Fatalf("removing from clone must not affect the original")
	}
	if !clone.IsEmpty(0, 0) {
		t.Fatalf("clone should reflect its own removal")
	}
}

func TestBoardNeighborAndBorder(t *testing.T) {
	b := NewBoard(2, 2)
	if !b.IsBorder(0, 0, North) || !b.IsBorder(0, 0, West) {
		t.Fatalf("(0,0) should be a border on North and West")
	}
	if b.IsBorder(0, 0, East) || b.IsBorder(0, 0, South) {
		t.Fatalf("(0,0) should not be a border on East or South in a 2x2 grid")
	}
	nr, nc, ok := b.Neighbor(0, 0, East)
	if !ok || nr != 0 || nc != 1 {
		t.Fatalf("Neighbor(0,0,East) = (%d,%d,%v), want (0,1,true)", nr, nc, ok)
	}
}
