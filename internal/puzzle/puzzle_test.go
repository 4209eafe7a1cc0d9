package puzzle

import "testing"

func buildTestPuzzle() *Puzzle {
	return &Puzzle{
		Name: "test",
		Rows: 1, Cols: 3,
		Pieces: map[int]Piece{
			1: NewPiece(1, 0, 5, 0, 0),
			2: NewPiece(2, 0, 7, 0, 5),
			3: NewPiece(3, 0, 0, 0, 7),
		},
	}
}

func TestPieceIDsSorted(t *testing.T) {
	pz := buildTestPuzzle()

	t.Run("ascending", func(t *testing.T) {
		pz.SortOrder = Ascending
		got := pz.PieceIDsSorted()
		want := []int{1, 2, 3}
		if !equalInts(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("descending", func(t *testing.T) {
		pz.SortOrder = Descending
		got := pz.PieceIDsSorted()
		want := []int{3, 2, 1}
		if !equalInts(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestValidateRejectsOutOfRangeFixed(t *testing.T) {
	pz := buildTestPuzzle()
	pz.Fixed = []FixedPlacement{{Row: 5, Col: 0, PieceID: 1, Rotation: 0}}
	if err := pz.Validate(); err == nil {
		t.Fatalf("expected error for out-of-range fixed placement")
	}
}

func TestValidateRejectsUnknownPiece(t *testing.T) {
	pz := buildTestPuzzle()
	pz.Fixed = []FixedPlacement{{Row: 0, Col: 0, PieceID: 99, Rotation: 0}}
	if err := pz.Validate(); err == nil {
		t.Fatalf("expected error for unknown fixed piece")
	}
}

func TestValidateRejectsCollidingFixed(t *testing.T) {
	pz := buildTestPuzzle()
	pz.Fixed = []FixedPlacement{
		{Row: 0, Col: 0, PieceID: 1, Rotation: 0},
		{Row: 0, Col: 0, PieceID: 2, Rotation: 0},
	}
	if err := pz.Validate(); err == nil {
		t.Fatalf("expected error for two fixed placements at the same cell")
	}
}

func TestValidateAcceptsGoodPuzzle(t *testing.T) {
	pz := buildTestPuzzle()
	pz.Fixed = []FixedPlacement{{Row: 0, Col: 0, PieceID: 1, Rotation: 3}}
	if err := pz.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
