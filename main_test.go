package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hailam/eternity2/internal/config"
	"github.com/hailam/eternity2/internal/save"
)

const rowPuzzleFile = `
# name: row
# dimensions: 1x3
1 0 5 0 0
2 0 7 0 5
3 0 0 0 7
`

func TestRunSolvesAndPersists(t *testing.T) {
	dir := t.TempDir()
	puzzlePath := filepath.Join(dir, "row.txt")
	if err := os.WriteFile(puzzlePath, []byte(rowPuzzleFile), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	saveDir := filepath.Join(dir, "saves")

	cfg := config.Solve{
		PuzzleFile:       puzzlePath,
		Threads:          2,
		Timeout:          2 * time.Second,
		SaveDir:          saveDir,
		AutoSaveInterval: config.DefaultAutoSaveInterval,
	}

	if err := run(cfg); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, _, ok := save.FindCurrentSave(saveDir, "row"); !ok {
		t.Fatalf("expected a final checkpoint to have been written")
	}
	if _, _, ok := save.FindBestSave(saveDir, "row"); !ok {
		t.Fatalf("expected a best-save for a fully solved puzzle")
	}
}

func TestRunResumesFromExistingSave(t *testing.T) {
	dir := t.TempDir()
	puzzlePath := filepath.Join(dir, "row.txt")
	if err := os.WriteFile(puzzlePath, []byte(rowPuzzleFile), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	saveDir := filepath.Join(dir, "saves")
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	prior := &save.Record{
		ConfigID:          "row",
		Rows:              1,
		Cols:              3,
		Depth:             1,
		CumulativeCompute: 10 * time.Second,
		PlacementOrder:    []save.Entry{{Row: 0, Col: 0, PieceID: 1, Rotation: 0}},
		Placements:        []save.Entry{{Row: 0, Col: 0, PieceID: 1, Rotation: 0}},
		UnusedPieces:      []int{2, 3},
		SavedAt:           time.Now(),
	}
	if _, err := save.WriteCurrent(saveDir, "row", prior, true); err != nil {
		t.Fatalf("WriteCurrent: %v", err)
	}

	cfg := config.Solve{
		PuzzleFile: puzzlePath,
		Threads:    1,
		Timeout:    2 * time.Second,
		SaveDir:    saveDir,
	}
	if err := run(cfg); err != nil {
		t.Fatalf("run: %v", err)
	}

	rec, err := save.Load(saveDir, "row")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.CumulativeCompute < 10*time.Second {
		t.Errorf("CumulativeCompute = %v, want at least the 10s carried over from the prior save", rec.CumulativeCompute)
	}
}

func TestToReplayConvertsEntries(t *testing.T) {
	entries := []save.Entry{{Row: 1, Col: 2, PieceID: 3, Rotation: 1}}
	got := toReplay(entries)
	if len(got) != 1 || got[0].Row != 1 || got[0].Col != 2 || got[0].PieceID != 3 || got[0].Rotation != 1 {
		t.Fatalf("toReplay(%v) = %v", entries, got)
	}
	if toReplay(nil) != nil {
		t.Fatalf("toReplay(nil) should return nil")
	}
}
