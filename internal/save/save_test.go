package save

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleRecord() *Record {
	return &Record{
		ConfigID: "cfg-1",
		Rows:     1, Cols: 3,
		Depth: 2,
		PlacementOrder: []Entry{
			{Row: 0, Col: 0, PieceID: 1, Rotation: 0},
			{Row: 0, Col: 1, PieceID: 2, Rotation: 3},
		},
		Placements: []Entry{
			{Row: 0, Col: 0, PieceID: 1, Rotation: 0},
			{Row: 0, Col: 1, PieceID: 2, Rotation: 3},
		},
		UnusedPieces:      []int{3},
		CumulativeCompute: 42 * time.Second,
		Score:             2,
		SavedAt:           time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestTextRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg-1.txt")
	rec := sampleRecord()
	rec.BoardDump = "1r0 2r3 .\n. . ."

	if err := WriteText(path, rec); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := ReadText(path)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	assertRecordsEqual(t, rec, got)
}

func TestBinaryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg-1.bin")
	rec := sampleRecord()

	if err := WriteBinary(path, rec); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}
	got, err := ReadBinary(path)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}
	assertRecordsEqual(t, rec, got)
}

func TestReadBinaryRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.bin"
	if err := os.WriteFile(path, []byte("not a save file"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadBinary(path); err == nil {
		t.Fatalf("expected an error reading a non-save file")
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg-1.txt")
	if err := WriteText(path, sampleRecord()); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly the final save file in %s, got %v", dir, entries)
	}
}

func TestWriteCurrentKeepsOnlyOneFilePerConfig(t *testing.T) {
	dir := t.TempDir()
	rec := sampleRecord()

	rec.SavedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if _, err := WriteCurrent(dir, "cfg-1", rec, false); err != nil {
		t.Fatalf("WriteCurrent (text): %v", err)
	}
	rec.SavedAt = rec.SavedAt.Add(time.Minute)
	if _, err := WriteCurrent(dir, "cfg-1", rec, true); err != nil {
		t.Fatalf("WriteCurrent (binary): %v", err)
	}

	entries, err := os.ReadDir(FamilyDir(dir, "cfg-1"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one current file to survive, got %v", entries)
	}
	if filepath.Ext(entries[0].Name()) != ".bin" {
		t.Errorf("surviving current file = %q, want the most recently written (.bin)", entries[0].Name())
	}
}

func TestFindCurrentSaveSelectsSmallestCumulativeCompute(t *testing.T) {
	dir := t.TempDir()
	familyDir := FamilyDir(dir, "cfg-1")
	if err := os.MkdirAll(familyDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	ahead := sampleRecord()
	ahead.CumulativeCompute = 90 * time.Second
	if err := WriteText(filepath.Join(familyDir, "cfg-1_current_1000.txt"), ahead); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	behind := sampleRecord()
	behind.CumulativeCompute = 5 * time.Second
	if err := WriteBinary(filepath.Join(familyDir, "cfg-1_current_2000.bin"), behind); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	path, format, ok := FindCurrentSave(dir, "cfg-1")
	if !ok {
		t.Fatalf("expected a save to be found")
	}
	if format != "binary" {
		t.Errorf("format = %q, want binary (the least-advanced save)", format)
	}
	if filepath.Base(path) != "cfg-1_current_2000.bin" {
		t.Errorf("path = %q, want the save with the smallest cumulative compute time", path)
	}
}

func TestFindCurrentSaveMissing(t *testing.T) {
	dir := t.TempDir()
	if _, _, ok := FindCurrentSave(dir, "no-such-config"); ok {
		t.Fatalf("expected no save to be found in an empty directory")
	}
}

func TestWriteBestRetainsBoundedHistoryByDepth(t *testing.T) {
	dir := t.TempDir()
	for depth := 1; depth <= bestHistoryLimit+2; depth++ {
		rec := sampleRecord()
		rec.Depth = depth
		if _, err := WriteBest(dir, "cfg-1", rec, true); err != nil {
			t.Fatalf("WriteBest depth %d: %v", depth, err)
		}
	}

	saves, err := FindAllBestSaves(dir, "cfg-1")
	if err != nil {
		t.Fatalf("FindAllBestSaves: %v", err)
	}
	if len(saves) != bestHistoryLimit {
		t.Fatalf("len(saves) = %d, want %d", len(saves), bestHistoryLimit)
	}
	for i, s := range saves {
		wantDepth := bestHistoryLimit + 2 - i
		if s.Depth != wantDepth {
			t.Errorf("saves[%d].Depth = %d, want %d", i, s.Depth, wantDepth)
		}
	}
}

func TestFindAllBestSavesSortedByDepthDescending(t *testing.T) {
	dir := t.TempDir()
	for _, depth := range []int{3, 7, 1} {
		rec := sampleRecord()
		rec.Depth = depth
		if _, err := WriteBest(dir, "cfg-1", rec, false); err != nil {
			t.Fatalf("WriteBest depth %d: %v", depth, err)
		}
	}

	saves, err := FindAllBestSaves(dir, "cfg-1")
	if err != nil {
		t.Fatalf("FindAllBestSaves: %v", err)
	}
	want := []int{7, 3, 1}
	if len(saves) != len(want) {
		t.Fatalf("len(saves) = %d, want %d", len(saves), len(want))
	}
	for i, d := range want {
		if saves[i].Depth != d {
			t.Errorf("saves[%d].Depth = %d, want %d", i, saves[i].Depth, d)
		}
	}
}

func TestFindBestSaveReturnsDeepest(t *testing.T) {
	dir := t.TempDir()
	for _, depth := range []int{4, 9} {
		rec := sampleRecord()
		rec.Depth = depth
		if _, err := WriteBest(dir, "cfg-1", rec, true); err != nil {
			t.Fatalf("WriteBest depth %d: %v", depth, err)
		}
	}
	path, format, ok := FindBestSave(dir, "cfg-1")
	if !ok {
		t.Fatalf("expected a best save to be found")
	}
	if format != "binary" {
		t.Errorf("format = %q, want binary", format)
	}
	if filepath.Base(path) != "cfg-1_best_9.bin" {
		t.Errorf("path = %q, want the deepest best save", path)
	}
}

func TestLoadFallsBackToLegacyPath(t *testing.T) {
	dir := t.TempDir()
	rec := sampleRecord()
	if err := WriteText(legacyPath(dir, "old-cfg"), rec); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := Load(dir, "old-cfg")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertRecordsEqual(t, rec, got)
}

func TestFamilySplitsOnFirstUnderscore(t *testing.T) {
	cases := map[string]string{
		"eternity2_corner3": "eternity2",
		"eternity2":         "eternity2",
		"_leading":          "_leading",
	}
	for id, want := range cases {
		if got := Family(id); got != want {
			t.Errorf("Family(%q) = %q, want %q", id, got, want)
		}
	}
}

func assertRecordsEqual(t *testing.T, want, got *Record) {
	t.Helper()
	if got.ConfigID != want.ConfigID || got.Rows != want.Rows || got.Cols != want.Cols || got.Score != want.Score {
		t.Fatalf("header mismatch: got %+v, want %+v", got, want)
	}
	if got.Depth != want.Depth {
		t.Errorf("Depth = %d, want %d", got.Depth, want.Depth)
	}
	if got.CumulativeCompute != want.CumulativeCompute {
		t.Errorf("CumulativeCompute = %v, want %v", got.CumulativeCompute, want.CumulativeCompute)
	}
	if !got.SavedAt.Equal(want.SavedAt) {
		t.Errorf("SavedAt = %v, want %v", got.SavedAt, want.SavedAt)
	}
	if got.BoardDump != want.BoardDump {
		t.Errorf("BoardDump = %q, want %q", got.BoardDump, want.BoardDump)
	}
	assertEntriesEqual(t, "PlacementOrder", want.PlacementOrder, got.PlacementOrder)
	assertEntriesEqual(t, "Placements", want.Placements, got.Placements)
	if len(got.UnusedPieces) != len(want.UnusedPieces) {
		t.Fatalf("UnusedPieces length = %d, want %d", len(got.UnusedPieces), len(want.UnusedPieces))
	}
	for i := range want.UnusedPieces {
		if got.UnusedPieces[i] != want.UnusedPieces[i] {
			t.Errorf("UnusedPieces[%d] = %d, want %d", i, got.UnusedPieces[i], want.UnusedPieces[i])
		}
	}
}

func assertEntriesEqual(t *testing.T, label string, want, got []Entry) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s length = %d, want %d", label, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d] = %+v, want %+v", label, i, got[i], want[i])
		}
	}
}
