// Package save implements the Save/Restore subsystem: a text format
// for human inspection and a binary format for compact, fast reload,
// both written with the same atomic-rename discipline so a crash
// mid-write can never leave a half-written save on disk. The binary
// record layout is grounded on the teacher's Polyglot book reader
// (internal/book/book.go): fixed-size records read with
// encoding/binary and io.ReadFull. The write-temp/fsync/rename
// discipline generalizes the teacher's storage package, which relied
// on Badger's own WAL for atomicity; a plain file needs the equivalent
// done by hand.
package save

import (
	"time"

	"github.com/hailam/eternity2/internal/puzzle"
)

// Entry is one placement: a cell, the piece occupying it, and its
// rotation.
type Entry struct {
	Row, Col int
	PieceID  int
	Rotation int
}

// Record is everything needed to resume a search exactly where it left
// off, per spec.md §3's Save Record: a timestamp, the puzzle's
// dimensions and depth, the full placement order (so replay can
// reconstruct board and domain state), the canonical snapshot of every
// occupied cell, which pieces remain unused, an optional ASCII board
// dump, and enough bookkeeping to let the rotator compare
// configurations by compute time already spent.
type Record struct {
	// ConfigID names the configuration this save belongs to; it also
	// serves as the "puzzle name" spec.md §3 calls for, since every
	// configuration in this implementation is itself a distinct named
	// puzzle file.
	ConfigID   string
	Rows, Cols int
	// Depth is the number of placement decisions recorded (len of
	// PlacementOrder); fixed placements applied before search began are
	// not counted, matching how the kernel itself measures depth.
	Depth int

	// PlacementOrder is the temporal sequence of placement decisions,
	// used to replay a partial board via the kernel's
	// replay-then-extend machinery.
	PlacementOrder []Entry
	// Placements is the canonical snapshot of every occupied cell at
	// save time (including fixed placements), independent of the order
	// they were made in. Distinct from PlacementOrder per spec.md §4.8.
	Placements   []Entry
	UnusedPieces []int

	// BoardDump is the optional ASCII rendering of the board at save
	// time (puzzle.Board.ASCIIDump's output), kept purely for human
	// inspection; it is never consulted when reloading a save.
	BoardDump string

	CumulativeCompute time.Duration
	Score             int
	SavedAt           time.Time
}

// NewRecord builds a Record from a board snapshot, deriving Depth,
// Placements, Score and BoardDump from board itself so every call site
// (the driver's autosave, the rotator's checkpoint, the final-result
// persist in main) builds a Record the same way rather than
// duplicating the board-to-Record conversion.
func NewRecord(configID string, board *puzzle.Board, order []Entry, unused []int, cumulative time.Duration, savedAt time.Time) *Record {
	score, _ := board.Score()
	cells := board.AllPlacements()
	placements := make([]Entry, len(cells))
	for i, c := range cells {
		placements[i] = Entry{Row: c.Row, Col: c.Col, PieceID: c.PieceID, Rotation: c.Rotation}
	}
	return &Record{
		ConfigID:          configID,
		Rows:              board.Rows,
		Cols:              board.Cols,
		Depth:             len(order),
		PlacementOrder:    order,
		Placements:        placements,
		UnusedPieces:      unused,
		BoardDump:         board.ASCIIDump(),
		CumulativeCompute: cumulative,
		Score:             score,
		SavedAt:           savedAt,
	}
}
