// Package domain implements the Domain Manager: the per-cell candidate
// sets, their propagation after a placement, and the exact-reversal
// undo trail that makes backtracking cheap. The trail discipline
// mirrors the teacher's per-ply undo stack (board.Position's
// MakeMove/UnmakeMove): every mutation a placement causes is recorded
// once, in the order it happened, and undone by replaying that record
// backwards rather than by recomputing anything from scratch.
package domain

import (
	"github.com/hailam/eternity2/internal/edgeindex"
	"github.com/hailam/eternity2/internal/puzzle"
)

// Candidate names one piece at one rotation still considered feasible
// for some cell.
type Candidate = edgeindex.Candidate

// Pos is a board coordinate.
type Pos struct {
	Row, Col int
}

type cellRemoval struct {
	pos        Pos
	candidates []Candidate
}

// Trail records everything a single PlaceAndPropagate call changed, so
// Undo can restore the exact prior state. It is owned by the caller
// that received it from PlaceAndPropagate and must be passed back to
// Undo at most once.
type Trail struct {
	cell           Pos
	ownCandidates  []Candidate
	removed        []cellRemoval
	failed         bool
}

// Manager holds one live domain per empty cell. It is owned by exactly
// one kernel/worker at a time and is not safe for concurrent use.
type Manager struct {
	board  *puzzle.Board
	puzzle *puzzle.Puzzle
	index  *edgeindex.Index

	domains    map[Pos][]Candidate
	usedPieces map[int]bool
}

// NewManager builds the initial domain for every empty cell of board,
// given puzzle's piece set and a pre-built edge index. Fixed placements
// must already be applied to board before calling NewManager.
func NewManager(board *puzzle.Board, pz *puzzle.Puzzle, idx *edgeindex.Index) *Manager {
	m := &Manager{
		board:      board,
		puzzle:     pz,
		index:      idx,
		domains:    make(map[Pos][]Candidate),
		usedPieces: make(map[int]bool),
	}
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			if pl, ok := board.Get(r, c); ok {
				m.usedPieces[pl.PieceID] = true
			}
		}
	}
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			if board.IsEmpty(r, c) {
				m.domains[Pos{r, c}] = m.computeDomain(r, c)
			}
		}
	}
	return m
}

// computeDomain derives the full candidate set for an empty cell from
// scratch: intersect the edge-index lookups for every constrained side
// (border sentinel or placed neighbor), then drop already-used pieces.
func (m *Manager) computeDomain(row, col int) []Candidate {
	var constrained []puzzle.Side
	var required []puzzle.Color
	for s := puzzle.Side(0); s < 4; s++ {
		if m.board.IsBorder(row, col, s) {
			constrained = append(constrained, s)
			required = append(required, puzzle.BorderColor)
			continue
		}
		nr, nc, _ := m.board.Neighbor(row, col, s)
		if npl, ok := m.board.Get(nr, nc); ok {
			constrained = append(constrained, s)
			required = append(required, npl.Edge(s.Opposite()))
		}
	}
	if len(constrained) == 0 {
		return m.allUnusedCandidates()
	}
	// start from the smallest bucket to minimize scan work.
	best := m.index.Lookup(constrained[0], required[0])
	for i := 1; i < len(constrained); i++ {
		if b := m.index.Lookup(constrained[i], required[i]); len(b) < len(best) {
			best = b
		}
	}
	out := make([]Candidate, 0, len(best))
	for _, cand := range best {
		if m.usedPieces[cand.PieceID] {
			continue
		}
		if m.matchesAll(cand, constrained, required) {
			out = append(out, cand)
		}
	}
	return out
}

func (m *Manager) matchesAll(cand Candidate, sides []puzzle.Side, colors []puzzle.Color) bool {
	p := m.puzzle.Pieces[cand.PieceID]
	for i, s := range sides {
		if p.RotatedEdge(s, cand.Rotation) != colors[i] {
			return false
		}
	}
	return true
}

// allUnusedCandidates walks piece IDs in m.puzzle.SortOrder (rather
// than ranging over the Pieces map directly, whose iteration order Go
// leaves unspecified) so an unconstrained cell's candidate order is
// reproducible and honors the puzzle file's declared sort-order.
func (m *Manager) allUnusedCandidates() []Candidate {
	var out []Candidate
	for _, id := range m.puzzle.PieceIDsSorted() {
		if m.usedPieces[id] {
			continue
		}
		p := m.puzzle.Pieces[id]
		for rot := 0; rot < p.UniqueRotationCount(); rot++ {
			out = append(out, Candidate{PieceID: id, Rotation: rot})
		}
	}
	return out
}

// EmptyCells returns every cell that still has a live domain. Order is
// unspecified; callers that need determinism should sort the result.
func (m *Manager) EmptyCells() []Pos {
	out := make([]Pos, 0, len(m.domains))
	for p := range m.domains {
		out = append(out, p)
	}
	return out
}

// CandidateCount returns the live domain size for an empty cell.
func (m *Manager) CandidateCount(row, col int) int {
	return len(m.domains[Pos{row, col}])
}

// Candidates returns a copy of the live domain for an empty cell. The
// cell must currently be empty.
func (m *Manager) Candidates(row, col int) []Candidate {
	src := m.domains[Pos{row, col}]
	out := make([]Candidate, len(src))
	copy(out, src)
	return out
}

// IsPieceUsed reports whether pieceID is already placed somewhere on
// the board.
func (m *Manager) IsPieceUsed(pieceID int) bool {
	return m.usedPieces[pieceID]
}

// PlaceAndPropagate applies cand at (row,col): it removes the cell's
// own domain (the cell is no longer empty), removes cand.PieceID from
// every other cell's domain, and narrows the domain of each
// still-empty neighbor to only the candidates compatible with the new
// shared edge. It always returns a trail, even when ok is false,
// because partial propagation already happened and must still be
// undoable; ok is false the moment any cell's domain would become
// empty (a dead end).
func (m *Manager) PlaceAndPropagate(row, col int, cand Candidate) (*Trail, bool) {
	pos := Pos{row, col}
	t := &Trail{cell: pos, ownCandidates: m.domains[pos]}
	delete(m.domains, pos)
	m.usedPieces[cand.PieceID] = true

	ok := true
	for other, cands := range m.domains {
		kept := cands[:0:0]
		var removed []Candidate
		changed := false
		for _, c := range cands {
			if c.PieceID == cand.PieceID {
				removed = append(removed, c)
				changed = true
				continue
			}
			kept = append(kept, c)
		}
		if changed {
			m.domains[other] = kept
			t.removed = append(t.removed, cellRemoval{pos: other, candidates: removed})
			if len(kept) == 0 {
				ok = false
			}
		}
	}

	p := m.puzzle.Pieces[cand.PieceID]
	edges := p.RotatedEdges(cand.Rotation)
	for s := puzzle.Side(0); s < 4; s++ {
		nr, nc, exists := m.board.Neighbor(row, col, s)
		if !exists {
			continue
		}
		npos := Pos{nr, nc}
		cands, isEmpty := m.domains[npos]
		if !isEmpty {
			continue
		}
		required := edges[s]
		opp := s.Opposite()
		kept := cands[:0:0]
		var removed []Candidate
		for _, c := range cands {
			np := m.puzzle.Pieces[c.PieceID]
			if np.RotatedEdge(opp, c.Rotation) == required {
				kept = append(kept, c)
			} else {
				removed = append(removed, c)
			}
		}
		if len(removed) > 0 {
			m.domains[npos] = kept
			t.removed = append(t.removed, cellRemoval{pos: npos, candidates: removed})
			if len(kept) == 0 {
				ok = false
			}
		}
	}

	t.failed = !ok
	return t, ok
}

// Undo reverses exactly what the matching PlaceAndPropagate call did:
// the cell's own domain is restored, every removed candidate is added
// back to the cell it was removed from, and the placed piece is marked
// unused again.
func (m *Manager) Undo(trail *Trail, placedPieceID int) {
	for i := len(trail.removed) - 1; i >= 0; i-- {
		r := trail.removed[i]
		m.domains[r.pos] = append(m.domains[r.pos], r.candidates...)
	}
	m.domains[trail.cell] = trail.ownCandidates
	delete(m.usedPieces, placedPieceID)
}
