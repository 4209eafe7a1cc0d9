// Package heuristics implements the decision policies the backtracking
// kernel consults at each step: MRV cell selection, singleton
// detection, and LCV candidate ordering. The LCV scorer and its
// partial-sort picker are grounded on the teacher's move ordering
// (internal/engine/ordering.go): score every candidate once, then pick
// the best remaining one with an in-place partial selection sort
// instead of a full sort, since most searches only need the first few
// picks before backtracking away.
package heuristics

import (
	"github.com/hailam/eternity2/internal/domain"
	"github.com/hailam/eternity2/internal/edgeindex"
	"github.com/hailam/eternity2/internal/puzzle"
)

// Candidate names one piece at one rotation.
type Candidate = edgeindex.Candidate

// FindSingleton scans every live domain for a cell with exactly one
// remaining candidate. It returns the first one found (map iteration
// order is arbitrary, so callers must not depend on a particular
// tie-break here; singletons are forced moves, there is nothing to
// choose between).
func FindSingleton(mgr *domain.Manager) (pos domain.Pos, cand Candidate, ok bool) {
	for _, p := range mgr.EmptyCells() {
		if mgr.CandidateCount(p.Row, p.Col) == 1 {
			cands := mgr.Candidates(p.Row, p.Col)
			return p, cands[0], true
		}
	}
	return domain.Pos{}, Candidate{}, false
}

// SelectCell applies the Minimum Remaining Values heuristic: pick the
// empty cell with the smallest live domain. Ties are broken, in order,
// by (1) prioritizing border/corner cells when prioritizeBorders is
// set, (2) the cell with more already-occupied neighbors ("most
// constrained"), then (3) row-major position, so the same puzzle
// always explores cells in the same order.
func SelectCell(mgr *domain.Manager, board *puzzle.Board, prioritizeBorders bool) (domain.Pos, bool) {
	cells := mgr.EmptyCells()
	if len(cells) == 0 {
		return domain.Pos{}, false
	}
	best := cells[0]
	bestCount := mgr.CandidateCount(best.Row, best.Col)
	bestIsBorder := isBorderCell(board, best)
	bestOccupiedNeighbors := occupiedNeighborCount(board, best)
	for _, p := range cells[1:] {
		count := mgr.CandidateCount(p.Row, p.Col)
		pIsBorder := isBorderCell(board, p)
		pOccupiedNeighbors := occupiedNeighborCount(board, p)
		better := false
		switch {
		case count != bestCount:
			better = count < bestCount
		case prioritizeBorders && pIsBorder != bestIsBorder:
			better = pIsBorder
		case pOccupiedNeighbors != bestOccupiedNeighbors:
			better = pOccupiedNeighbors > bestOccupiedNeighbors
		default:
			better = p.Row < best.Row || (p.Row == best.Row && p.Col < best.Col)
		}
		if better {
			best, bestCount, bestIsBorder, bestOccupiedNeighbors = p, count, pIsBorder, pOccupiedNeighbors
		}
	}
	return best, true
}

func isBorderCell(board *puzzle.Board, p domain.Pos) bool {
	for s := puzzle.Side(0); s < 4; s++ {
		if board.IsBorder(p.Row, p.Col, s) {
			return true
		}
	}
	return false
}

func occupiedNeighborCount(board *puzzle.Board, p domain.Pos) int {
	n := 0
	for s := puzzle.Side(0); s < 4; s++ {
		nr, nc, exists := board.Neighbor(p.Row, p.Col, s)
		if exists && !board.IsEmpty(nr, nc) {
			n++
		}
	}
	return n
}

// scored pairs a candidate with its LCV score: the number of
// possibilities this choice would leave available across this cell's
// still-empty neighbors. Higher is less constraining and is tried
// first.
type scored struct {
	cand  Candidate
	score int
}

// OrderCandidates scores every candidate in cands for Least
// Constraining Value and returns them sorted from least to most
// constraining. Scoring never mutates mgr: each candidate's effect is
// counted against the neighbors' current live domains, not applied.
func OrderCandidates(mgr *domain.Manager, idx *edgeindex.Index, pz *puzzle.Puzzle, board *puzzle.Board, row, col int, cands []Candidate) []Candidate {
	items := make([]scored, len(cands))
	for i, c := range cands {
		items[i] = scored{cand: c, score: lcvScore(mgr, pz, board, row, col, c)}
	}
	out := make([]Candidate, 0, len(items))
	for len(items) > 0 {
		bestIdx := pickBest(items, pz.SortOrder)
		out = append(out, items[bestIdx].cand)
		items[bestIdx] = items[len(items)-1]
		items = items[:len(items)-1]
	}
	return out
}

// pickBest finds the index of the least-constraining remaining item,
// breaking ties by (PieceID, Rotation) ordered per sortOrder so ordering
// stays deterministic. This mirrors the teacher's PickMove: a single
// linear scan per pick rather than a full sort up front.
func pickBest(items []scored, sortOrder puzzle.SortOrder) int {
	best := 0
	for i := 1; i < len(items); i++ {
		if betterCandidate(items[i], items[best], sortOrder) {
			best = i
		}
	}
	return best
}

func betterCandidate(a, b scored, sortOrder puzzle.SortOrder) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.cand.PieceID != b.cand.PieceID {
		if sortOrder == puzzle.Descending {
			return a.cand.PieceID > b.cand.PieceID
		}
		return a.cand.PieceID < b.cand.PieceID
	}
	if sortOrder == puzzle.Descending {
		return a.cand.Rotation > b.cand.Rotation
	}
	return a.cand.Rotation < b.cand.Rotation
}

func lcvScore(mgr *domain.Manager, pz *puzzle.Puzzle, board *puzzle.Board, row, col int, cand Candidate) int {
	p := pz.Pieces[cand.PieceID]
	edges := p.RotatedEdges(cand.Rotation)
	total := 0
	for s := puzzle.Side(0); s < 4; s++ {
		nr, nc, exists := board.Neighbor(row, col, s)
		if !exists || !board.IsEmpty(nr, nc) {
			continue
		}
		required := edges[s]
		opp := s.Opposite()
		for _, nc2 := range mgr.Candidates(nr, nc) {
			np := pz.Pieces[nc2.PieceID]
			if np.RotatedEdge(opp, nc2.Rotation) == required {
				total++
			}
		}
	}
	return total
}
