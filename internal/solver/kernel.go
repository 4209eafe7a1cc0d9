package solver

import (
	"sync/atomic"
	"time"

	"github.com/hailam/eternity2/internal/domain"
	"github.com/hailam/eternity2/internal/edgeindex"
	"github.com/hailam/eternity2/internal/heuristics"
	"github.com/hailam/eternity2/internal/metrics"
	"github.com/hailam/eternity2/internal/puzzle"
)

// Outcome is what a Solve call returned control for.
type Outcome int

const (
	// DeadEnd means this subtree was exhausted with no solution.
	DeadEnd Outcome = iota
	// Solved means the board is completely and correctly filled.
	Solved
	// Cancelled means the kernel stopped because of an external signal
	// (deadline, rotation timeout, or another worker finding a solution
	// first) rather than exhausting the search space.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Solved:
		return "solved"
	case Cancelled:
		return "cancelled"
	default:
		return "dead-end"
	}
}

// PlacementEntry is one entry of the placement order: which piece, at
// which rotation, went into which cell, and in what sequence.
type PlacementEntry struct {
	Row, Col int
	PieceID  int
	Rotation int
}

// Snapshot is everything an AutoSaveFunc needs to persist a checkpoint:
// the board, the replayable placement order, which pieces remain, and
// the cumulative compute time across this and every prior invocation.
// IsBest is set when this snapshot's depth strictly exceeds every
// depth this kernel has reported before, per spec.md §4.5's "best-k"
// trigger.
type Snapshot struct {
	Board             *puzzle.Board
	Order             []PlacementEntry
	UnusedPieces      []int
	CumulativeCompute time.Duration
	IsBest            bool
}

// AutoSaveFunc persists a Snapshot. The kernel calls it synchronously
// at a step boundary, never while holding any lock; a slow or failing
// implementation only delays this kernel's own search, never another
// worker's. Matches the "cooperative checkpoint" design note: no timer
// goroutine, just a predicate polled where the kernel already checks
// for cancellation.
type AutoSaveFunc func(Snapshot)

// Stats accumulates counters for a single kernel's run. Its counters
// are copied into every metrics event and it is returned to the driver
// in each worker's Result; it holds no timing information.
type Stats struct {
	Placements int64
	Backtracks int64
	DeadEnds   int64
}

// Kernel is the Backtracking Kernel: the per-goroutine unit of search.
// It owns one Board and one domain.Manager outright and is not safe
// for concurrent use, mirroring the teacher's per-goroutine Worker
// owning its own board.Position.
type Kernel struct {
	Board  *puzzle.Board
	Puzzle *puzzle.Puzzle
	Domain *domain.Manager
	Index  *edgeindex.Index
	Shared *SharedState
	Sink   metrics.Sink

	// Stop is external cooperative cancellation: a deadline expiring, a
	// rotation timeout, or an operator-requested abort. Checked
	// periodically, not on every step, the same cadence the teacher
	// polls its negamax stop flag.
	Stop *atomic.Bool
	// Deadline is an optional wall-clock cutoff, checked at the same
	// cadence as Stop.
	Deadline time.Time

	Order  []PlacementEntry
	trails []*domain.Trail

	// RootOffset diversifies this kernel's very first decision by
	// cyclically rotating its LCV-ordered candidate list, so a pool of
	// kernels started with different offsets explore distinct corners
	// of the search tree first instead of retracing each other's steps.
	RootOffset int

	replayOrder []PlacementEntry

	// AutoSave, when non-nil, is invoked periodically (every
	// AutoSaveInterval of wall time) and whenever this kernel's depth
	// sets a new record for itself, per spec.md §4.5. PriorCumulative
	// is the compute time already spent on this configuration before
	// this invocation started, so the snapshot's cumulative figure
	// survives across many separate Solve calls (e.g. one per rotation
	// timeout).
	AutoSave         AutoSaveFunc
	AutoSaveInterval time.Duration
	PriorCumulative  time.Duration

	startTime    time.Time
	lastAutoSave time.Time
	maxDepthSeen int

	steps uint64
	Stats Stats
}

// NewKernel builds a kernel for pz, applying pz.Fixed before any search
// begins. Fixed cells are baked into the board and never appear in
// Order.
func NewKernel(pz *puzzle.Puzzle, idx *edgeindex.Index, shared *SharedState, stop *atomic.Bool) *Kernel {
	board := pz.NewBoard()
	for _, fp := range pz.Fixed {
		piece := pz.Pieces[fp.PieceID]
		board.Place(fp.Row, fp.Col, puzzle.NewPlacement(piece, fp.Rotation))
	}
	mgr := domain.NewManager(board, pz, idx)
	return &Kernel{
		Board:  board,
		Puzzle: pz,
		Domain: mgr,
		Index:  idx,
		Shared: shared,
		Stop:   stop,
		Sink:   metrics.NoOp{},
	}
}

// LoadReplay records entries as the sequence Solve must reproduce
// before making any fresh decisions. It does not place anything
// itself: replay placements are made inside Solve's own recursion so
// that, if the search ever backtracks all the way into a replayed
// cell, there is a live call frame able to try that cell's remaining
// rotations and other pieces rather than simply giving up.
func (k *Kernel) LoadReplay(entries []PlacementEntry) {
	k.replayOrder = entries
}

// Solve runs the backtracking search to completion, to a dead end, or
// until cancelled. Depth always equals len(k.Order) at entry.
//
// The cumulative compute time and placement order are persisted via
// AutoSave (if set) before Solve returns on every path, per spec.md
// §4.5's "last cumulative compute time and placement order must be
// persisted before returning" requirement.
func (k *Kernel) Solve() Outcome {
	k.startTime = time.Now()
	k.lastAutoSave = k.startTime
	outcome := k.solve()
	k.emitAutoSave(false)
	return outcome
}

// cumulativeCompute reports total compute time spent on this
// configuration: time already spent before this invocation plus
// elapsed wall time since Solve was called.
func (k *Kernel) cumulativeCompute() time.Duration {
	return k.PriorCumulative + time.Since(k.startTime)
}

func (k *Kernel) emitAutoSave(isBest bool) {
	if k.AutoSave == nil {
		return
	}
	order := make([]PlacementEntry, len(k.Order))
	copy(order, k.Order)
	var unused []int
	placed := make(map[int]bool, len(order)+len(k.Puzzle.Fixed))
	for _, e := range order {
		placed[e.PieceID] = true
	}
	for _, fp := range k.Puzzle.Fixed {
		placed[fp.PieceID] = true
	}
	for id := range k.Puzzle.Pieces {
		if !placed[id] {
			unused = append(unused, id)
		}
	}
	k.AutoSave(Snapshot{
		Board:             k.Board.Clone(),
		Order:             order,
		UnusedPieces:      unused,
		CumulativeCompute: k.cumulativeCompute(),
		IsBest:            isBest,
	})
}

// maybeAutoSave fires a periodic "current" checkpoint once
// AutoSaveInterval has elapsed since the last one. Called only at the
// same polling cadence as stop-flag checks, never on every step.
func (k *Kernel) maybeAutoSave() {
	if k.AutoSave == nil || k.AutoSaveInterval <= 0 {
		return
	}
	if time.Since(k.lastAutoSave) < k.AutoSaveInterval {
		return
	}
	k.lastAutoSave = time.Now()
	k.emitAutoSave(false)
}

func (k *Kernel) solve() Outcome {
	if k.stopRequested() {
		return Cancelled
	}
	if k.Board.IsFull() {
		k.Shared.MarkSolved()
		return Solved
	}

	depth := len(k.Order)
	singletons := 0
	if depth >= len(k.replayOrder) {
		for {
			pos, cand, found := heuristics.FindSingleton(k.Domain)
			if !found {
				break
			}
			trail, ok := k.place(pos.Row, pos.Col, cand)
			if !ok {
				k.undoSingletons(singletons)
				k.Stats.DeadEnds++
				return DeadEnd
			}
			k.pushOrder(pos.Row, pos.Col, cand, trail)
			singletons++
			if k.Board.IsFull() {
				k.Shared.MarkSolved()
				return Solved
			}
			if k.stopRequested() {
				k.undoSingletons(singletons)
				return Cancelled
			}
		}
	}

	depth = len(k.Order)
	var row, col int
	var candidates []heuristics.Candidate
	if depth < len(k.replayOrder) {
		rec := k.replayOrder[depth]
		row, col = rec.Row, rec.Col
		candidates = k.replayCandidates(rec)
	} else {
		pos, ok := heuristics.SelectCell(k.Domain, k.Board, k.Puzzle.PrioritizeBorders)
		if !ok {
			k.undoSingletons(singletons)
			return DeadEnd
		}
		row, col = pos.Row, pos.Col
		candidates = heuristics.OrderCandidates(k.Domain, k.Index, k.Puzzle, k.Board, row, col, k.Domain.Candidates(row, col))
		if depth == 0 && k.RootOffset != 0 && len(candidates) > 0 {
			candidates = rotateCandidates(candidates, k.RootOffset)
		}
	}

	for _, cand := range candidates {
		if k.stopRequested() {
			k.undoSingletons(singletons)
			return Cancelled
		}
		trail, ok := k.place(row, col, cand)
		if !ok {
			continue
		}
		k.pushOrder(row, col, cand, trail)
		k.Shared.PublishIfBetter(len(k.Order), k.Board)
		if len(k.Order) > k.maxDepthSeen {
			k.maxDepthSeen = len(k.Order)
			k.emitAutoSave(true)
		}
		if len(k.Order) >= k.Puzzle.MinDepthToShow {
			cumulative := k.cumulativeCompute()
			var piecesPerSec float64
			if ms := cumulative.Milliseconds(); ms > 0 {
				piecesPerSec = float64(k.Stats.Placements) / (float64(ms) / 1000)
			}
			k.Sink.Emit(metrics.Event{
				Depth:               len(k.Order),
				WallClock:           time.Now(),
				CumulativeComputeMS: cumulative.Milliseconds(),
				PiecesPerSec:        piecesPerSec,
				Placements:          k.Stats.Placements,
				Backtracks:          k.Stats.Backtracks,
				DeadEnds:            k.Stats.DeadEnds,
			})
		}

		outcome := k.solve()
		if outcome == Solved || outcome == Cancelled {
			return outcome
		}
		k.popOrder()
	}

	k.undoSingletons(singletons)
	k.Stats.Backtracks++
	return DeadEnd
}

// replayCandidates builds the forced-first candidate list for a
// replayed cell: the exact recorded (piece,rotation) first, then the
// piece's remaining untried rotations, then every other currently
// feasible candidate in LCV order. The recorded placement and its
// remaining rotations are kept only where the cell's current domain
// still holds them, so a replayed prefix can never place a used piece
// or an edge that disagrees with a neighbor. This guarantees that if the
// recorded placement turns out to be part of a dead subtree, the
// search exhausts this piece's other orientations at this cell before
// giving up on the cell entirely — re-deriving the exact same dead end
// by trying the recorded rotation again would otherwise be possible if
// the fallback list weren't deliberately built to exclude it.
func (k *Kernel) replayCandidates(rec PlacementEntry) []heuristics.Candidate {
	piece := k.Puzzle.Pieces[rec.PieceID]
	feasible := k.Domain.Candidates(rec.Row, rec.Col)
	inDomain := make(map[heuristics.Candidate]bool, len(feasible))
	for _, c := range feasible {
		inDomain[c] = true
	}
	var out []heuristics.Candidate
	for rot := rec.Rotation; rot < piece.UniqueRotationCount(); rot++ {
		if c := (heuristics.Candidate{PieceID: rec.PieceID, Rotation: rot}); inDomain[c] {
			out = append(out, c)
		}
	}
	rest := make([]heuristics.Candidate, 0, len(feasible))
	for _, c := range feasible {
		if c.PieceID == rec.PieceID {
			continue
		}
		rest = append(rest, c)
	}
	ordered := heuristics.OrderCandidates(k.Domain, k.Index, k.Puzzle, k.Board, rec.Row, rec.Col, rest)
	return append(out, ordered...)
}

func rotateCandidates(cands []heuristics.Candidate, offset int) []heuristics.Candidate {
	n := len(cands)
	offset = ((offset % n) + n) % n
	if offset == 0 {
		return cands
	}
	out := make([]heuristics.Candidate, n)
	for i := range cands {
		out[i] = cands[(i+offset)%n]
	}
	return out
}

func (k *Kernel) place(row, col int, cand heuristics.Candidate) (*domain.Trail, bool) {
	trail, ok := k.Domain.PlaceAndPropagate(row, col, cand)
	if !ok {
		k.Domain.Undo(trail, cand.PieceID)
		return nil, false
	}
	piece := k.Puzzle.Pieces[cand.PieceID]
	k.Board.Place(row, col, puzzle.NewPlacement(piece, cand.Rotation))
	k.Stats.Placements++
	return trail, true
}

func (k *Kernel) pushOrder(row, col int, cand heuristics.Candidate, trail *domain.Trail) {
	k.Order = append(k.Order, PlacementEntry{Row: row, Col: col, PieceID: cand.PieceID, Rotation: cand.Rotation})
	k.trails = append(k.trails, trail)
}

func (k *Kernel) popOrder() {
	n := len(k.Order) - 1
	e := k.Order[n]
	trail := k.trails[n]
	k.Board.Remove(e.Row, e.Col)
	k.Domain.Undo(trail, e.PieceID)
	k.Order = k.Order[:n]
	k.trails = k.trails[:n]
}

func (k *Kernel) undoSingletons(n int) {
	for i := 0; i < n; i++ {
		k.popOrder()
	}
}

func (k *Kernel) stopRequested() bool {
	k.steps++
	if k.steps&1023 != 0 {
		return false
	}
	k.maybeAutoSave()
	if k.Stop != nil && k.Stop.Load() {
		return true
	}
	if k.Shared != nil && k.Shared.Solved() {
		return true
	}
	if !k.Deadline.IsZero() && time.Now().After(k.Deadline) {
		return true
	}
	return false
}
