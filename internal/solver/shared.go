// Package solver implements the Backtracking Kernel and the Shared
// Search State the work-stealing driver publishes progress through.
// The kernel's recursion and stop-flag polling mirror the teacher's
// negamax worker (internal/engine/worker.go): a per-goroutine mutable
// search stack, a shared atomic.Bool stop flag checked every so many
// steps rather than every step, and an undo-stack based unwind on
// every return path.
package solver

import (
	"sync/atomic"

	"github.com/hailam/eternity2/internal/puzzle"
)

// BestSnapshot is an immutable, independently-owned copy of the best
// progress any worker has observed: how many cells were filled and the
// board state at that moment. Workers publish a new snapshot only when
// they beat the currently published depth.
type BestSnapshot struct {
	Depth int
	Board *puzzle.Board
}

// SharedState is the one piece of mutable state every worker in a
// driver run touches concurrently. It is deliberately small: a solved
// flag and an atomically-published best snapshot, exactly the shape of
// the teacher's Engine.stopFlag plus its best-result reducer, adapted
// from a transient channel message to a durable published pointer
// since multiple workers must be able to observe a consistent
// (depth, board) pair at any time, not just the one that arrives first
// on a channel.
type SharedState struct {
	solved atomic.Bool
	best   atomic.Pointer[BestSnapshot]
}

// NewSharedState returns a fresh, unsolved shared state.
func NewSharedState() *SharedState {
	return &SharedState{}
}

// Solved reports whether any worker has already found a solution.
func (s *SharedState) Solved() bool {
	return s.solved.Load()
}

// MarkSolved flags the shared state as solved, signalling every other
// worker's stop-flag poll to return.
func (s *SharedState) MarkSolved() {
	s.solved.Store(true)
}

// Best returns the most recently published snapshot, or nil if none
// has been published yet.
func (s *SharedState) Best() *BestSnapshot {
	return s.best.Load()
}

// PublishIfBetter atomically replaces the published snapshot with one
// built from board at the given depth, but only if depth exceeds the
// currently published depth. It loops on compare-and-swap so that two
// workers racing to publish never tear each other's write, and the
// loser of the race simply discards its candidate once it observes a
// depth that already beats its own.
func (s *SharedState) PublishIfBetter(depth int, board *puzzle.Board) {
	for {
		cur := s.best.Load()
		if cur != nil && cur.Depth >= depth {
			return
		}
		next := &BestSnapshot{Depth: depth, Board: board.Clone()}
		if s.best.CompareAndSwap(cur, next) {
			return
		}
	}
}
