// Package driver implements the Work-Stealing Driver: a pool of
// kernels, one per goroutine, searching the same puzzle independently
// under a shared atomic stop flag and a shared best-progress snapshot.
// The pool shape is lifted directly from the teacher's Lazy-SMP search
// (internal/engine/engine.go's SearchWithLimits/workerSearch): a
// sync.WaitGroup spawns one goroutine per worker, a result channel
// plus a done channel are drained by a resultLoop select, and a single
// atomic.Bool tells every worker to stop as soon as one of them wins.
// Depth-staggering workers (the teacher's trick for avoiding redundant
// shallow search across goroutines) becomes corner-permutation
// diversification here: each worker tries a different assignment of
// pieces to the four corners first, so workers explore genuinely
// different regions of the search tree instead of retracing each
// other's steps.
package driver

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hailam/eternity2/internal/edgeindex"
	"github.com/hailam/eternity2/internal/metrics"
	"github.com/hailam/eternity2/internal/puzzle"
	"github.com/hailam/eternity2/internal/save"
	"github.com/hailam/eternity2/internal/solver"
)

// Result is what a single worker reports back once it stops.
type Result struct {
	WorkerID int
	Outcome  solver.Outcome
	Board    *puzzle.Board
	Order    []solver.PlacementEntry
	Stats    solver.Stats
}

// UnusedPieces returns every piece ID from pz that neither appears in
// r.Order nor was fixed before search began.
func (r Result) UnusedPieces(pz *puzzle.Puzzle) []int {
	placed := make(map[int]bool, len(r.Order)+len(pz.Fixed))
	for _, e := range r.Order {
		placed[e.PieceID] = true
	}
	for _, fp := range pz.Fixed {
		placed[fp.PieceID] = true
	}
	var out []int
	for id := range pz.Pieces {
		if !placed[id] {
			out = append(out, id)
		}
	}
	return out
}

// Driver owns the worker pool for one puzzle run.
type Driver struct {
	Puzzle  *puzzle.Puzzle
	Index   *edgeindex.Index
	Workers int
	Sink    metrics.Sink

	// Replay, if non-nil, seeds every worker with the same starting
	// placement order before it begins making fresh decisions.
	Replay []solver.PlacementEntry

	// AutoSave, when AutoSaveDir is non-empty, periodically checkpoints
	// the lead worker's (worker 0's) progress to disk while the run is
	// still in flight, per spec.md §4.5. Only one worker writes: with
	// every worker owning an independent board, letting all of them
	// autosave concurrently would mean several single-writer files
	// racing for no benefit, so the lead worker's progress is used as
	// this run's representative checkpoint.
	AutoSaveDir      string
	AutoSaveConfigID string
	AutoSaveInterval time.Duration
	PriorCumulative  time.Duration

	stopFlag atomic.Bool
	shared   *solver.SharedState
}

// New builds a driver with the given worker count. workers <= 0 is
// clamped to 1.
func New(pz *puzzle.Puzzle, idx *edgeindex.Index, workers int) *Driver {
	if workers <= 0 {
		workers = 1
	}
	return &Driver{
		Puzzle:  pz,
		Index:   idx,
		Workers: workers,
		Sink:    metrics.NoOp{},
		shared:  solver.NewSharedState(),
	}
}

// Stop requests every worker to stop at its next poll.
func (d *Driver) Stop() {
	d.stopFlag.Store(true)
}

// Run starts d.Workers kernels, each diversified by a distinct corner
// permutation, and returns once one of them solves the puzzle, the
// deadline passes, or every one of them exhausts its search tree.
func (d *Driver) Run(deadline time.Time) []Result {
	log.Printf("[driver] starting %d workers for %q", d.Workers, d.Puzzle.Name)

	var diversifications [][]solver.PlacementEntry
	if d.Replay == nil {
		diversifications = cornerDiversifications(d.Puzzle, min(d.Workers, 24))
	}

	resultCh := make(chan Result, d.Workers)
	var wg sync.WaitGroup
	for i := 0; i < d.Workers; i++ {
		wg.Add(1)
		go d.workerRun(i, deadline, diversifications, resultCh, &wg)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(resultCh)
		close(done)
	}()

	var results []Result
resultLoop:
	for {
		select {
		case res, ok := <-resultCh:
			if !ok {
				break resultLoop
			}
			results = append(results, res)
			if res.Outcome == solver.Solved {
				d.Stop()
			}
		case <-done:
			break resultLoop
		}
	}

	d.Stop()
	<-done
	return results
}

func (d *Driver) workerRun(workerID int, deadline time.Time, diversifications [][]solver.PlacementEntry, out chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	k := solver.NewKernel(d.Puzzle, d.Index, d.shared, &d.stopFlag)
	k.Deadline = deadline
	k.Sink = d.Sink
	switch {
	case d.Replay != nil:
		// Resuming a saved search takes priority over diversification:
		// there is only one history to replay, shared by every worker.
		k.LoadReplay(d.Replay)
	case workerID < len(diversifications):
		k.LoadReplay(diversifications[workerID])
	default:
		// Out of distinct corner permutations (more than 24 workers, or
		// this puzzle has no clean 4-corner-piece set): fall back to a
		// cheap root-candidate rotation so these workers still diverge
		// from each other instead of retracing the same first move.
		k.RootOffset = workerID
	}
	if workerID == 0 && d.AutoSaveDir != "" && d.AutoSaveInterval > 0 {
		k.AutoSave = d.autoSaveFunc()
		k.AutoSaveInterval = d.AutoSaveInterval
		k.PriorCumulative = d.PriorCumulative
	}

	outcome := k.Solve()
	order := make([]solver.PlacementEntry, len(k.Order))
	copy(order, k.Order)
	out <- Result{WorkerID: workerID, Outcome: outcome, Board: k.Board, Order: order, Stats: k.Stats}
}

// autoSaveFunc builds the lead worker's AutoSaveFunc: it converts a
// solver.Snapshot into a save.Record and writes it under the driver's
// configured save directory, to the "current" path always and to the
// "best" path too when the snapshot is a new depth record, exactly
// the split spec.md §4.8 calls for between incremental and record
// snapshots.
func (d *Driver) autoSaveFunc() solver.AutoSaveFunc {
	return func(snap solver.Snapshot) {
		order := make([]save.Entry, len(snap.Order))
		for i, e := range snap.Order {
			order[i] = save.Entry{Row: e.Row, Col: e.Col, PieceID: e.PieceID, Rotation: e.Rotation}
		}
		rec := save.NewRecord(d.AutoSaveConfigID, snap.Board, order, snap.UnusedPieces, snap.CumulativeCompute, time.Now())
		if _, err := save.WriteCurrent(d.AutoSaveDir, d.AutoSaveConfigID, rec, true); err != nil {
			log.Printf("[driver] autosave current for %q failed: %v", d.AutoSaveConfigID, err)
			return
		}
		if snap.IsBest {
			if _, err := save.WriteBest(d.AutoSaveDir, d.AutoSaveConfigID, rec, true); err != nil {
				log.Printf("[driver] autosave best for %q failed: %v", d.AutoSaveConfigID, err)
			}
		}
	}
}
