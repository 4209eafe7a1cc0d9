// Package rotator implements the Configuration Rotator: it schedules
// a pool of workers across many candidate starting configurations,
// always preferring configurations that have never been attempted,
// then the ones with the least cumulative compute time already spent
// on them, and reserves whichever configuration it hands out so two
// calls never run the same one concurrently. Per-rotation deadlines
// are tracked the way the teacher's TimeManager tracks a move's
// optimum/maximum time (internal/engine/timeman.go): a start time plus
// a fixed allotment, checked by elapsed-time comparison rather than by
// a channel or context.
package rotator

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/hailam/eternity2/internal/config"
	"github.com/hailam/eternity2/internal/driver"
	"github.com/hailam/eternity2/internal/edgeindex"
	"github.com/hailam/eternity2/internal/metrics"
	"github.com/hailam/eternity2/internal/puzzle"
	"github.com/hailam/eternity2/internal/save"
	"github.com/hailam/eternity2/internal/solver"
)

// Rotator owns the set of candidate configurations and the save
// directory their progress is checkpointed to.
type Rotator struct {
	SaveDir string
	Workers int
	Sink    metrics.Sink

	// AutoSaveInterval is how often the lead worker on each
	// configuration checkpoints while still searching, per spec.md
	// §4.5. Zero means config.DefaultAutoSaveInterval (the final
	// checkpoint written at the end of RunOne happens regardless).
	AutoSaveInterval time.Duration

	mu       sync.Mutex
	puzzles  map[string]*puzzle.Puzzle
	reserved map[string]bool
}

func (r *Rotator) autoSaveInterval() time.Duration {
	if r.AutoSaveInterval > 0 {
		return r.AutoSaveInterval
	}
	return config.DefaultAutoSaveInterval
}

// New builds a rotator over the given named puzzle configurations.
func New(saveDir string, puzzles map[string]*puzzle.Puzzle, workers int) *Rotator {
	if workers <= 0 {
		workers = 1
	}
	return &Rotator{
		SaveDir:  saveDir,
		Workers:  workers,
		Sink:     metrics.NoOp{},
		puzzles:  puzzles,
		reserved: make(map[string]bool),
	}
}

// candidate pairs a configuration ID with the cumulative compute time
// already recorded against it.
type candidate struct {
	id         string
	cumulative time.Duration
	started    bool
}

// reserve picks the best available configuration under r.mu: never-
// started configurations first, then ascending cumulative time, tied
// broken by configuration ID for determinism. It marks the winner
// reserved before returning so a concurrent caller can't double-book
// it.
func (r *Rotator) reserve() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pool []candidate
	for id := range r.puzzles {
		if r.reserved[id] {
			continue
		}
		cum, started := r.cumulativeTime(id)
		pool = append(pool, candidate{id: id, cumulative: cum, started: started})
	}
	if len(pool) == 0 {
		return "", false
	}
	sort.Slice(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.started != b.started {
			return !a.started // never-started sorts first
		}
		if a.cumulative != b.cumulative {
			return a.cumulative < b.cumulative
		}
		return a.id < b.id
	})
	winner := pool[0].id
	r.reserved[winner] = true
	return winner, true
}

func (r *Rotator) release(id string) {
	r.mu.Lock()
	delete(r.reserved, id)
	r.mu.Unlock()
}

func (r *Rotator) cumulativeTime(id string) (time.Duration, bool) {
	path, format, ok := save.FindCurrentSave(r.SaveDir, id)
	if !ok {
		return 0, false
	}
	var rec *save.Record
	var err error
	if format == "binary" {
		rec, err = save.ReadBinary(path)
	} else {
		rec, err = save.ReadText(path)
	}
	if err != nil {
		log.Printf("[rotator] ignoring unreadable save for %q: %v", id, err)
		return 0, false
	}
	return rec.CumulativeCompute, true
}

// RunOne reserves the next-best configuration, searches it for up to
// perConfig, checkpoints its progress, and releases the reservation.
// It returns the configuration ID it ran and whether a solution was
// found, or ok=false if no configuration was available to run.
func (r *Rotator) RunOne(perConfig time.Duration) (id string, solved bool, ok bool) {
	id, ok = r.reserve()
	if !ok {
		return "", false, false
	}
	defer r.release(id)

	pz := r.puzzles[id]
	idx := edgeindex.Build(pz.Pieces, numColors(pz))

	priorCumulative, _ := r.cumulativeTime(id)
	start := time.Now()
	deadline := start.Add(perConfig)

	var replay []solver.PlacementEntry
	if rec, err := save.Load(r.SaveDir, id); err == nil {
		replay = toSolverEntries(rec.PlacementOrder)
	}

	d := driver.New(pz, idx, r.Workers)
	d.Sink = r.Sink
	d.Replay = replay
	d.AutoSaveDir = r.SaveDir
	d.AutoSaveConfigID = id
	d.AutoSaveInterval = r.autoSaveInterval()
	d.PriorCumulative = priorCumulative

	log.Printf("[rotator] running %q for %s (cumulative so far %s)", id, perConfig, priorCumulative)
	results := d.Run(deadline)

	best := bestResult(results)
	elapsed := time.Since(start)
	r.checkpoint(id, pz, best, priorCumulative+elapsed)

	solved = best != nil && best.Outcome == solver.Solved
	return id, solved, true
}

// RunLoop repeatedly calls RunOne, spending up to perConfig on each,
// until RunOne finds no configuration to reserve (none registered, or
// every one reserved by another caller). A solved configuration is
// logged and stays in the rotation.
func (r *Rotator) RunLoop(perConfig time.Duration) {
	for {
		id, solved, ok := r.RunOne(perConfig)
		if !ok {
			log.Printf("[rotator] no configuration available, stopping")
			return
		}
		if solved {
			log.Printf("[rotator] configuration %q solved", id)
		}
	}
}

func bestResult(results []driver.Result) *driver.Result {
	var best *driver.Result
	for i := range results {
		r := &results[i]
		if best == nil {
			best = r
			continue
		}
		if r.Outcome == solver.Solved && best.Outcome != solver.Solved {
			best = r
			continue
		}
		bc, _ := r.Board.Score()
		be, _ := best.Board.Score()
		if bc > be {
			best = r
		}
	}
	return best
}

func (r *Rotator) checkpoint(id string, pz *puzzle.Puzzle, best *driver.Result, cumulative time.Duration) {
	if best == nil {
		return
	}
	order := make([]save.Entry, len(best.Order))
	for i, e := range best.Order {
		order[i] = save.Entry{Row: e.Row, Col: e.Col, PieceID: e.PieceID, Rotation: e.Rotation}
	}
	rec := save.NewRecord(id, best.Board, order, best.UnusedPieces(pz), cumulative, time.Now())
	if _, err := save.WriteCurrent(r.SaveDir, id, rec, true); err != nil {
		log.Printf("[rotator] checkpoint for %q failed: %v", id, err)
	}
	if rec.Score == pz.Rows*(pz.Cols-1)+(pz.Rows-1)*pz.Cols {
		if _, err := save.WriteBest(r.SaveDir, id, rec, true); err != nil {
			log.Printf("[rotator] best-save for %q failed: %v", id, err)
		}
	}
}

func toSolverEntries(entries []save.Entry) []solver.PlacementEntry {
	if entries == nil {
		return nil
	}
	out := make([]solver.PlacementEntry, len(entries))
	for i, e := range entries {
		out[i] = solver.PlacementEntry{Row: e.Row, Col: e.Col, PieceID: e.PieceID, Rotation: e.Rotation}
	}
	return out
}

func numColors(pz *puzzle.Puzzle) int {
	max := 0
	for _, p := range pz.Pieces {
		for s := puzzle.Side(0); s < 4; s++ {
			if c := int(p.Edge(s)); c > max {
				max = c
			}
		}
	}
	return max + 1
}
