// Command eternity2 solves a single edge-matching puzzle file and
// reports either a complete solution or its deepest partial
// assignment on interruption. It is the default entry point; the
// Configuration Rotator lives in its own command
// (cmd/eternity2-rotate) since it serves a different operating mode
// (many configurations, long-running rotation) than a one-shot solve.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/hailam/eternity2/internal/config"
	"github.com/hailam/eternity2/internal/driver"
	"github.com/hailam/eternity2/internal/edgeindex"
	"github.com/hailam/eternity2/internal/metrics"
	"github.com/hailam/eternity2/internal/puzzle"
	"github.com/hailam/eternity2/internal/puzzlefile"
	"github.com/hailam/eternity2/internal/save"
	"github.com/hailam/eternity2/internal/solver"
)

func main() {
	threads := flag.Int("threads", runtime.GOMAXPROCS(0), "number of parallel search workers")
	timeout := flag.Duration("timeout", 0, "overall time budget (0 = unbounded)")
	saveDir := flag.String("save-dir", "saves", "directory for periodic checkpoints")
	autoSave := flag.Duration("autosave-interval", config.DefaultAutoSaveInterval, "how often to checkpoint while solving")
	metricsDir := flag.String("metrics-dir", "", "directory for a Badger-backed progress-event history (disabled if empty)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <puzzle-file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Solve{
		PuzzleFile:       flag.Arg(0),
		Threads:          *threads,
		Timeout:          *timeout,
		SaveDir:          *saveDir,
		AutoSaveInterval: *autoSave,
		MetricsDir:       *metricsDir,
	}

	if err := run(cfg); err != nil {
		log.Fatalf("[eternity2] %v", err)
	}
}

func run(cfg config.Solve) error {
	pz, err := puzzlefile.Load(cfg.PuzzleFile)
	if err != nil {
		return fmt.Errorf("load puzzle: %w", err)
	}

	if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}

	idx := edgeindex.Build(pz.Pieces, numColors(pz))

	d := driver.New(pz, idx, cfg.Threads)
	d.AutoSaveDir = cfg.SaveDir
	d.AutoSaveConfigID = pz.Name
	d.AutoSaveInterval = cfg.AutoSaveInterval

	if cfg.MetricsDir != "" {
		sink, err := metrics.OpenBadgerSink(cfg.MetricsDir, pz.Name)
		if err != nil {
			// An unopenable history store is not fatal to a solve: the
			// kernel falls back to discarding progress events, the same
			// log-and-continue treatment the teacher gives an optional
			// subsystem that failed to load.
			log.Printf("[eternity2] metrics store unavailable, progress events will be discarded: %v", err)
		} else {
			defer sink.Close()
			d.Sink = sink
		}
	}

	var replayCumulative time.Duration
	if rec, err := save.Load(cfg.SaveDir, pz.Name); err == nil {
		d.Replay = toReplay(rec.PlacementOrder)
		replayCumulative = rec.CumulativeCompute
		log.Printf("[eternity2] resuming %q from a save with %d placements (%s prior compute)",
			pz.Name, len(rec.PlacementOrder), rec.CumulativeCompute)
	}
	d.PriorCumulative = replayCumulative

	deadline := time.Now().Add(365 * 24 * time.Hour) // effectively unbounded
	if cfg.Timeout > 0 {
		deadline = time.Now().Add(cfg.Timeout)
	}

	start := time.Now()
	results := d.Run(deadline)
	elapsed := time.Since(start)

	best := pickBest(results)
	if best == nil {
		return fmt.Errorf("no worker produced a result")
	}

	correct, max := best.Board.Score()
	log.Printf("[eternity2] stopped after %s: %d/%d edges correct, %d placements", elapsed, correct, max, len(best.Order))

	persistFinal(cfg.SaveDir, pz, best, replayCumulative+elapsed)

	if correct == max && best.Board.IsFull() {
		fmt.Println("SOLVED")
		return nil
	}
	fmt.Println("PARTIAL")
	return nil
}

func persistFinal(saveDir string, pz *puzzle.Puzzle, best *driver.Result, cumulative time.Duration) {
	order := make([]save.Entry, len(best.Order))
	for i, e := range best.Order {
		order[i] = save.Entry{Row: e.Row, Col: e.Col, PieceID: e.PieceID, Rotation: e.Rotation}
	}
	rec := save.NewRecord(pz.Name, best.Board, order, best.UnusedPieces(pz), cumulative, time.Now())
	if _, err := save.WriteCurrent(saveDir, pz.Name, rec, true); err != nil {
		log.Printf("[eternity2] final checkpoint failed: %v", err)
	}
	if rec.Score == pz.Rows*(pz.Cols-1)+(pz.Rows-1)*pz.Cols {
		if _, err := save.WriteBest(saveDir, pz.Name, rec, true); err != nil {
			log.Printf("[eternity2] final best-save failed: %v", err)
		}
	}
}

func toReplay(entries []save.Entry) []solver.PlacementEntry {
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

func pickBest(results []driver.Result) *driver.Result {
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
