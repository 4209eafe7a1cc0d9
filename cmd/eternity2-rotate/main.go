// Command eternity2-rotate runs the Configuration Rotator: it scans a
// directory of puzzle-file configurations (e.g. one file per
// corner-permutation variant of the same base puzzle) and rotates a
// bounded worker pool across them, always preferring the
// least-advanced configuration, per spec.md §4.9. Flag handling and
// exit-code discipline are grounded on cmd/chessplay-uci/main.go:
// flag.Parse, then log.Fatal (exit code 1) on any fatal initialization
// error.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hailam/eternity2/internal/config"
	"github.com/hailam/eternity2/internal/puzzle"
	"github.com/hailam/eternity2/internal/puzzlefile"
	"github.com/hailam/eternity2/internal/rotator"
)

func main() {
	threads := flag.Int("threads", runtime.GOMAXPROCS(0), "worker threads per active configuration")
	minutesPerConfig := flag.Float64("minutes-per-configuration", 1.0, "time budget per rotation before moving to the next configuration")
	configDir := flag.String("config-dir", "configs", "directory of puzzle-file configurations to rotate over")
	saveDir := flag.String("save-dir", "saves", "directory for checkpoints")
	flag.Parse()

	cfg := config.Rotate{
		Threads:                 *threads,
		MinutesPerConfiguration: *minutesPerConfig,
		SaveDir:                 *saveDir,
		ConfigDir:               *configDir,
	}

	if err := run(cfg); err != nil {
		log.Fatalf("[eternity2-rotate] %v", err)
	}
}

func run(cfg config.Rotate) error {
	if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
		return err
	}

	puzzles, err := loadConfigurations(cfg.ConfigDir)
	if err != nil {
		return err
	}
	if len(puzzles) == 0 {
		log.Printf("[eternity2-rotate] no configurations found in %s", cfg.ConfigDir)
		return nil
	}

	r := rotator.New(cfg.SaveDir, puzzles, cfg.Threads)
	log.Printf("[eternity2-rotate] rotating %d configurations with %d threads, %.1f min/configuration",
		len(puzzles), cfg.Threads, cfg.MinutesPerConfiguration)
	r.RunLoop(cfg.MinutesPerConfigurationDuration())
	return nil
}

// loadConfigurations parses every *.txt puzzle file in dir into a map
// keyed by its base filename (without extension), which doubles as
// the configuration ID the Rotator and Save/Restore subsystem use.
func loadConfigurations(dir string) (map[string]*puzzle.Puzzle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*puzzle.Puzzle)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		pz, err := puzzlefile.Load(path)
		if err != nil {
			log.Printf("[eternity2-rotate] skipping %s: %v", path, err)
			continue
		}
		id := e.Name()[:len(e.Name())-len(filepath.Ext(e.Name()))]
		if pz.Name == "" {
			pz.Name = id
		}
		out[id] = pz
	}
	return out, nil
}
