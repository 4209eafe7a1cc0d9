// Package config collects the handful of run-time knobs the CLI
// entry points accept, grounded on the teacher's flag-based options in
// cmd/chessplay-uci/main.go (a CPU profile path flag, defaults chosen
// in code rather than from environment variables). spec.md §6 is
// explicit that no environment variables are required for
// correctness, so this package only ever reads flag.FlagSet values and
// hard-coded defaults.
package config

import "time"

// Solve holds the knobs a single-puzzle solve run needs.
type Solve struct {
	// PuzzleFile is the path to the puzzle-file text to load.
	PuzzleFile string
	// Threads is the worker count for the work-stealing driver.
	Threads int
	// Timeout, if non-zero, bounds the whole solve attempt.
	Timeout time.Duration
	// SaveDir is where periodic checkpoints are written.
	SaveDir string
	// AutoSaveInterval is how often the kernel checkpoints while solving.
	AutoSaveInterval time.Duration
	// MetricsDir, if non-empty, is where the Badger-backed progress-event
	// history is stored; empty disables it.
	MetricsDir string
}

// DefaultAutoSaveInterval matches spec.md §4.5's suggested default
// window (60-600s) at its lower bound, favoring more frequent
// checkpoints over losing more work to an unplanned stop.
const DefaultAutoSaveInterval = 60 * time.Second

// Rotate holds the knobs the Configuration Rotator CLI needs, matching
// spec.md §6's illustrative surface: thread-count and
// minutes-per-configuration.
type Rotate struct {
	Threads                 int
	MinutesPerConfiguration float64
	SaveDir                 string
	ConfigDir               string
}

// MinutesPerConfigurationDuration converts the float64-minutes flag
// into a time.Duration for the rotator.
func (r Rotate) MinutesPerConfigurationDuration() time.Duration {
	return time.Duration(r.MinutesPerConfiguration * float64(time.Minute))
}
