// File layout, grounded on spec.md §4.8 (normative): one subdirectory
// per puzzle family under the save root, an epoch-ms-stamped "current"
// file per configuration (only the newest is kept), and a depth-stamped
// "best" file per configuration (a bounded top-K history by depth).
package save

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// bestHistoryLimit bounds how many "best" snapshots are retained per
// configuration, per spec.md §4.8's "retained as a bounded history
// (e.g., top-K by depth)".
const bestHistoryLimit = 5

// Family returns the puzzle-family prefix of a configuration id: the
// portion before its first underscore (e.g. "eternity2" from
// "eternity2_corner3"), or the whole id if it has none. spec.md §4.8
// names "saves/eternity2/" as the example subdirectory this prefix
// picks out.
func Family(configID string) string {
	if i := strings.IndexByte(configID, '_'); i > 0 {
		return configID[:i]
	}
	return configID
}

// FamilyDir returns the per-family subdirectory configID's saves live
// under, within root.
func FamilyDir(root, configID string) string {
	return filepath.Join(root, Family(configID))
}

func currentPrefix(configID string) string { return configID + "_current_" }
func bestPrefix(configID string) string    { return configID + "_best_" }

// legacyPath is the single-file-per-configuration name used before the
// family/current/best split existed. FindCurrentSave falls back to it
// at the save root so saves written by an older build are still found,
// per spec.md §4.8's "legacy compatibility" clause.
func legacyPath(root, configID string) string {
	return filepath.Join(root, configID+"_current.txt")
}

// WriteCurrent renders rec as configID's newest "current" checkpoint,
// named "<configID>_current_<epoch-ms>.<ext>" under its family
// directory, and unlinks every other current file for this
// configuration in that directory, per spec.md §4.8's "only one
// current is kept per puzzle configuration" rule. binary selects the
// compact format over the text one.
func WriteCurrent(root, configID string, rec *Record, binary bool) (string, error) {
	dir := FamilyDir(root, configID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("save: create family dir %s: %w", dir, err)
	}
	ext := "txt"
	if binary {
		ext = "bin"
	}
	name := fmt.Sprintf("%s_current_%d.%s", configID, rec.SavedAt.UnixMilli(), ext)
	path := filepath.Join(dir, name)
	if err := writeRecord(path, rec, binary); err != nil {
		return "", err
	}
	pruneCurrent(dir, configID, name)
	return path, nil
}

// WriteBest renders rec as one of configID's retained "best" snapshots,
// named "<configID>_best_<depth>.<ext>", then prunes the retained set
// down to bestHistoryLimit entries by depth.
func WriteBest(root, configID string, rec *Record, binary bool) (string, error) {
	dir := FamilyDir(root, configID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("save: create family dir %s: %w", dir, err)
	}
	ext := "txt"
	if binary {
		ext = "bin"
	}
	name := fmt.Sprintf("%s_best_%d.%s", configID, rec.Depth, ext)
	path := filepath.Join(dir, name)
	if err := writeRecord(path, rec, binary); err != nil {
		return "", err
	}
	pruneBestHistory(dir, configID)
	return path, nil
}

func writeRecord(path string, rec *Record, binary bool) error {
	if binary {
		return WriteBinary(path, rec)
	}
	return WriteText(path, rec)
}

// pruneCurrent removes every current file for configID in dir other
// than keepName. A failed removal is not fatal: the older snapshot
// lingers until a later write removes it, and while it does,
// FindCurrentSave's smallest-cumulative-time rule selects it over the
// newer one.
func pruneCurrent(dir, configID, keepName string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	prefix := currentPrefix(configID)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == keepName || !strings.HasPrefix(name, prefix) {
			continue
		}
		os.Remove(filepath.Join(dir, name))
	}
}

func pruneBestHistory(dir, configID string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	prefix := bestPrefix(configID)
	type found struct {
		name  string
		depth int
	}
	var all []found
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		depth, ok := parseBestDepth(name, prefix)
		if !ok {
			continue
		}
		all = append(all, found{name, depth})
	}
	if len(all) <= bestHistoryLimit {
		return
	}
	sort.Slice(all, func(i, j int) bool { return all[i].depth > all[j].depth })
	for _, f := range all[bestHistoryLimit:] {
		os.Remove(filepath.Join(dir, f.name))
	}
}

func parseBestDepth(name, prefix string) (int, bool) {
	rest := strings.TrimPrefix(name, prefix)
	rest = strings.TrimSuffix(rest, filepath.Ext(rest))
	depth, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return depth, true
}

// FindCurrentSave locates configID's current save: among every file
// matching "<configID>_current_*" in its family directory, the one
// whose cumulative-compute-time header is smallest, tie-broken by
// earliest timestamp, per spec.md §4.8's selection rule — this (not
// wall-clock recency) is what drives the rotator's least-advanced-first
// policy. Falls back to the pre-split legacy filename at the save
// root if no family-directory save exists.
func FindCurrentSave(root, configID string) (path string, format string, ok bool) {
	dir := FamilyDir(root, configID)
	if entries, err := os.ReadDir(dir); err == nil {
		prefix := currentPrefix(configID)
		var bestRec *Record
		var bestPath, bestFormat string
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasPrefix(name, prefix) {
				continue
			}
			full := filepath.Join(dir, name)
			var rec *Record
			var rerr error
			var thisFormat string
			switch {
			case strings.HasSuffix(name, ".bin"):
				thisFormat = "binary"
				rec, rerr = ReadBinary(full)
			case strings.HasSuffix(name, ".txt"):
				thisFormat = "text"
				rec, rerr = ReadText(full)
			default:
				continue
			}
			if rerr != nil {
				// save: a corrupt or partial save is treated as absent,
				// per spec.md §7's "save format errors on read" policy.
				continue
			}
			if bestRec == nil || rec.CumulativeCompute < bestRec.CumulativeCompute ||
				(rec.CumulativeCompute == bestRec.CumulativeCompute && rec.SavedAt.Before(bestRec.SavedAt)) {
				bestRec, bestPath, bestFormat = rec, full, thisFormat
			}
		}
		if bestRec != nil {
			return bestPath, bestFormat, true
		}
	}
	if p := legacyPath(root, configID); fileExists(p) {
		return p, "text", true
	}
	return "", "", false
}

// BestSaveInfo names one retained best-snapshot file and the depth
// encoded in its name.
type BestSaveInfo struct {
	Path  string
	Depth int
}

// FindAllBestSaves enumerates configID's retained "best" snapshot
// files, sorted by depth descending, per spec.md §4.8.
func FindAllBestSaves(root, configID string) ([]BestSaveInfo, error) {
	dir := FamilyDir(root, configID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("save: read dir %s: %w", dir, err)
	}
	prefix := bestPrefix(configID)
	var out []BestSaveInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		depth, ok := parseBestDepth(name, prefix)
		if !ok {
			continue
		}
		out = append(out, BestSaveInfo{Path: filepath.Join(dir, name), Depth: depth})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Depth > out[j].Depth })
	return out, nil
}

// FindBestSave locates configID's most-advanced retained "best" save
// (the one with the greatest depth).
func FindBestSave(root, configID string) (path string, format string, ok bool) {
	saves, err := FindAllBestSaves(root, configID)
	if err != nil || len(saves) == 0 {
		return "", "", false
	}
	path = saves[0].Path
	format = "text"
	if strings.HasSuffix(path, ".bin") {
		format = "binary"
	}
	return path, format, true
}

// Load reads whichever save FindCurrentSave locates for configID.
func Load(root, configID string) (*Record, error) {
	path, format, ok := FindCurrentSave(root, configID)
	if !ok {
		return nil, fmt.Errorf("save: no save found for config %q in %s", configID, root)
	}
	if format == "binary" {
		return ReadBinary(path)
	}
	return ReadText(path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
