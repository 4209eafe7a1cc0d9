package save

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// WriteText renders rec in the text format and atomically writes it to
// path, per spec.md §4.8 (normative): a "#"-prefixed header of
// key: value metadata lines (epoch-ms timestamp, human date, puzzle
// name, RxC dimensions, depth, cumulative compute time in ms, and an
// optional ASCII board dump), a PLACEMENT-ORDER section (one
// "row,col pieceId rotation" line per entry, in temporal order), a
// PLACEMENTS section (the same line shape, but the canonical snapshot
// of every occupied cell rather than the order they were placed in),
// and an UNUSED-PIECES section holding a single whitespace-separated
// list of remaining piece ids.
func WriteText(path string, rec *Record) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# timestamp_ms: %d\n", rec.SavedAt.UnixMilli())
	fmt.Fprintf(&b, "# date: %s\n", rec.SavedAt.UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "# puzzle: %s\n", rec.ConfigID)
	fmt.Fprintf(&b, "# dimensions: %dx%d\n", rec.Rows, rec.Cols)
	fmt.Fprintf(&b, "# depth: %d\n", rec.Depth)
	fmt.Fprintf(&b, "# score: %d\n", rec.Score)
	fmt.Fprintf(&b, "# cumulative_ms: %d\n", rec.CumulativeCompute.Milliseconds())
	if rec.BoardDump != "" {
		fmt.Fprintf(&b, "# board:\n")
		for _, line := range strings.Split(rec.BoardDump, "\n") {
			fmt.Fprintf(&b, "# %s\n", line)
		}
	}
	fmt.Fprintf(&b, "PLACEMENT-ORDER\n")
	for _, e := range rec.PlacementOrder {
		fmt.Fprintf(&b, "%d,%d %d %d\n", e.Row, e.Col, e.PieceID, e.Rotation)
	}
	fmt.Fprintf(&b, "PLACEMENTS\n")
	for _, e := range rec.Placements {
		fmt.Fprintf(&b, "%d,%d %d %d\n", e.Row, e.Col, e.PieceID, e.Rotation)
	}
	fmt.Fprintf(&b, "UNUSED-PIECES\n")
	ids := make([]string, len(rec.UnusedPieces))
	for i, id := range rec.UnusedPieces {
		ids[i] = strconv.Itoa(id)
	}
	fmt.Fprintf(&b, "%s\n", strings.Join(ids, " "))
	return atomicWriteFile(path, b.Bytes())
}

// ReadText parses a save file written by WriteText.
func ReadText(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("save: open %s: %w", path, err)
	}
	defer f.Close()

	rec := &Record{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var section string
	var boardLines []string
	inBoard := false

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			if inBoard {
				boardLines = append(boardLines, body)
				continue
			}
			if body == "board:" {
				inBoard = true
				continue
			}
			if err := parseHeaderLine(rec, body); err != nil {
				return nil, fmt.Errorf("save: %s: %w", path, err)
			}
			continue
		}
		inBoard = false
		switch line {
		case "PLACEMENT-ORDER", "PLACEMENTS", "UNUSED-PIECES":
			section = line
			continue
		}
		switch section {
		case "PLACEMENT-ORDER":
			e, err := parsePlacementLine(line)
			if err != nil {
				return nil, fmt.Errorf("save: %s: %w", path, err)
			}
			rec.PlacementOrder = append(rec.PlacementOrder, e)
		case "PLACEMENTS":
			e, err := parsePlacementLine(line)
			if err != nil {
				return nil, fmt.Errorf("save: %s: %w", path, err)
			}
			rec.Placements = append(rec.Placements, e)
		case "UNUSED-PIECES":
			for _, field := range strings.Fields(line) {
				id, err := strconv.Atoi(field)
				if err != nil {
					return nil, fmt.Errorf("save: bad unused piece id %q in %s: %w", field, path, err)
				}
				rec.UnusedPieces = append(rec.UnusedPieces, id)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("save: scan %s: %w", path, err)
	}
	rec.BoardDump = strings.Join(boardLines, "\n")
	return rec, nil
}

func parseHeaderLine(rec *Record, body string) error {
	key, val, ok := strings.Cut(body, ":")
	if !ok {
		return nil // a plain comment, not a directive
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)
	var err error
	switch key {
	case "puzzle":
		rec.ConfigID = val
	case "dimensions":
		rec.Rows, rec.Cols, err = parseDimensions(val)
	case "depth":
		rec.Depth, err = strconv.Atoi(val)
	case "score":
		rec.Score, err = strconv.Atoi(val)
	case "cumulative_ms":
		var ms int64
		ms, err = strconv.ParseInt(val, 10, 64)
		rec.CumulativeCompute = time.Duration(ms) * time.Millisecond
	case "timestamp_ms":
		var ms int64
		ms, err = strconv.ParseInt(val, 10, 64)
		rec.SavedAt = time.UnixMilli(ms).UTC()
	case "date":
		// informational only; timestamp_ms is the authoritative source
		// ReadText reconstructs rec.SavedAt from.
	}
	if err != nil {
		return fmt.Errorf("header %q: %w", key, err)
	}
	return nil
}

func parseDimensions(val string) (rows, cols int, err error) {
	r, c, ok := strings.Cut(strings.ToLower(val), "x")
	if !ok {
		return 0, 0, fmt.Errorf("dimensions %q must be RxC", val)
	}
	rows, err = strconv.Atoi(strings.TrimSpace(r))
	if err != nil {
		return 0, 0, fmt.Errorf("dimensions %q: bad rows: %w", val, err)
	}
	cols, err = strconv.Atoi(strings.TrimSpace(c))
	if err != nil {
		return 0, 0, fmt.Errorf("dimensions %q: bad cols: %w", val, err)
	}
	return rows, cols, nil
}

// parsePlacementLine parses "row,col pieceId rotation".
func parsePlacementLine(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Entry{}, fmt.Errorf("placement line %q: expected \"row,col pieceId rotation\"", line)
	}
	rc := strings.Split(fields[0], ",")
	if len(rc) != 2 {
		return Entry{}, fmt.Errorf("placement line %q: expected row,col in the first field", line)
	}
	row, err := strconv.Atoi(rc[0])
	if err != nil {
		return Entry{}, fmt.Errorf("placement line %q: %w", line, err)
	}
	col, err := strconv.Atoi(rc[1])
	if err != nil {
		return Entry{}, fmt.Errorf("placement line %q: %w", line, err)
	}
	pieceID, err := strconv.Atoi(fields[1])
	if err != nil {
		return Entry{}, fmt.Errorf("placement line %q: %w", line, err)
	}
	rotation, err := strconv.Atoi(fields[2])
	if err != nil {
		return Entry{}, fmt.Errorf("placement line %q: %w", line, err)
	}
	return Entry{Row: row, Col: col, PieceID: pieceID, Rotation: rotation}, nil
}
