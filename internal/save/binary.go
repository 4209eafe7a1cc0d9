package save

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// binaryMagic identifies a save file written by this package. Version
// is bumped whenever the record layout changes incompatibly.
const (
	binaryMagic   = uint32(0x45324249) // "E2BI"
	binaryVersion = uint16(2)
)

// WriteBinary renders rec in the binary format and atomically writes
// it to path. Layout, all little-endian:
//
//	header:      magic uint32, version uint16, rows uint16, cols uint16,
//	             depth uint32, score int32, cumulativeMillis int64,
//	             savedAtMillis int64, orderCount uint32,
//	             placementsCount uint32, unusedCount uint32
//	configID:    uint16 length, then that many bytes
//	order:       orderCount fixed 10-byte records
//	             (row uint16, col uint16, pieceID uint32, rotation uint8, pad uint8)
//	placements:  placementsCount records of the same 10-byte shape
//	unused:      unusedCount uint32 piece IDs
func WriteBinary(path string, rec *Record) error {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, binaryMagic)
	binary.Write(&b, binary.LittleEndian, binaryVersion)
	binary.Write(&b, binary.LittleEndian, uint16(rec.Rows))
	binary.Write(&b, binary.LittleEndian, uint16(rec.Cols))
	binary.Write(&b, binary.LittleEndian, uint32(rec.Depth))
	binary.Write(&b, binary.LittleEndian, int32(rec.Score))
	binary.Write(&b, binary.LittleEndian, int64(rec.CumulativeCompute/time.Millisecond))
	binary.Write(&b, binary.LittleEndian, rec.SavedAt.UnixMilli())
	binary.Write(&b, binary.LittleEndian, uint32(len(rec.PlacementOrder)))
	binary.Write(&b, binary.LittleEndian, uint32(len(rec.Placements)))
	binary.Write(&b, binary.LittleEndian, uint32(len(rec.UnusedPieces)))

	idBytes := []byte(rec.ConfigID)
	binary.Write(&b, binary.LittleEndian, uint16(len(idBytes)))
	b.Write(idBytes)

	writeEntries(&b, rec.PlacementOrder)
	writeEntries(&b, rec.Placements)
	for _, id := range rec.UnusedPieces {
		binary.Write(&b, binary.LittleEndian, uint32(id))
	}

	return atomicWriteFile(path, b.Bytes())
}

func writeEntries(b *bytes.Buffer, entries []Entry) {
	for _, e := range entries {
		binary.Write(b, binary.LittleEndian, uint16(e.Row))
		binary.Write(b, binary.LittleEndian, uint16(e.Col))
		binary.Write(b, binary.LittleEndian, uint32(e.PieceID))
		binary.Write(b, binary.LittleEndian, uint8(e.Rotation))
		binary.Write(b, binary.LittleEndian, uint8(0))
	}
}

// ReadBinary parses a save file written by WriteBinary.
func ReadBinary(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("save: open %s: %w", path, err)
	}
	defer f.Close()

	var magic uint32
	var version uint16
	var rows, cols uint16
	var depth uint32
	var score int32
	var cumulativeMillis int64
	var savedAtMillis int64
	var orderCount, placementsCount, unusedCount uint32

	fields := []any{
		&magic, &version, &rows, &cols, &depth, &score,
		&cumulativeMillis, &savedAtMillis, &orderCount, &placementsCount, &unusedCount,
	}
	for _, field := range fields {
		if err := binary.Read(f, binary.LittleEndian, field); err != nil {
			return nil, fmt.Errorf("save: read header of %s: %w", path, err)
		}
	}
	if magic != binaryMagic {
		return nil, fmt.Errorf("save: %s is not an eternity2 binary save (bad magic)", path)
	}
	if version != binaryVersion {
		return nil, fmt.Errorf("save: %s has unsupported version %d", path, version)
	}

	var idLen uint16
	if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
		return nil, fmt.Errorf("save: read config id length of %s: %w", path, err)
	}
	idBytes := make([]byte, idLen)
	if _, err := io.ReadFull(f, idBytes); err != nil {
		return nil, fmt.Errorf("save: read config id of %s: %w", path, err)
	}

	rec := &Record{
		ConfigID:          string(idBytes),
		Rows:              int(rows),
		Cols:              int(cols),
		Depth:             int(depth),
		Score:             int(score),
		CumulativeCompute: time.Duration(cumulativeMillis) * time.Millisecond,
		SavedAt:           time.UnixMilli(savedAtMillis).UTC(),
	}

	rec.PlacementOrder, err = readEntries(f, path, "placement", orderCount)
	if err != nil {
		return nil, err
	}
	rec.Placements, err = readEntries(f, path, "canonical placement", placementsCount)
	if err != nil {
		return nil, err
	}

	rec.UnusedPieces = make([]int, 0, unusedCount)
	for i := uint32(0); i < unusedCount; i++ {
		var id uint32
		if err := binary.Read(f, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("save: read unused piece %d of %s: %w", i, path, err)
		}
		rec.UnusedPieces = append(rec.UnusedPieces, int(id))
	}

	return rec, nil
}

func readEntries(f io.Reader, path, label string, count uint32) ([]Entry, error) {
	out := make([]Entry, 0, count)
	var rec10 [10]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(f, rec10[:]); err != nil {
			return nil, fmt.Errorf("save: read %s %d of %s: %w", label, i, path, err)
		}
		out = append(out, Entry{
			Row:      int(binary.LittleEndian.Uint16(rec10[0:2])),
			Col:      int(binary.LittleEndian.Uint16(rec10[2:4])),
			PieceID:  int(binary.LittleEndian.Uint32(rec10[4:8])),
			Rotation: int(rec10[8]),
		})
	}
	return out, nil
}
