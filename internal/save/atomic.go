package save

import (
	"fmt"
	"os"
	"path/filepath"
)

// atomicWriteFile writes data to path by first writing a temp file in
// the same directory, fsyncing it, then renaming it over path. Rename
// within one filesystem is atomic, so a crash between the write and
// the rename leaves the old path (if any) untouched, and a crash after
// the rename leaves the new content fully committed: there is no
// window where a reader can observe a partial save.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".save-*.tmp")
	if err != nil {
		return fmt.Errorf("save: create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save: write temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save: fsync temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save: close temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("save: rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
