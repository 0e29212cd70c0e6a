package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// StdoutPath selects standard output as the document destination.
const StdoutPath = "-"

// WriteDocument writes data to path. An empty path or StdoutPath writes to
// stdout instead. Files are replaced atomically so readers never observe a
// partial document.
func WriteDocument(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == StdoutPath {
		_, err := stdout.Write(data)
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		// Cleanup temp file on rename failure
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
