package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempFile creates an empty temporary file next to path. Callers write to it
// and hand it to Commit; Discard removes it if anything fails on the way.
func TempFile(path string) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("could not create %s: %w", path, err)
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// Commit moves a finished temporary file onto path.
func Commit(tmp, path string) error {
	if err := os.Chmod(tmp, 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return nil
}

// Discard removes a temporary file. Removing an already committed file is a no-op.
func Discard(tmp string) {
	_ = os.Remove(tmp)
}

// WriteFileAtomic writes data to path via a temporary file and a rename, so a
// failed write never leaves a truncated file at path.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := TempFile(path)
	if err != nil {
		return err
	}
	defer Discard(tmp)

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return Commit(tmp, path)
}
