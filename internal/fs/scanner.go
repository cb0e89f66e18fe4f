// Package fs finds macro-capable documents on disk and writes output files.
package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klytics/vbadoc/internal/vba"
)

// FileInfo describes a document found by Scan or Glob.
type FileInfo struct {
	Path       string     `json:"path"`
	Name       string     `json:"name"`
	Format     vba.Format `json:"format"`
	Size       int64      `json:"size"`
	ModifiedAt time.Time  `json:"modifiedAt"`
	SHA256     string     `json:"sha256,omitempty"`
}

// ScanOptions configures Scan.
type ScanOptions struct {
	Recursive bool
	WithHash  bool
}

// Scan walks root and returns the .xls and .xlsm documents it contains,
// sorted by path. Office lock files (~$book.xlsm) are skipped.
func Scan(root string, opts ScanOptions) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not resolve path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("could not access %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible
		}
		if d.IsDir() {
			if !opts.Recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		fi, ok := describe(path, opts.WithHash)
		if ok {
			files = append(files, fi)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Glob expands pattern and keeps the macro-capable documents among the matches.
func Glob(pattern string, withHash bool) ([]FileInfo, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	var files []FileInfo
	for _, m := range matches {
		if fi, ok := describe(m, withHash); ok {
			files = append(files, fi)
		}
	}
	return files, nil
}

// IsLockFile reports whether name is an Office owner/lock file.
func IsLockFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~")
}

func describe(path string, withHash bool) (FileInfo, bool) {
	format, ok := vba.FormatOf(path)
	if !ok || IsLockFile(path) {
		return FileInfo{}, false
	}
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return FileInfo{}, false
	}
	fi := FileInfo{
		Path:       path,
		Name:       filepath.Base(path),
		Format:     format,
		Size:       st.Size(),
		ModifiedAt: st.ModTime(),
	}
	if withHash {
		if h, err := hashFile(path); err == nil {
			fi.SHA256 = h
		}
	}
	return fi, true
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
