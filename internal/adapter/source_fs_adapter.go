// Package adapter contains filesystem and external-tool adapters for the
// rvmk CLI.
package adapter

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	m "rvmk.dev/pkg/rvmk/internal/model"
)

// entrySourceExt is the file extension recognized as an entry-point source.
const entrySourceExt = ".rs"

// SourceFSAdapter abstracts the filesystem operations the domain layer relies
// on. It hides direct `os` access so the workflow logic can be tested without
// touching the disk.
type SourceFSAdapter interface {
	// DiscoverEntryPoints returns the entry-point identifiers found directly
	// in dir (non-recursive), sorted by name. The set is recomputed on every
	// call; there is no caching. An empty directory yields an empty set, a
	// missing directory is an error.
	DiscoverEntryPoints(dir m.Path) ([]m.EntryPoint, error)

	// FileExists reports whether path exists and is a regular file.
	FileExists(path m.Path) bool

	// HashFile returns the SHA-256 fingerprint of the file at path.
	HashFile(path m.Path) (string, error)

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// WriteFileAtomic writes content to a sibling temporary file and renames
	// it into place, so concurrent readers never observe a partial artifact.
	WriteFileAtomic(path m.Path, content []byte, perm os.FileMode) error

	// Rename moves a file into place (used for tool outputs produced under
	// temporary names).
	Rename(oldPath, newPath m.Path) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path m.Path, perm os.FileMode) error

	// CreateTempDir creates a temporary directory.
	CreateTempDir(pattern string) (m.Path, error)

	// RemoveAll removes a path and all its contents. Removing a path that
	// does not exist is not an error.
	RemoveAll(path m.Path) error
}

// LocalSourceFSAdapter is the concrete implementation backed by the os
// package.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter ready to be wired
// into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// DiscoverEntryPoints lists the entry-point stems directly under dir.
func (a *LocalSourceFSAdapter) DiscoverEntryPoints(dir m.Path) ([]m.EntryPoint, error) {
	dirEntries, err := os.ReadDir(string(dir))
	if err != nil {
		return nil, fmt.Errorf("entry-point directory %s: %w", dir, err)
	}

	var entries []m.EntryPoint

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}

		name := de.Name()
		if filepath.Ext(name) != entrySourceExt {
			continue
		}

		entries = append(entries, m.EntryPoint(strings.TrimSuffix(name, entrySourceExt)))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i] < entries[j] })

	return entries, nil
}

// FileExists reports whether path is an existing regular file.
func (a *LocalSourceFSAdapter) FileExists(path m.Path) bool {
	info, err := os.Stat(string(path))

	return err == nil && info.Mode().IsRegular()
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// WriteFileAtomic writes content next to path and renames it into place.
func (a *LocalSourceFSAdapter) WriteFileAtomic(path m.Path, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(string(path))

	tmp, err := os.CreateTemp(dir, filepath.Base(string(path))+".tmp*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, string(path))
}

// Rename moves a file into place.
func (a *LocalSourceFSAdapter) Rename(oldPath, newPath m.Path) error {
	return os.Rename(string(oldPath), string(newPath))
}

// MkdirAll creates a directory and any missing parents.
func (a *LocalSourceFSAdapter) MkdirAll(path m.Path, perm os.FileMode) error {
	return os.MkdirAll(string(path), perm)
}

// CreateTempDir creates a temporary directory.
func (a *LocalSourceFSAdapter) CreateTempDir(pattern string) (m.Path, error) {
	tmpDir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", err
	}

	return m.Path(tmpDir), nil
}

// RemoveAll removes a path and all its contents.
func (a *LocalSourceFSAdapter) RemoveAll(path m.Path) error {
	return os.RemoveAll(string(path))
}
