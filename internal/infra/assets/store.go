// Package assets reads the mirror's static files from disk. Files are never
// written; they are resolved under a root directory at request time so an
// operator can swap them without restarting the process.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNotRegular is returned when an asset path names a directory or other
// non-regular file.
var ErrNotRegular = errors.New("not a regular file")

// Asset names one file served by the mirror.
type Asset struct {
	Name string // e.g. "zig-index"; used in logs and metrics
	Path string // relative to the store root, or absolute
}

// Store resolves assets under a root directory.
type Store struct {
	root string
}

// NewStore creates a Store rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the directory assets are resolved against.
func (s *Store) Root() string {
	return s.root
}

// Resolve returns the filesystem path of a.
func (s *Store) Resolve(a Asset) string {
	if filepath.IsAbs(a.Path) {
		return a.Path
	}
	return filepath.Join(s.root, a.Path)
}

// ReadAll reads the whole asset into memory.
func (s *Store) ReadAll(ctx context.Context, a Asset) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Resolve(a))
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", a.Name, err)
	}
	return data, nil
}

// Open opens the asset for streaming and reports its size. The caller must
// close the returned reader.
func (s *Store) Open(a Asset) (io.ReadCloser, int64, error) {
	f, err := os.Open(s.Resolve(a))
	if err != nil {
		return nil, 0, fmt.Errorf("open asset %s: %w", a.Name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat asset %s: %w", a.Name, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, 0, fmt.Errorf("open asset %s: %w", a.Name, ErrNotRegular)
	}

	return f, info.Size(), nil
}

// Check stats every asset and returns the joined errors for those that are
// missing or not regular files. It never opens the files.
func (s *Store) Check(assets ...Asset) error {
	var errs []error
	for _, a := range assets {
		info, err := os.Stat(s.Resolve(a))
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("asset %s: %w", a.Name, err))
		case !info.Mode().IsRegular():
			errs = append(errs, fmt.Errorf("asset %s: %w", a.Name, ErrNotRegular))
		}
	}
	return errors.Join(errs...)
}
