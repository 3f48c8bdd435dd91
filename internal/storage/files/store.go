// Package files persists downloaded media under the destination
// directory. Writes go to a temp file first and are renamed into place on
// success, so an interrupted download never leaves a truncated file at a
// final path.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

type Store struct {
	root string
}

// NewStore creates the destination root (and parents) if missing.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the destination root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the final path for a file of the given kind.
func (s *Store) Path(kind domain.MediaKind, name string) string {
	return filepath.Join(s.root, string(kind), name)
}

// Exists reports whether the final path is already occupied. Existence is
// the run's only de-duplication mechanism.
func (s *Store) Exists(kind domain.MediaKind, name string) bool {
	_, err := os.Stat(s.Path(kind, name))
	return err == nil
}

// Write streams r to the final path through a temp file in the same
// directory, renaming only after a complete copy. Returns the bytes
// written.
func (s *Store) Write(kind domain.MediaKind, name string, r io.Reader) (int64, error) {
	dir := filepath.Join(s.root, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s directory: %w", kind, err)
	}

	tmp, err := os.CreateTemp(dir, name+".part-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return n, fmt.Errorf("write %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return n, fmt.Errorf("finalize %s: %w", name, err)
	}

	return n, nil
}
