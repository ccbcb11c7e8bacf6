// Package store reads and writes entity documents on disk.
//
// DirStore keeps one JSON document per entity directory; ListStore keeps a flat
// collection in a single JSON document. All writes go to a temp file first and are
// renamed into place, so readers never see a half-written document.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrExists is returned when a target directory is already present.
var ErrExists = errors.New("already exists")

// DirStore persists entities as <root>/<dir>/<fileName>.
type DirStore struct {
	root     string
	fileName string
}

// NewDirStore creates a store rooted at root.
func NewDirStore(root, fileName string) *DirStore {
	return &DirStore{root: root, fileName: fileName}
}

// Root returns the directory holding every entity directory.
func (s *DirStore) Root() string {
	return s.root
}

// Path returns the directory for an entity.
func (s *DirStore) Path(dir string) string {
	return filepath.Join(s.root, dir)
}

// Scan calls fn for every entity directory under root. Read failures for a single
// directory are passed to fn as err and do not stop the scan. A missing root is
// treated as empty.
func (s *DirStore) Scan(fn func(dir string, data []byte, err error)) error {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, entry.Name(), s.fileName))
		fn(entry.Name(), data, err)
	}
	return nil
}

// Write marshals v into the entity's document. The directory must exist.
func (s *DirStore) Write(dir string, v any) error {
	return writeJSON(filepath.Join(s.root, dir, s.fileName), v)
}

// Create makes a new, empty entity directory. It fails with ErrExists if the
// directory is already there.
func (s *DirStore) Create(dir string) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.root, err)
	}
	path := s.Path(dir)
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("creating %s: %w", path, ErrExists)
		}
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return nil
}

// Exists reports whether the entity directory is present.
func (s *DirStore) Exists(dir string) bool {
	_, err := os.Stat(s.Path(dir))
	return err == nil
}

// ErrBadName is returned for a directory name that would leave root.
var ErrBadName = errors.New("invalid directory name")

// Remove deletes the entity directory and everything in it.
func (s *DirStore) Remove(dir string) error {
	if dir == "" || dir == "." || dir == ".." || strings.ContainsAny(dir, `/\`) {
		return fmt.Errorf("removing %q: %w", dir, ErrBadName)
	}
	if err := os.RemoveAll(s.Path(dir)); err != nil {
		return fmt.Errorf("removing %s: %w", s.Path(dir), err)
	}
	return nil
}

// Move renames an entity directory. The target must not exist.
func (s *DirStore) Move(from, to string) error {
	if s.Exists(to) {
		return fmt.Errorf("moving to %s: %w", s.Path(to), ErrExists)
	}
	if err := os.Rename(s.Path(from), s.Path(to)); err != nil {
		return fmt.Errorf("moving %s: %w", s.Path(from), err)
	}
	return nil
}

// Copy copies the whole tree of from into a new directory to. On failure the
// partial copy is removed.
func (s *DirStore) Copy(from, to string) error {
	if s.Exists(to) {
		return fmt.Errorf("copying to %s: %w", s.Path(to), ErrExists)
	}
	if err := copyTree(s.Path(from), s.Path(to)); err != nil {
		os.RemoveAll(s.Path(to))
		return fmt.Errorf("copying %s: %w", s.Path(from), err)
	}
	return nil
}

// ListStore persists a flat collection in one JSON file.
type ListStore struct {
	path string
}

// NewListStore creates a store for the file at path.
func NewListStore(path string) *ListStore {
	return &ListStore{path: path}
}

// Path returns the backing file.
func (s *ListStore) Path() string {
	return s.path
}

// Load decodes the file into v. found is false when the file does not exist.
func (s *ListStore) Load(v any) (found bool, err error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return true, nil
}

// Save replaces the file with v.
func (s *ListStore) Save(v any) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(s.path), err)
	}
	return writeJSON(s.path, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target)
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
