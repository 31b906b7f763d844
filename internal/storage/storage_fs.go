package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FSStorage reads and rewrites pages below Root and creates generated files.
type FSStorage struct {
	Root string
}

func NewFSStorage(root string) *FSStorage {
	return &FSStorage{Root: root}
}

// PagePath maps a "/" separated page id to its path on disk.
func (s *FSStorage) PagePath(id string) string {
	return filepath.Join(s.Root, filepath.FromSlash(id))
}

func (s *FSStorage) ReadPage(ctx context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(s.PagePath(id))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return data, nil
}

// RewritePage overwrites an existing page in place. Symlinked pages are
// written through to their target and the file mode is preserved.
func (s *FSStorage) RewritePage(ctx context.Context, id string, content []byte) error {
	fullPath := s.PagePath(id)
	info, err := os.Stat(fullPath)
	if err != nil {
		return fmt.Errorf("stat page: %w", err)
	}
	if err := os.WriteFile(fullPath, content, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	return nil
}

// Create opens a generated file for writing, creating parent directories.
// The caller must close the returned file.
func (s *FSStorage) Create(path string) (*os.File, error) {
	fullPath := s.resolve(path)
	if err := prepareDest(fullPath); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return f, nil
}

// WriteFile replaces a generated file with content.
func (s *FSStorage) WriteFile(ctx context.Context, path string, content []byte) error {
	return s.writeFileAbsolute(s.resolve(path), content)
}

func (s *FSStorage) resolve(path string) string {
	if filepath.IsAbs(path) || s.Root == "" {
		return path
	}
	return filepath.Join(s.Root, filepath.FromSlash(path))
}

func (s *FSStorage) writeFileAbsolute(fullPath string, content []byte) error {
	if err := prepareDest(fullPath); err != nil {
		return err
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// prepareDest creates the parent directory and removes a symlink left at
// fullPath so the write does not follow it. Regular files are kept so an
// open reader is not disturbed until the write truncates them.
func prepareDest(fullPath string) error {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	info, err := os.Lstat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat existing: %w", err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(fullPath); err != nil {
			return fmt.Errorf("remove existing: %w", err)
		}
	}
	return nil
}
