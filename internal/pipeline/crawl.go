package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FindFiles lists the files under root whose extension matches one of
// extensions (case-insensitive, without the dot). An empty extension list
// matches every file. With recursive set, subdirectories are expanded
// depth-first in listing order; directories themselves are never returned.
//
// Symlinks to files are followed; symlinks to directories are not descended
// into, which keeps cyclic trees finite.
func FindFiles(root string, extensions []string, recursive bool) ([]string, error) {
	var results []string
	if err := findFiles(root, extensions, recursive, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func findFiles(dir string, extensions []string, recursive bool, results *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if recursive {
				if err := findFiles(path, extensions, recursive, results); err != nil {
					return err
				}
			}
			continue
		}

		if !isRegularFile(path, entry) {
			continue
		}
		if !hasExtension(entry.Name(), extensions) {
			continue
		}
		*results = append(*results, path)
	}
	return nil
}

func isRegularFile(path string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func hasExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	return slices.ContainsFunc(extensions, func(e string) bool {
		return strings.EqualFold(strings.TrimPrefix(e, "."), ext)
	})
}
