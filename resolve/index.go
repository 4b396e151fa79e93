// ABOUTME: Search index mapping file basenames to the directories that contain them
// ABOUTME: Built once per run by walking the search root, read-only afterwards

// Package resolve locates replacements for playlist entries whose files have moved.
// A search root is indexed by basename, and missing entries are matched against it
// using a configurable collision ranking strategy.
package resolve

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Lookup returns the candidate directories holding a file with the given basename
type Lookup interface {
	Lookup(basename string) []string
}

// Index maps a case-sensitive basename to its containing directories in walk order
type Index struct {
	dirs    map[string][]string
	files   int
	skipped []string
}

// BuildIndex walks root and records the directory of every file found.
// Subdirectories that cannot be read are skipped and reported by Skipped;
// failing to read root itself is an error.
func BuildIndex(root string) (*Index, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open search path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("search path %s is not a directory", root)
	}

	idx := &Index{dirs: make(map[string][]string)}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}

			idx.skipped = append(idx.skipped, path)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			// Symlinked directories are not descended into and are not files
			if fi, err := os.Stat(path); err == nil && fi.IsDir() {
				return nil
			}
		}

		idx.add(d.Name(), filepath.Dir(path))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan search path %s: %w", root, err)
	}

	return idx, nil
}

func (idx *Index) add(basename, dir string) {
	idx.dirs[basename] = append(idx.dirs[basename], dir)
	idx.files++
}

// Lookup returns the directories containing basename, or nil when none were found
func (idx *Index) Lookup(basename string) []string {
	if idx == nil {
		return nil
	}

	return idx.dirs[basename]
}

// Len returns the number of distinct basenames
func (idx *Index) Len() int {
	return len(idx.dirs)
}

// Files returns the number of files indexed
func (idx *Index) Files() int {
	return idx.files
}

// Skipped returns paths that could not be read during the walk
func (idx *Index) Skipped() []string {
	return idx.skipped
}
