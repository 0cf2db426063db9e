// Package workspace materializes snapshot manifests into a working-tree
// directory.
//
// Materialization is content-aware: files whose on-disk hash already
// matches the target manifest are left alone, files that differ or are
// missing are rewritten from the object store, and files absent from the
// target manifest are deleted. Empty directories left behind by
// deletions are pruned.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/musehq/muse/internal/cas"
	"github.com/musehq/muse/internal/snapshot"
)

// MissingObjectError reports a manifest entry whose blob is absent from
// the object store. This indicates store corruption and is fatal; it is
// never retried.
type MissingObjectError struct {
	Path string
	Hash string
}

func (e *MissingObjectError) Error() string {
	return fmt.Sprintf("object %s for %s missing from store", e.Hash[:8], e.Path)
}

// ApplyResult lists what a materialization changed.
type ApplyResult struct {
	Restored []string // paths written or rewritten
	Deleted  []string // paths removed
}

// Materialize rewrites workDir to match the target manifest, reading
// blob contents from the object store.
func Materialize(workDir string, target snapshot.Manifest, objects cas.CAS) (*ApplyResult, error) {
	current, err := scan(workDir)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{}

	for _, path := range target.Paths() {
		hashHex := target[path]
		if current[path] == hashHex {
			continue
		}
		hash, err := cas.ParseHash(hashHex)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %s: %w", path, err)
		}
		content, err := objects.Get(hash)
		if err != nil {
			return nil, &MissingObjectError{Path: path, Hash: hashHex}
		}
		dest := filepath.Join(workDir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return nil, fmt.Errorf("create dir for %s: %w", path, err)
		}
		if err := os.WriteFile(dest, content, 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		result.Restored = append(result.Restored, path)
	}

	var stale []string
	for path := range current {
		if _, keep := target[path]; !keep {
			stale = append(stale, path)
		}
	}
	sort.Strings(stale)
	for _, path := range stale {
		if err := os.Remove(filepath.Join(workDir, filepath.FromSlash(path))); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("delete %s: %w", path, err)
		}
		result.Deleted = append(result.Deleted, path)
	}

	pruneEmptyDirs(workDir)
	return result, nil
}

// WriteFile materializes a single manifest entry into workDir.
func WriteFile(workDir, path, hashHex string, objects cas.CAS) error {
	hash, err := cas.ParseHash(hashHex)
	if err != nil {
		return fmt.Errorf("manifest entry %s: %w", path, err)
	}
	content, err := objects.Get(hash)
	if err != nil {
		return &MissingObjectError{Path: path, Hash: hashHex}
	}
	dest := filepath.Join(workDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(dest, content, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RemoveFile deletes a single working-tree path, tolerating absence.
func RemoveFile(workDir, path string) error {
	err := os.Remove(filepath.Join(workDir, filepath.FromSlash(path)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// scan hashes the current working tree without writing to the object
// store. Top-level dotfiles are skipped, matching snapshot.BuildManifest.
func scan(workDir string) (snapshot.Manifest, error) {
	m := make(snapshot.Manifest)
	err := filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(workDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if strings.HasPrefix(relPath, ".") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", relPath, err)
		}
		m[relPath] = cas.SumB3(content).String()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan working tree: %w", err)
	}
	return m, nil
}

// pruneEmptyDirs removes directories emptied by deletions. Best effort:
// Remove fails on non-empty directories and that is fine.
func pruneEmptyDirs(workDir string) {
	var dirs []string
	filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != workDir {
			dirs = append(dirs, path)
		}
		return nil
	})
	// Deepest first so parents empty out as children go.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		os.Remove(dir)
	}
}
