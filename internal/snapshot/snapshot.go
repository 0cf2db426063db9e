// Package snapshot implements content-addressed working-tree snapshots.
//
// A snapshot is an immutable manifest mapping repository-relative POSIX
// paths to content hashes. The snapshot id is the BLAKE3 hash of the
// manifest's canonical encoding, so two structurally equal manifests
// always share an id regardless of how they were built.
package snapshot

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/musehq/muse/internal/cas"
)

// ErrNotFound reports a snapshot id with no stored manifest.
var ErrNotFound = errors.New("snapshot not found")

// ErrEmptyWorkingTree reports an attempt to snapshot a working tree that
// contains no files. Callers surface this to the user; it is not a crash.
var ErrEmptyWorkingTree = errors.New("working tree has no files to snapshot")

// Manifest maps repository-relative POSIX paths to content-hash strings.
type Manifest map[string]string

// Clone returns an independent copy of the manifest.
func (m Manifest) Clone() Manifest {
	out := make(Manifest, len(m))
	for path, hash := range m {
		out[path] = hash
	}
	return out
}

// Paths returns the manifest's paths in sorted order.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for path := range m {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Encode produces the canonical serialization of a manifest: one
// "<hash> <path>\n" line per entry, sorted by path. The empty manifest
// encodes to zero bytes.
func Encode(m Manifest) []byte {
	var buf bytes.Buffer
	for _, path := range m.Paths() {
		buf.WriteString(m[path])
		buf.WriteByte(' ')
		buf.WriteString(path)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Decode parses canonical manifest bytes back into a Manifest.
func Decode(data []byte) (Manifest, error) {
	m := make(Manifest)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		hash, path, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("malformed manifest line %q", line)
		}
		m[path] = hash
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return m, nil
}

// ComputeID returns the deterministic snapshot id for a manifest.
func ComputeID(m Manifest) string {
	return cas.SumB3(Encode(m)).String()
}

// Store is the persistence boundary for snapshot manifests.
type Store interface {
	PutSnapshot(id string, data []byte) error
	GetSnapshot(id string) ([]byte, error)
}

// Upsert persists a manifest under the given id. Idempotent: writing an
// id that already exists is a no-op.
func Upsert(s Store, m Manifest, id string) error {
	if err := s.PutSnapshot(id, Encode(m)); err != nil {
		return fmt.Errorf("store snapshot %s: %w", shortID(id), err)
	}
	return nil
}

// Get loads the manifest stored under id.
func Get(s Store, id string) (Manifest, error) {
	data, err := s.GetSnapshot(id)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", shortID(id), err)
	}
	if data == nil {
		return nil, fmt.Errorf("snapshot %s: %w", shortID(id), ErrNotFound)
	}
	return Decode(data)
}

// BuildManifest walks a working directory, stores each file's content in
// the object store, and returns the resulting manifest. Dotfiles at the
// top level (.muse in particular) are skipped.
func BuildManifest(workDir string, objects cas.CAS) (Manifest, error) {
	m := make(Manifest)

	err := filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
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

		hash := cas.SumB3(content)
		if err := objects.Put(hash, content); err != nil {
			return fmt.Errorf("store blob for %s: %w", relPath, err)
		}
		m[relPath] = hash.String()
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrEmptyWorkingTree
		}
		return nil, fmt.Errorf("walk working tree: %w", err)
	}

	if len(m) == 0 {
		return nil, ErrEmptyWorkingTree
	}
	return m, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
