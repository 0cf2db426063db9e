// Package musetest provides repository fixtures for engine tests: a
// throwaway initialized repository with an open session, plus helpers
// to edit the working tree and record commits.
package musetest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/musehq/muse/internal/cas"
	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/repo"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/snapshot"
)

// InitRepo creates a repository in a temp directory and opens a session
// against it. Both are cleaned up with the test.
func InitRepo(t *testing.T) *session.Session {
	t.Helper()

	r, err := repo.Init(t.TempDir())
	require.NoError(t, err)

	s, err := session.OpenAt(r)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// WriteWorkFile writes a file under the session's muse-work area.
func WriteWorkFile(t *testing.T, s *session.Session, path, content string) {
	t.Helper()
	dest := filepath.Join(s.WorkDir(), filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
	require.NoError(t, os.WriteFile(dest, []byte(content), 0644))
}

// RemoveWorkFile deletes a file under the session's muse-work area.
func RemoveWorkFile(t *testing.T, s *session.Session, path string) {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(s.WorkDir(), filepath.FromSlash(path))))
}

// ReadWorkFile returns a working-tree file's content.
func ReadWorkFile(t *testing.T, s *session.Session, path string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.WorkDir(), filepath.FromSlash(path)))
	require.NoError(t, err)
	return string(data)
}

// WorkFileExists reports whether a working-tree file exists.
func WorkFileExists(s *session.Session, path string) bool {
	_, err := os.Stat(filepath.Join(s.WorkDir(), filepath.FromSlash(path)))
	return err == nil
}

// Commit snapshots the working tree onto the current branch.
func Commit(t *testing.T, s *session.Session, message string) *commitgraph.Commit {
	t.Helper()
	c, err := s.CommitWorkingTree(message)
	require.NoError(t, err)
	return c
}

// ManifestCommit records a commit from an explicit path->content map,
// storing each blob, without touching any working tree. Useful for
// building side-branch history.
func ManifestCommit(t *testing.T, s *session.Session, branch, parentID string, files map[string]string, message string) *commitgraph.Commit {
	t.Helper()

	m := make(snapshot.Manifest, len(files))
	for path, content := range files {
		hash := cas.SumB3([]byte(content))
		require.NoError(t, s.Objects.Put(hash, []byte(content)))
		m[path] = hash.String()
	}

	c, err := s.CommitManifest(branch, parentID, m, message, "musetest", time.Now())
	require.NoError(t, err)
	return c
}
