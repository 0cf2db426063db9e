package commitgraph_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/store"
)

func openStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "muse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeCommit(repoID, parentID, snapshotID, message string) *commitgraph.Commit {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	return &commitgraph.Commit{
		ID:          commitgraph.ComputeID(parentID, snapshotID, message, at),
		RepoID:      repoID,
		Branch:      "main",
		ParentID:    parentID,
		SnapshotID:  snapshotID,
		Message:     message,
		Author:      "test",
		CommittedAt: at,
	}
}

func TestComputeIDDeterministic(t *testing.T) {
	at := time.Now()
	a := commitgraph.ComputeID("p1", "s1", "add bassline", at)
	b := commitgraph.ComputeID("p1", "s1", "add bassline", at)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, commitgraph.ComputeID("", "s1", "add bassline", at))
	assert.NotEqual(t, a, commitgraph.ComputeID("p1", "s2", "add bassline", at))
	assert.NotEqual(t, a, commitgraph.ComputeID("p1", "s1", "other", at))
}

func TestInsertIdempotentAndImmutable(t *testing.T) {
	db := openStore(t)
	c := makeCommit("r1", "", "snap1", "first take")

	require.NoError(t, commitgraph.Insert(db, c))
	// Identical re-insert succeeds silently.
	require.NoError(t, commitgraph.Insert(db, c))

	// Same id, different fields: immutability violation.
	mutated := *c
	mutated.Message = "rewritten history"
	err := commitgraph.Insert(db, &mutated)
	require.ErrorIs(t, err, commitgraph.ErrImmutableCommit)
}

func TestGetNotFound(t *testing.T) {
	db := openStore(t)
	_, err := commitgraph.Get(db, "doesnotexist")
	require.ErrorIs(t, err, commitgraph.ErrNotFound)
}

func TestResolvePrefix(t *testing.T) {
	db := openStore(t)
	a := makeCommit("r1", "", "snap-a", "take one")
	b := makeCommit("r1", a.ID, "snap-b", "take two")
	require.NoError(t, commitgraph.Insert(db, a))
	require.NoError(t, commitgraph.Insert(db, b))

	got, err := commitgraph.ResolvePrefix(db, "r1", a.ID[:12])
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = commitgraph.ResolvePrefix(db, "r1", "")
	require.ErrorIs(t, err, commitgraph.ErrAmbiguousPrefix)

	_, err = commitgraph.ResolvePrefix(db, "r1", "ffffffffffff")
	require.ErrorIs(t, err, commitgraph.ErrNotFound)

	// Commits from another repository are invisible to prefix search.
	_, err = commitgraph.ResolvePrefix(db, "r2", a.ID[:12])
	require.ErrorIs(t, err, commitgraph.ErrNotFound)
}

func TestWalkParents(t *testing.T) {
	db := openStore(t)
	a := makeCommit("r1", "", "snap-a", "a")
	b := makeCommit("r1", a.ID, "snap-b", "b")
	c := makeCommit("r1", b.ID, "snap-c", "c")
	for _, commit := range []*commitgraph.Commit{a, b, c} {
		require.NoError(t, commitgraph.Insert(db, commit))
	}

	got, err := commitgraph.WalkParents(db, c, 0)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	got, err = commitgraph.WalkParents(db, c, 2)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	// Exhaustion is nil, not an error.
	got, err = commitgraph.WalkParents(db, c, 10)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLogAndMergeBase(t *testing.T) {
	db := openStore(t)
	a := makeCommit("r1", "", "snap-a", "a")
	b := makeCommit("r1", a.ID, "snap-b", "b")
	side := makeCommit("r1", a.ID, "snap-side", "side branch")
	for _, commit := range []*commitgraph.Commit{a, b, side} {
		require.NoError(t, commitgraph.Insert(db, commit))
	}

	log, err := commitgraph.Log(db, b.ID, 0)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, b.ID, log[0].ID)
	assert.Equal(t, a.ID, log[1].ID)

	base, err := commitgraph.MergeBase(db, b.ID, side.ID)
	require.NoError(t, err)
	require.NotNil(t, base)
	assert.Equal(t, a.ID, base.ID)
}
