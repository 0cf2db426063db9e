// Package commitgraph implements the persisted commit graph: immutable
// commit records addressed by deterministic ids, linked into per-branch
// parent chains.
//
// This package provides:
// - Commit records with a canonical encoding and BLAKE3-derived ids
// - Idempotent insertion with an immutability check
// - Exact and prefix id lookup
// - Parent-chain traversal for history walks and revision resolution
package commitgraph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/musehq/muse/internal/cas"
)

// ErrNotFound reports a commit id (or prefix) matching no commit.
var ErrNotFound = errors.New("commit not found")

// ErrAmbiguousPrefix reports a commit-id prefix matching more than one commit.
var ErrAmbiguousPrefix = errors.New("ambiguous commit prefix")

// ErrImmutableCommit reports an insert whose id already exists with
// different field values.
var ErrImmutableCommit = errors.New("commit id already exists with different contents")

// Commit is an immutable record linking a snapshot to its history position.
type Commit struct {
	ID          string    `json:"commit_id"`
	RepoID      string    `json:"repo_id"`
	Branch      string    `json:"branch"`
	ParentID    string    `json:"parent_commit_id,omitempty"` // empty for root commits
	SnapshotID  string    `json:"snapshot_id"`
	Message     string    `json:"message"`
	Author      string    `json:"author"`
	CommittedAt time.Time `json:"committed_at"`
}

// ShortID returns the abbreviated form of a commit id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ComputeID derives the deterministic commit id from the fields that
// define a commit's identity. Re-deriving from identical inputs always
// yields the same id.
func ComputeID(parentID, snapshotID, message string, committedAt time.Time) string {
	var buf bytes.Buffer
	if parentID != "" {
		buf.WriteString("parent ")
		buf.WriteString(parentID)
		buf.WriteByte('\n')
	}
	buf.WriteString("snapshot ")
	buf.WriteString(snapshotID)
	buf.WriteByte('\n')
	buf.WriteString("committed ")
	fmt.Fprintf(&buf, "%d", committedAt.UTC().Unix())
	buf.WriteByte('\n')
	buf.WriteByte('\n')
	buf.WriteString(message)
	if !bytes.HasSuffix(buf.Bytes(), []byte{'\n'}) {
		buf.WriteByte('\n')
	}
	return cas.SumB3(buf.Bytes()).String()
}

// Store is the persistence boundary for commit records: an abstract
// transactional session over get, insert-if-absent, and prefix search.
type Store interface {
	GetCommit(id string) ([]byte, error)
	InsertCommitIfAbsent(id string, data []byte) (existing []byte, err error)
	FindCommitsByPrefix(prefix string) ([][]byte, error)
}

func encode(c *Commit) ([]byte, error) {
	normalized := *c
	normalized.CommittedAt = c.CommittedAt.UTC().Truncate(time.Second)
	return json.Marshal(&normalized)
}

func decode(data []byte) (*Commit, error) {
	var c Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode commit record: %w", err)
	}
	return &c, nil
}

// Insert persists a commit record. Inserting an identical record twice
// succeeds silently; inserting a different record under an existing id
// fails with ErrImmutableCommit.
func Insert(s Store, c *Commit) error {
	data, err := encode(c)
	if err != nil {
		return fmt.Errorf("encode commit %s: %w", ShortID(c.ID), err)
	}
	existing, err := s.InsertCommitIfAbsent(c.ID, data)
	if err != nil {
		return fmt.Errorf("insert commit %s: %w", ShortID(c.ID), err)
	}
	if existing != nil && !bytes.Equal(existing, data) {
		return fmt.Errorf("commit %s: %w", ShortID(c.ID), ErrImmutableCommit)
	}
	return nil
}

// Get loads a commit by its full id.
func Get(s Store, id string) (*Commit, error) {
	data, err := s.GetCommit(id)
	if err != nil {
		return nil, fmt.Errorf("get commit %s: %w", ShortID(id), err)
	}
	if data == nil {
		return nil, fmt.Errorf("commit %s: %w", ShortID(id), ErrNotFound)
	}
	return decode(data)
}

// ResolvePrefix finds the single commit in a repository whose id starts
// with prefix. More than one match fails with ErrAmbiguousPrefix, none
// with ErrNotFound.
func ResolvePrefix(s Store, repoID, prefix string) (*Commit, error) {
	records, err := s.FindCommitsByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("prefix search %q: %w", prefix, err)
	}

	var match *Commit
	for _, data := range records {
		c, err := decode(data)
		if err != nil {
			return nil, err
		}
		if repoID != "" && c.RepoID != repoID {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("prefix %q: %w", prefix, ErrAmbiguousPrefix)
		}
		match = c
	}
	if match == nil {
		return nil, fmt.Errorf("prefix %q: %w", prefix, ErrNotFound)
	}
	return match, nil
}

// WalkParents follows parent links exactly steps times from start.
// Returns nil (not an error) if the chain is exhausted before steps
// hops; callers decide whether that is fatal.
func WalkParents(s Store, start *Commit, steps int) (*Commit, error) {
	current := start
	for i := 0; i < steps; i++ {
		if current.ParentID == "" {
			return nil, nil
		}
		parent, err := Get(s, current.ParentID)
		if err != nil {
			return nil, err
		}
		current = parent
	}
	return current, nil
}

// Log returns up to limit commits walking the parent chain from tip,
// newest first. A limit of 0 means no limit.
func Log(s Store, tipID string, limit int) ([]*Commit, error) {
	var commits []*Commit
	id := tipID
	for id != "" {
		c, err := Get(s, id)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
		if limit > 0 && len(commits) >= limit {
			break
		}
		id = c.ParentID
	}
	return commits, nil
}

// MergeBase finds the first common ancestor of two commits, walking each
// parent chain. Returns nil if the histories share no commit.
func MergeBase(s Store, aID, bID string) (*Commit, error) {
	seen := make(map[string]bool)
	for id := aID; id != ""; {
		seen[id] = true
		c, err := Get(s, id)
		if err != nil {
			return nil, err
		}
		id = c.ParentID
	}
	for id := bID; id != ""; {
		c, err := Get(s, id)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return c, nil
		}
		id = c.ParentID
	}
	return nil, nil
}
