// Package repo handles Muse repository discovery, initialization, and
// the on-disk descriptor under .muse/.
//
// A repository root contains a .muse directory (or, in a linked
// worktree, a .muse pointer file referencing the main repository's .muse
// directory) and a muse-work/ working-tree area.
package repo

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/musehq/muse/internal/cas"
	"github.com/musehq/muse/internal/refs"
	"github.com/musehq/muse/internal/store"
)

// MuseDirName is the repository metadata directory (or pointer file).
const MuseDirName = ".muse"

// WorkDirName is the working-tree area beside .muse.
const WorkDirName = "muse-work"

// SchemaVersion is the current repository descriptor schema.
const SchemaVersion = 1

// DefaultBranch is the branch created by init.
const DefaultBranch = "main"

// ErrRepoNotFound reports that no .muse ancestor exists.
var ErrRepoNotFound = errors.New("not a muse repository (no .muse found)")

// ErrAlreadyExists reports an init inside an existing repository root.
var ErrAlreadyExists = errors.New("muse repository already exists")

// ErrLocked reports that another operation holds the repository lock.
var ErrLocked = errors.New("another muse operation is in progress")

// Descriptor is the persisted contents of .muse/repo.json.
type Descriptor struct {
	RepoID        string `json:"repo_id"`
	SchemaVersion int    `json:"schema_version"`
}

// Repo is an opened repository.
type Repo struct {
	// Root is the directory containing this worktree's .muse entry.
	Root string
	// MuseDir is the real .muse directory. For linked worktrees this is
	// the main repository's .muse, resolved through the pointer file.
	MuseDir string
	// MainRoot is the directory containing MuseDir.
	MainRoot string
	// Linked reports whether Root is a linked worktree.
	Linked bool
	// Desc is the repository descriptor.
	Desc Descriptor
}

// WorkDir returns this worktree's working-tree area.
func (r *Repo) WorkDir() string {
	return filepath.Join(r.Root, WorkDirName)
}

// ObjectsDir returns the shared object store directory.
func (r *Repo) ObjectsDir() string {
	return filepath.Join(r.MuseDir, "objects")
}

// DBPath returns the shared metadata database file.
func (r *Repo) DBPath() string {
	return filepath.Join(r.MuseDir, "muse.db")
}

// OpenDB opens the repository's metadata database.
func (r *Repo) OpenDB() (*store.DB, error) {
	db, err := store.Open(r.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open muse database: %w", err)
	}
	return db, nil
}

// Objects opens the repository's blob store.
func (r *Repo) Objects() (*cas.FileCAS, error) {
	return cas.NewFileCAS(r.ObjectsDir())
}

// Find locates the repository containing start by walking up the
// directory tree for a .muse entry.
func Find(start string) (*Repo, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}

	for {
		museEntry := filepath.Join(dir, MuseDirName)
		info, err := os.Stat(museEntry)
		if err == nil {
			return open(dir, museEntry, info.IsDir())
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrRepoNotFound
		}
		dir = parent
	}
}

func open(root, museEntry string, isDir bool) (*Repo, error) {
	r := &Repo{Root: root}
	if isDir {
		r.MuseDir = museEntry
		r.MainRoot = root
	} else {
		// Linked worktree: .muse is a pointer file "gitdir: <path>".
		data, err := os.ReadFile(museEntry)
		if err != nil {
			return nil, fmt.Errorf("read worktree pointer: %w", err)
		}
		target := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(data)), "gitdir:"))
		if target == "" {
			return nil, fmt.Errorf("worktree pointer %s is empty", museEntry)
		}
		r.MuseDir = target
		r.MainRoot = filepath.Dir(target)
		r.Linked = true
	}

	desc, err := ReadDescriptor(r.MuseDir)
	if err != nil {
		return nil, err
	}
	r.Desc = desc
	return r, nil
}

// ReadDescriptor loads .muse/repo.json.
func ReadDescriptor(museDir string) (Descriptor, error) {
	var desc Descriptor
	data, err := os.ReadFile(filepath.Join(museDir, "repo.json"))
	if err != nil {
		return desc, fmt.Errorf("read repo descriptor: %w", err)
	}
	if err := json.Unmarshal(data, &desc); err != nil {
		return desc, fmt.Errorf("parse repo descriptor: %w", err)
	}
	return desc, nil
}

// Init creates a new repository at root: the .muse directory, descriptor,
// default branch, HEAD, and the muse-work area.
func Init(root string) (*Repo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	museDir := filepath.Join(root, MuseDirName)
	if _, err := os.Stat(museDir); err == nil {
		return nil, ErrAlreadyExists
	}

	for _, dir := range []string{
		museDir,
		filepath.Join(museDir, "refs", "heads"),
		filepath.Join(museDir, "objects"),
		filepath.Join(root, WorkDirName),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	desc := Descriptor{
		RepoID:        ulid.MustNew(ulid.Now(), rand.Reader).String(),
		SchemaVersion: SchemaVersion,
	}
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(museDir, "repo.json"), append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("write repo descriptor: %w", err)
	}

	if err := refs.WriteBranchTip(museDir, DefaultBranch, ""); err != nil {
		return nil, err
	}
	if err := refs.WriteSymbolicRef(museDir, "HEAD", refs.BranchRef(DefaultBranch)); err != nil {
		return nil, err
	}

	return &Repo{Root: root, MuseDir: museDir, MainRoot: root, Desc: desc}, nil
}

// Lock acquires the repository's advisory lock and returns the release
// function. Sequences that read a ref, compute, and write it back run
// under this lock so two concurrent invocations cannot interleave.
func (r *Repo) Lock() (release func(), err error) {
	lockPath := filepath.Join(r.MuseDir, "LOCK")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("acquire repo lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(lockPath) }, nil
}

// Author resolves the commit author: .muse/config.json, then the
// MUSE_AUTHOR environment variable, then the OS user name.
func (r *Repo) Author() string {
	var cfg struct {
		Author string `json:"author"`
	}
	if data, err := os.ReadFile(filepath.Join(r.MuseDir, "config.json")); err == nil {
		if json.Unmarshal(data, &cfg) == nil && cfg.Author != "" {
			return cfg.Author
		}
	}
	if author := os.Getenv("MUSE_AUTHOR"); author != "" {
		return author
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
