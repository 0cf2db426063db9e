// Package refs implements file-backed branch pointers and the HEAD
// reference for Muse repositories.
//
// Refs are the literal persistence format: refs/heads/<branch> is a text
// file holding a commit id (or nothing, for a branch with no commits),
// and HEAD holds either "ref: refs/heads/<branch>" or a bare commit id
// when detached. Readers tolerate missing files as "no commits yet".
package refs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidRefTarget reports a symbolic ref target outside refs/.
var ErrInvalidRefTarget = errors.New("symbolic ref target must begin with refs/")

const headsPrefix = "refs/heads/"

// HeadKind discriminates the states of a repository's HEAD.
type HeadKind int

const (
	// HeadEmpty means no HEAD file exists yet.
	HeadEmpty HeadKind = iota
	// HeadSymbolic means HEAD points at a branch ref.
	HeadSymbolic
	// HeadDetached means HEAD holds a bare commit id.
	HeadDetached
)

// HeadState is the decoded contents of a HEAD file.
type HeadState struct {
	Kind     HeadKind
	Branch   string // set when Kind == HeadSymbolic
	CommitID string // set when Kind == HeadDetached
}

// ReadHead decodes the HEAD file under museDir. A missing file yields
// HeadEmpty, not an error.
func ReadHead(museDir string) (HeadState, error) {
	data, err := os.ReadFile(filepath.Join(museDir, "HEAD"))
	if err != nil {
		if os.IsNotExist(err) {
			return HeadState{Kind: HeadEmpty}, nil
		}
		return HeadState{}, fmt.Errorf("read HEAD: %w", err)
	}

	content := strings.TrimSpace(string(data))
	content = strings.TrimPrefix(content, "ref: ")
	if strings.HasPrefix(content, headsPrefix) {
		return HeadState{Kind: HeadSymbolic, Branch: strings.TrimPrefix(content, headsPrefix)}, nil
	}
	if content == "" {
		return HeadState{Kind: HeadEmpty}, nil
	}
	return HeadState{Kind: HeadDetached, CommitID: content}, nil
}

// WriteSymbolicRef points the ref file at name (usually HEAD) to another
// ref. The target must live under refs/.
func WriteSymbolicRef(museDir, name, target string) error {
	if !strings.HasPrefix(target, "refs/") {
		return fmt.Errorf("target %q: %w", target, ErrInvalidRefTarget)
	}
	return writeRefFile(museDir, name, "ref: "+target)
}

// WriteRef writes a commit id into the named ref file, e.g.
// refs/heads/main. An empty commit id marks a branch with no commits.
func WriteRef(museDir, name, commitID string) error {
	return writeRefFile(museDir, name, commitID)
}

// ReadRef returns the commit id stored in the named ref file, or ""
// when the file is missing or empty.
func ReadRef(museDir, name string) (string, error) {
	data, err := os.ReadFile(refPath(museDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read ref %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// DeleteRef removes the named ref file. Returns false (and no error)
// when the ref does not exist.
func DeleteRef(museDir, name string) (bool, error) {
	err := os.Remove(refPath(museDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete ref %s: %w", name, err)
	}
	return true, nil
}

// BranchRef returns the full ref name for a branch.
func BranchRef(branch string) string {
	return headsPrefix + branch
}

// BranchTip returns the commit id a branch points at, or "" when the
// branch has no commits or no ref file yet.
func BranchTip(museDir, branch string) (string, error) {
	return ReadRef(museDir, BranchRef(branch))
}

// WriteBranchTip points a branch at a commit id, creating the ref file
// if needed.
func WriteBranchTip(museDir, branch, commitID string) error {
	return WriteRef(museDir, BranchRef(branch), commitID)
}

// BranchExists reports whether a ref file for the branch exists.
func BranchExists(museDir, branch string) bool {
	_, err := os.Stat(refPath(museDir, BranchRef(branch)))
	return err == nil
}

// ListBranches returns all branch names with ref files, sorted.
func ListBranches(museDir string) ([]string, error) {
	headsDir := filepath.Join(museDir, "refs", "heads")
	var branches []string
	err := filepath.WalkDir(headsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(headsDir, path)
		if err != nil {
			return err
		}
		branches = append(branches, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	sort.Strings(branches)
	return branches, nil
}

// refPath maps a ref name like refs/heads/feature/x onto the filesystem.
func refPath(museDir, name string) string {
	return filepath.Join(museDir, filepath.FromSlash(name))
}

func writeRefFile(museDir, name, content string) error {
	path := refPath(museDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create ref parent dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0644); err != nil {
		return fmt.Errorf("write ref %s: %w", name, err)
	}
	return nil
}
