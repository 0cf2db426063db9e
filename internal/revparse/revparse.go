// Package revparse resolves revision expressions of the form
// <base>[~N], where base is HEAD, a branch name, a full commit id, or an
// unambiguous commit-id prefix.
//
// Resolution distinguishes "unresolved" (the expression names nothing:
// unknown id, branch with no commits, parent chain exhausted) from real
// errors (ambiguous prefix, storage failure). Unresolved is not an error
// here; the CLI's --verify flag promotes it to one.
package revparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/refs"
)

// Resolution is a successfully resolved revision expression.
type Resolution struct {
	CommitID string
	Branch   string // branch the base named, if any
	Expr     string // the original expression
}

// Resolve turns expr into a concrete commit. The second return value is
// false when the expression is well-formed but names no commit.
func Resolve(museDir string, s commitgraph.Store, repoID, expr string) (*Resolution, bool, error) {
	base, steps, ok := splitTilde(expr)
	if !ok {
		return nil, false, nil
	}

	commit, branch, err := resolveBase(museDir, s, repoID, base)
	if err != nil {
		return nil, false, err
	}
	if commit == nil {
		return nil, false, nil
	}

	if steps > 0 {
		commit, err = commitgraph.WalkParents(s, commit, steps)
		if err != nil {
			return nil, false, err
		}
		if commit == nil {
			return nil, false, nil // chain exhausted before N hops
		}
	}

	return &Resolution{CommitID: commit.ID, Branch: branch, Expr: expr}, true, nil
}

// splitTilde splits an optional ~N suffix off the expression. ~0 is
// equivalent to no suffix.
func splitTilde(expr string) (base string, steps int, ok bool) {
	base, suffix, found := strings.Cut(expr, "~")
	if base == "" {
		return "", 0, false
	}
	if !found {
		return base, 0, true
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return "", 0, false
	}
	return base, n, true
}

func resolveBase(museDir string, s commitgraph.Store, repoID, base string) (*commitgraph.Commit, string, error) {
	if base == "HEAD" {
		head, err := refs.ReadHead(museDir)
		if err != nil {
			return nil, "", err
		}
		switch head.Kind {
		case refs.HeadSymbolic:
			return tipCommit(museDir, s, head.Branch)
		case refs.HeadDetached:
			c, err := commitgraph.Get(s, head.CommitID)
			if err != nil {
				return nil, "", err
			}
			return c, "", nil
		default:
			return nil, "", nil
		}
	}

	if refs.BranchExists(museDir, base) {
		return tipCommit(museDir, s, base)
	}

	// Not a ref: try exact commit id, then prefix.
	c, err := commitgraph.Get(s, base)
	if err == nil {
		return c, "", nil
	}
	if !errors.Is(err, commitgraph.ErrNotFound) {
		return nil, "", err
	}
	c, err = commitgraph.ResolvePrefix(s, repoID, base)
	if err != nil {
		if errors.Is(err, commitgraph.ErrNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return c, "", nil
}

func tipCommit(museDir string, s commitgraph.Store, branch string) (*commitgraph.Commit, string, error) {
	tip, err := refs.BranchTip(museDir, branch)
	if err != nil {
		return nil, "", err
	}
	if tip == "" {
		return nil, branch, nil
	}
	c, err := commitgraph.Get(s, tip)
	if err != nil {
		return nil, "", fmt.Errorf("branch %s tip: %w", branch, err)
	}
	return c, branch, nil
}
