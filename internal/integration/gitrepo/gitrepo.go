// Package gitrepo implements local git branch creation, commit, and
// push_files against a working tree using go-git, the same library the
// teacher's own checkpoint/strategy packages use for tree surgery. Unlike
// the teacher's object-level tree manipulation (which rewrites its own
// metadata branch), this package works at the worktree level — add,
// commit, push — because SPEC_FULL.md §6 scopes it to an ordinary feature
// branch an AI subprocess's edits land on, not an internal bookkeeping ref.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/speckit/harness/internal/integration"
	"github.com/speckit/harness/internal/paths"
)

// ErrUntrackedPath is returned by PushFiles when a change's path was not
// present in the session's tracked whitelist (I4's file-ownership rule).
var ErrUntrackedPath = errors.New("path is not in the session's tracked file whitelist")

// Repo binds git operations to one working tree.
type Repo struct {
	dir    string
	repo   *git.Repository
	Author object.Signature
}

// Open opens the git repository rooted at dir.
func Open(dir string, author object.Signature) (*Repo, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open repo at %s: %w", dir, err)
	}
	return &Repo{dir: dir, repo: r, Author: author}, nil
}

// IsDirty reports whether the working tree has uncommitted changes, for
// the project_verification checkpoint's `dirty_worktree` context field
// (SPEC_FULL.md §6 expansion).
func (r *Repo) IsDirty(ctx context.Context) (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("worktree status: %w", err)
	}
	return !status.IsClean(), nil
}

// DetectedRemote returns the URL of the repo's "origin" remote, or "" if
// none is configured, for the project_verification checkpoint's
// `detected_remote` context field.
func (r *Repo) DetectedRemote(ctx context.Context) (string, error) {
	remote, err := r.repo.Remote("origin")
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", nil
	}
	return urls[0], nil
}

// CreateBranch creates name from fromBranch's tip without checking it out.
func (r *Repo) CreateBranch(ctx context.Context, name, fromBranch string) error {
	fromRef, err := r.repo.Reference(plumbing.NewBranchReferenceName(fromBranch), true)
	if err != nil {
		return fmt.Errorf("resolve source branch %s: %w", fromBranch, err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), fromRef.Hash())
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

// PushFiles checks out branch, writes changes to the working tree,
// commits them, and pushes to origin. Every change's Path must already be
// present in tracked (I4); any path outside it is refused before the
// worktree or go-git are ever touched.
func (r *Repo) PushFiles(ctx context.Context, branch, message string, changes []integration.FileChange, tracked []string) (integration.Commit, error) {
	for _, c := range changes {
		if !containsPath(tracked, c.Path) {
			return integration.Commit{}, fmt.Errorf("%w: %s", ErrUntrackedPath, c.Path)
		}
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return integration.Commit{}, fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)}); err != nil {
		return integration.Commit{}, fmt.Errorf("checkout branch %s: %w", branch, err)
	}

	for _, c := range changes {
		absPath, pathErr := paths.EnsureWithinRoot(r.dir, c.Path)
		if pathErr != nil {
			return integration.Commit{}, pathErr
		}
		if c.Delete {
			if _, err := wt.Remove(c.Path); err != nil {
				return integration.Commit{}, fmt.Errorf("remove %s: %w", c.Path, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o750); err != nil {
			return integration.Commit{}, fmt.Errorf("create parent dirs for %s: %w", c.Path, err)
		}
		if err := os.WriteFile(absPath, c.Content, 0o640); err != nil {
			return integration.Commit{}, fmt.Errorf("write %s: %w", c.Path, err)
		}
		if _, err := wt.Add(c.Path); err != nil {
			return integration.Commit{}, fmt.Errorf("stage %s: %w", c.Path, err)
		}
	}

	r.Author.When = time.Now().UTC()
	hash, err := wt.Commit(message, &git.CommitOptions{Author: &r.Author})
	if err != nil {
		return integration.Commit{}, fmt.Errorf("commit: %w", err)
	}

	if err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))},
	}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return integration.Commit{}, fmt.Errorf("push branch %s: %w", branch, err)
	}

	commitObj, err := r.repo.CommitObject(hash)
	if err != nil {
		return integration.Commit{}, fmt.Errorf("read back commit: %w", err)
	}
	return commitToDTO(commitObj), nil
}

// ListCommits returns branch's commits at or after since.
func (r *Repo) ListCommits(ctx context.Context, branch string, since time.Time) ([]integration.Commit, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", branch, err)
	}
	iter, err := r.repo.Log(&git.LogOptions{From: ref.Hash(), Since: &since})
	if err != nil {
		return nil, fmt.Errorf("log branch %s: %w", branch, err)
	}
	defer iter.Close()

	var out []integration.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		out = append(out, commitToDTO(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return out, nil
}

func commitToDTO(c *object.Commit) integration.Commit {
	return integration.Commit{
		SHA:     c.Hash.String(),
		Message: c.Message,
		Author:  c.Author.Name,
		When:    c.Author.When.UTC(),
	}
}

func containsPath(tracked []string, path string) bool {
	for _, t := range tracked {
		if t == path {
			return true
		}
	}
	return false
}
