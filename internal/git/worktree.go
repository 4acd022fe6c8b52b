package git

import (
	"context"
	"fmt"
)

// Worktree is a handle to a secondary worktree of a Repository,
// checked out at a separate directory on disk.
type Worktree struct {
	repo *Repository
	dir  string
}

// Dir reports the directory the worktree was checked out to.
func (w *Worktree) Dir() string { return w.dir }

// AddWorktree creates a new, detached worktree at dir with nothing checked
// out. Callers typically follow this with a scoped checkout of individual
// paths via Worktree.CheckoutPaths.
//
// If a worktree already exists at dir, it is replaced.
func (r *Repository) AddWorktree(ctx context.Context, dir string) (*Worktree, error) {
	err := r.gitCmd(ctx,
		"worktree", "add",
		"-f", // replace an existing worktree registration at dir
		dir,
		"--no-checkout",
		"--detach",
	).Run(r.exec)
	if err != nil {
		return nil, fmt.Errorf("git worktree add: %w", err)
	}

	return &Worktree{repo: r, dir: dir}, nil
}

// CheckoutPaths populates the given paths in the worktree
// from commitish, overwriting anything already there.
func (w *Worktree) CheckoutPaths(ctx context.Context, commitish string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	args := append([]string{"checkout", "-f", commitish, "--"}, paths...)
	err := newGitCmd(ctx, w.repo.log, args...).Dir(w.dir).Run(w.repo.exec)
	if err != nil {
		return fmt.Errorf("git checkout: %w", err)
	}
	return nil
}

// Remove removes the worktree from disk and unregisters it from the
// repository.
func (w *Worktree) Remove(ctx context.Context) error {
	err := w.repo.gitCmd(ctx, "worktree", "remove", "-f", w.dir).Run(w.repo.exec)
	if err != nil {
		return fmt.Errorf("git worktree remove: %w", err)
	}
	return nil
}
