package git

import (
	"context"
	"fmt"
)

// AddTracked stages changes to every already-tracked file,
// equivalent to `git add -u`. It never stages new, untracked files.
func (r *Repository) AddTracked(ctx context.Context) error {
	if err := r.gitCmd(ctx, "add", "-u").Run(r.exec); err != nil {
		return fmt.Errorf("git add -u: %w", err)
	}
	return nil
}

// AddPaths stages the given paths, including new, untracked files.
func (r *Repository) AddPaths(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	args := append([]string{"add"}, paths...)
	if err := r.gitCmd(ctx, args...).Run(r.exec); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	return nil
}
