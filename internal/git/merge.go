package git

import (
	"context"
	"fmt"
)

// Merge attempts a non-fast-forward merge of refs into the current branch
// without creating a commit, leaving the result (clean or conflicted) staged
// in the index and worktree for the caller to inspect.
//
// A non-nil error is expected and routine when the merge has conflicts;
// callers must not treat it as fatal on its own. Inspect the working tree
// (e.g. via Status) to decide how to proceed.
func (r *Repository) Merge(ctx context.Context, refs ...string) error {
	args := append([]string{"merge", "--no-ff", "--no-commit"}, refs...)
	if err := r.gitCmd(ctx, args...).Run(r.exec); err != nil {
		return fmt.Errorf("git merge: %w", err)
	}
	return nil
}

// AbortMerge discards an in-progress, uncommitted merge.
func (r *Repository) AbortMerge(ctx context.Context) error {
	if err := r.gitCmd(ctx, "merge", "--abort").Run(r.exec); err != nil {
		return fmt.Errorf("git merge --abort: %w", err)
	}
	return nil
}
