package git

import (
	"context"
	"fmt"
)

// IsClean reports whether the working tree has no staged or unstaged
// changes, i.e. whether `git status --short` produces no output.
func (r *Repository) IsClean(ctx context.Context) (bool, error) {
	out, err := r.gitCmd(ctx, "status", "--short").OutputString(r.exec)
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return out == "", nil
}
