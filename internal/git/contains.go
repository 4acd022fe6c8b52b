package git

import (
	"context"
)

// Contains reports whether hash is reachable from any local branch,
// equivalent to `git branch --contains <hash>` returning a non-empty list.
func (r *Repository) Contains(ctx context.Context, hash Hash) (bool, error) {
	out, err := r.gitCmd(ctx, "branch", "--no-color", "--contains", hash.String()).
		OutputString(r.exec)
	if err != nil {
		// A commit unreachable from anywhere is reported as an error
		// by some git versions when the object itself is unknown.
		return false, nil
	}
	return out != "", nil
}
