package git

import (
	"context"
	"fmt"
)

// LastCommitOptions scopes the ref set considered by LastCommit.
type LastCommitOptions struct {
	// All considers every ref under refs/, not just HEAD.
	All bool

	// Tags considers every tag ref.
	Tags bool
}

// LastCommit reports the most recently created commit reachable under the
// scope selected by opts, equivalent to `git rev-list -n 1 [--all|--tags]`.
// It returns [ErrNotExist] if the repository has no commits in scope,
// e.g. a freshly initialized repository before its first commit.
func (r *Repository) LastCommit(ctx context.Context, opts LastCommitOptions) (Hash, error) {
	args := []string{"rev-list", "-n", "1"}
	switch {
	case opts.All:
		args = append(args, "--all")
	case opts.Tags:
		args = append(args, "--tags")
	default:
		// rev-list fails outright on an unborn HEAD.
		if _, err := r.PeelToCommit(ctx, "HEAD"); err != nil {
			return "", ErrNotExist
		}
		args = append(args, "HEAD")
	}

	out, err := r.gitCmd(ctx, args...).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("git rev-list: %w", err)
	}
	if out == "" {
		return "", ErrNotExist
	}
	return Hash(out), nil
}
