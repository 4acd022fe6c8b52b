package git

import (
	"context"
	"fmt"
	"strconv"
)

// ApplyRequest configures a three-way patch application.
type ApplyRequest struct {
	// Patch is the raw unified diff to apply, as produced by
	// CommitPatch or DiffStat.
	Patch string // required

	// Strip is the number of leading path segments to drop from each
	// file path in the patch, equivalent to -p<N>.
	Strip int

	// Directory rewrites applied paths to be relative to this
	// directory, equivalent to --directory.
	Directory string
}

// Apply applies req.Patch to the working tree using a three-way merge,
// falling back to conflict markers when a file has diverged. A non-nil
// error here means the patch could not be applied even with conflict
// markers; the caller is expected to fall back to a worktree overwrite
// or a conflict branch.
func (r *Repository) Apply(ctx context.Context, req ApplyRequest) error {
	args := []string{
		"apply",
		"-3",
		"--ignore-whitespace",
		"-p" + strconv.Itoa(req.Strip),
	}
	if req.Directory != "" {
		args = append(args, "--directory", req.Directory)
	}

	err := r.gitCmd(ctx, args...).
		StdinString(req.Patch).
		Run(r.exec)
	if err != nil {
		return fmt.Errorf("git apply: %w", err)
	}
	return nil
}
