package git

import (
	"context"
	"fmt"
)

// DiffStat builds the squash-mode patch between start and end, equivalent
// to `git diff --stat --binary --color=never <start>..<end>` scoped by
// pathspecs. The result is suitable for a three-way Apply in the same way
// as CommitPatch's output.
func (r *Repository) DiffStat(ctx context.Context, start, end string, pathspecs ...string) (string, error) {
	args := []string{
		"diff",
		"--stat",
		"--binary",
		"--color=never",
		start + ".." + end,
	}
	if len(pathspecs) > 0 {
		args = append(args, "--")
		args = append(args, pathspecs...)
	}

	out, err := r.gitCmd(ctx, args...).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	return out, nil
}
