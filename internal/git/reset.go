package git

import (
	"context"
	"fmt"
)

// ResetHard resets the current branch and working tree to commitish.
// If commitish is empty, HEAD is used, discarding any staged or unstaged
// changes without moving the branch.
func (r *Repository) ResetHard(ctx context.Context, commitish string) error {
	args := []string{"reset", "--hard"}
	if commitish != "" {
		args = append(args, commitish)
	}

	if err := r.gitCmd(ctx, args...).Run(r.exec); err != nil {
		return fmt.Errorf("git reset --hard: %w", err)
	}
	return nil
}

// CheckoutTheirs resolves an in-progress conflicted merge by taking the
// incoming side of every conflicted path in the working tree.
func (r *Repository) CheckoutTheirs(ctx context.Context) error {
	if err := r.gitCmd(ctx, "checkout", "--theirs", ".").Run(r.exec); err != nil {
		return fmt.Errorf("git checkout --theirs: %w", err)
	}
	return nil
}

// CheckoutForce force-checks-out commitish, discarding local changes to
// tracked files that would otherwise block the checkout.
func (r *Repository) CheckoutForce(ctx context.Context, commitish string) error {
	if err := r.gitCmd(ctx, "checkout", "-f", commitish).Run(r.exec); err != nil {
		return fmt.Errorf("git checkout -f: %w", err)
	}
	return nil
}

// CreateOrResetBranch creates branch at head, resetting it to head if it
// already exists, equivalent to `git checkout -B`.
func (r *Repository) CreateOrResetBranch(ctx context.Context, branch, head string) error {
	args := []string{"checkout", "-B", branch}
	if head != "" {
		args = append(args, head)
	}
	if err := r.gitCmd(ctx, args...).Run(r.exec); err != nil {
		return fmt.Errorf("git checkout -B: %w", err)
	}
	return nil
}
