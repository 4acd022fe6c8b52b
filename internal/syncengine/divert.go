package syncengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/refsync"
	"go.gitsync.dev/gitsync/internal/syncstate"
)

// divert implements spec.md §4.7: when a commit cannot be replayed
// cleanly onto the target's current branch, the target is parked on a
// fresh conflict branch rooted as close as possible to where the
// failing commit actually belongs, so a human can resolve it later
// without losing the commits already projected.
func divert(ctx context.Context, s *syncstate.State, hash git.Hash) error {
	if err := s.Target.CheckoutTheirs(ctx); err != nil {
		return fmt.Errorf("checkout theirs: %w", err)
	}

	root, err := locateDivertRoot(ctx, s, hash)
	if err != nil {
		return fmt.Errorf("locate divert root for %s: %w", hash.Short(), err)
	}

	if err := s.Target.ResetHard(ctx, "HEAD"); err != nil {
		return fmt.Errorf("reset hard: %w", err)
	}

	branch := s.CurrentBranch
	conflictBranch := branch + refsync.ConflictSuffix
	if err := s.Target.CreateAndCheckoutBranch(ctx, git.CreateBranchRequest{
		Name: conflictBranch,
		Head: root.String(),
	}); err != nil {
		return fmt.Errorf("create conflict branch %s: %w", conflictBranch, err)
	}

	s.MarkConflict(branch, conflictBranch)
	s.CurrentBranch = conflictBranch
	return nil
}

// locateDivertRoot finds the target-side commit closest in time to
// hash's predecessor on its subpath, falling back to the target's
// current HEAD when no counterpart can be found.
func locateDivertRoot(ctx context.Context, s *syncstate.State, hash git.Hash) (git.Hash, error) {
	committerTS, body, err := s.Source.PriorCommit(ctx, hash.String(), s.SourcePathspecs...)
	if err == nil {
		matches, searchErr := s.Target.SearchCommits(ctx, git.SearchCommitsOptions{
			After:  secondBefore(committerTS),
			Before: secondAfter(committerTS),
			Grep:   firstLine(body),
		})
		if searchErr == nil {
			for h := range matches {
				return h, nil
			}
		}
	}

	head, err := s.Target.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve target HEAD: %w", err)
	}
	return head, nil
}

func secondBefore(ts int64) time.Time { return time.Unix(ts-1, 0).UTC() }
func secondAfter(ts int64) time.Time  { return time.Unix(ts+1, 0).UTC() }

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
