// Package branchsync reconciles the target repository's branches against
// the source's, once per run, after every scanned commit has been
// projected.
package branchsync

import (
	"context"
	"errors"
	"fmt"

	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/refsync"
	"go.gitsync.dev/gitsync/internal/syncstate"
)

// Result is one branch's reconciliation outcome, logged by the caller.
type Result struct {
	Branch  string
	Action  string // "created", "fast-forwarded", "up to date", "ahead", "diverged", "skipped", "even"
	Message string
}

// Summary totals the per-branch outcomes of a Reconcile call.
type Summary struct {
	Results []Result
}

// Reconcile implements spec.md §4.8: for every branch in sourceBranches,
// in order, bring the target's branch of the same name to match the
// source branch's oracle-resolved tip, handling the absent, fast-forward,
// ahead, diverged, and even-with-another-branch cases.
func Reconcile(ctx context.Context, s *syncstate.State, sourceBranches []string) (Summary, error) {
	var summary Summary

	targetBranches, err := s.Target.LocalBranches(ctx)
	if err != nil {
		return summary, fmt.Errorf("list target branches: %w", err)
	}
	existsInTarget := make(map[string]bool, len(targetBranches))
	for _, b := range targetBranches {
		existsInTarget[b] = true
	}

	// tipOf tracks every branch's resolved target tip seen so far this
	// call, feeding skipEvenBranch's "even with an existing branch"
	// check without a second repo round trip per branch.
	tipOf := make(map[string]git.Hash, len(sourceBranches))

	for _, branch := range sourceBranches {
		res, err := reconcileOne(ctx, s, branch, existsInTarget[branch], tipOf)
		if err != nil {
			return summary, fmt.Errorf("branch %s: %w", branch, err)
		}
		summary.Results = append(summary.Results, res)
	}

	return summary, nil
}

func reconcileOne(ctx context.Context, s *syncstate.State, branch string, existed bool, tipOf map[string]git.Hash) (Result, error) {
	sourceTip, err := s.Source.PeelToCommit(ctx, branch)
	if err != nil {
		return Result{}, fmt.Errorf("resolve source tip: %w", err)
	}

	targetTip, err := s.Oracle.Resolve(ctx, sourceTip)
	if err != nil {
		if errors.Is(err, git.ErrNotExist) {
			return Result{
				Branch:  branch,
				Action:  "skipped",
				Message: "Commit not found in target repository, branch: " + branch,
			}, nil
		}
		return Result{}, fmt.Errorf("resolve oracle tip: %w", err)
	}

	if s.Config.SkipEvenBranch {
		if even, other := evenWith(targetTip, tipOf); even {
			return Result{
				Branch:  branch,
				Action:  "even",
				Message: fmt.Sprintf("Skip creating branch %q, which is even with: %s", branch, other),
			}, nil
		}
	}
	tipOf[branch] = targetTip

	if !existed {
		if err := s.Target.ForceCreateBranch(ctx, git.CreateBranchRequest{
			Name: branch,
			Head: targetTip.String(),
		}); err != nil {
			return Result{}, fmt.Errorf("create branch: %w", err)
		}
		return Result{Branch: branch, Action: "created"}, nil
	}

	return reconcileExisting(ctx, s, branch, targetTip)
}

func reconcileExisting(ctx context.Context, s *syncstate.State, branch string, targetTip git.Hash) (Result, error) {
	currentTip, err := s.Target.PeelToCommit(ctx, branch)
	if err != nil {
		return Result{}, fmt.Errorf("resolve current target tip: %w", err)
	}

	if currentTip == targetTip {
		return Result{Branch: branch, Action: "up to date"}, nil
	}

	base, err := s.Target.MergeBase(ctx, currentTip.String(), targetTip.String())
	if err != nil {
		return Result{}, fmt.Errorf("merge-base: %w", err)
	}

	switch base {
	case currentTip:
		// The target's tip is an ancestor of the resolved tip: a clean
		// fast-forward.
		if err := s.Target.ForceCreateBranch(ctx, git.CreateBranchRequest{
			Name: branch,
			Head: targetTip.String(),
		}); err != nil {
			return Result{}, fmt.Errorf("fast-forward branch: %w", err)
		}
		return Result{Branch: branch, Action: "fast-forwarded"}, nil

	case targetTip:
		// The resolved tip is an ancestor of the target's current tip:
		// the target already has commits the source does not.
		return Result{Branch: branch, Action: "ahead"}, nil

	default:
		if branch == s.CurrentBranch {
			return Result{Branch: branch, Action: "skipped", Message: "current projection branch left untouched"}, nil
		}

		conflictBranch := branch + refsync.ConflictSuffix
		if err := s.Target.CreateBranch(ctx, git.CreateBranchRequest{
			Name: conflictBranch,
			Head: targetTip.String(),
		}); err != nil {
			return Result{}, fmt.Errorf("create conflict branch: %w", err)
		}
		s.MarkConflict(branch, conflictBranch)
		return Result{Branch: branch, Action: "diverged", Message: conflictBranch}, nil
	}
}

// evenWith reports whether targetTip matches the resolved tip of any
// branch already reconciled this call, and if so, which one.
func evenWith(targetTip git.Hash, tipOf map[string]git.Hash) (bool, string) {
	for name, tip := range tipOf {
		if tip == targetTip {
			return true, name
		}
	}
	return false, ""
}
