// Package squash implements the engine's squash-mode projection (C10):
// an alternative to the commit-by-commit replay in internal/syncengine
// that collapses each new range of source commits into a single target
// commit.
package squash

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/logscan"
	"go.gitsync.dev/gitsync/internal/random"
	"go.gitsync.dev/gitsync/internal/syncstate"
)

// subject formats the squash-marker commit message, parseable by
// [logscan.ParseSquashSubject].
func subject(start, end git.Hash) string {
	return fmt.Sprintf("chore(sync): squash commits from %s to %s", start, end)
}

// ApplyBranch implements spec.md §4.10 for one source branch: creating it
// on the target from the squash base's tip if absent, or appending one
// squash commit covering every new source commit if present. entries is
// the branch's scanned log with every commit already known to the target
// filtered out (as produced by logscan.New), newest first.
func ApplyBranch(ctx context.Context, s *syncstate.State, branch string, branchExists bool, entries []logscan.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	end := entries[0].Hash
	start := rangeStart(entries)

	if !branchExists {
		base := git.EmptyTreeHash
		if branch != s.Config.SquashBaseBranch {
			tip, err := s.Target.PeelToCommit(ctx, s.Config.SquashBaseBranch)
			if err != nil {
				return fmt.Errorf("resolve squash base branch %s: %w", s.Config.SquashBaseBranch, err)
			}
			base = tip
		}
		if err := s.Target.CreateAndCheckoutBranch(ctx, git.CreateBranchRequest{
			Name: branch,
			Head: base.String(),
		}); err != nil {
			return fmt.Errorf("create branch %s: %w", branch, err)
		}
		s.CurrentBranch = branch
		return emit(ctx, s, start, end)
	}

	if s.CurrentBranch != branch {
		if err := s.Target.Checkout(ctx, branch); err != nil {
			return fmt.Errorf("checkout %s: %w", branch, err)
		}
		s.CurrentBranch = branch
	}
	return emit(ctx, s, start, end)
}

// rangeStart reports the oldest source hash among entries' parents,
// falling back to the empty tree for a branch whose new commits include
// its root.
func rangeStart(entries []logscan.Entry) git.Hash {
	oldest := entries[len(entries)-1]
	if len(oldest.ParentHashes) == 0 {
		return git.EmptyTreeHash
	}
	return oldest.ParentHashes[0]
}

// emit implements the squash commit construction from spec.md §4.10:
// diff start..end, apply as a patch with the same strip/directory rules
// as the single-commit path, falling back to a worktree overwrite, then
// commit with --allow-empty and record the squash range.
func emit(ctx context.Context, s *syncstate.State, start, end git.Hash) error {
	patch, err := s.Source.DiffStat(ctx, start.String(), end.String(), s.SourcePathspecs...)
	if err != nil {
		return fmt.Errorf("diff %s..%s: %w", start.Short(), end.Short(), err)
	}

	applyErr := s.Target.Apply(ctx, git.ApplyRequest{
		Patch:     patch,
		Strip:     pathDepth(s.Config.SourceSubdir),
		Directory: applyDirectory(s.Config.TargetSubdir),
	})
	if applyErr != nil {
		if err := overwriteRange(ctx, s, start, end); err != nil {
			return fmt.Errorf("worktree overwrite %s..%s: %w", start.Short(), end.Short(), err)
		}
	}

	if err := s.Target.AddTracked(ctx); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	if err := s.Target.Commit(ctx, git.CommitRequest{
		Message:    subject(start, end),
		All:        true,
		AllowEmpty: true,
	}); err != nil {
		return fmt.Errorf("commit squash range: %w", err)
	}

	head, err := s.Target.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return fmt.Errorf("resolve new HEAD: %w", err)
	}

	sourceHashes, err := collectSourceHashes(ctx, s, start, end)
	if err != nil {
		return err
	}
	s.RecordSquashRange(head, sourceHashes)
	s.Oracle.Put(end, head)
	return nil
}

// collectSourceHashes enumerates every commit hash in (start, end] on the
// source, so the recorded squash range lets later identity lookups and
// tag resolution land inside it.
func collectSourceHashes(ctx context.Context, s *syncstate.State, start, end git.Hash) ([]git.Hash, error) {
	records, err := s.Source.LogGraph(ctx, git.LogGraphOptions{
		Refs: []string{start.String() + ".." + end.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("log graph %s..%s: %w", start.Short(), end.Short(), err)
	}
	hashes := make([]git.Hash, len(records))
	for i, rec := range records {
		hashes[i] = rec.Hash
	}
	return hashes, nil
}

// overwriteRange replaces the target's files wholesale from an auxiliary
// worktree of the source checked out at end, diffing the whole start..end
// range rather than a single commit's parent.
func overwriteRange(ctx context.Context, s *syncstate.State, start, end git.Hash) error {
	changed, err := s.Source.DiffTreeNameStatus(ctx, start, end, s.SourcePathspecs...)
	if err != nil {
		return fmt.Errorf("diff-tree %s..%s: %w", start.Short(), end.Short(), err)
	}

	wt := s.Worktree
	if wt == nil {
		wt, err = s.Source.AddWorktree(ctx, s.Source.GitDir()+"/gitsync-worktree-"+random.Alnum(8))
		if err != nil {
			return fmt.Errorf("create auxiliary worktree: %w", err)
		}
		s.Worktree = wt
	}

	var deletions, updates []git.ChangedFile
	for _, f := range changed {
		if f.Status == "D" {
			deletions = append(deletions, f)
		} else {
			updates = append(updates, f)
		}
	}

	var stagePaths []string
	for _, f := range deletions {
		if targetPath := rehome(f.Path, s.Config.SourceSubdir, s.Config.TargetSubdir); targetPath != "" {
			_ = os.Remove(s.Target.Root() + "/" + targetPath)
			stagePaths = append(stagePaths, targetPath)
		}
	}

	if len(updates) > 0 {
		updatePaths := make([]string, len(updates))
		for i, f := range updates {
			updatePaths[i] = f.Path
		}
		if err := wt.CheckoutPaths(ctx, end.String(), updatePaths...); err != nil {
			return fmt.Errorf("checkout paths in worktree: %w", err)
		}
	}

	for _, f := range updates {
		targetPath := rehome(f.Path, s.Config.SourceSubdir, s.Config.TargetSubdir)
		if targetPath == "" {
			continue
		}
		if err := moveIntoTarget(wt.Dir(), f.Path, s.Target.Root(), targetPath); err != nil {
			return err
		}
		stagePaths = append(stagePaths, targetPath)
	}

	return s.Target.AddPaths(ctx, stagePaths...)
}

func moveIntoTarget(worktreeDir, sourcePath, targetRoot, targetPath string) error {
	fullTargetPath := targetRoot + "/" + targetPath
	if err := os.MkdirAll(parentDir(fullTargetPath), 0o755); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", targetPath, err)
	}
	if err := os.Rename(worktreeDir+"/"+sourcePath, fullTargetPath); err != nil {
		return fmt.Errorf("move %s into target: %w", sourcePath, err)
	}
	return nil
}

func parentDir(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func rehome(path, sourceSubdir, targetSubdir string) string {
	sourcePrefix := normalizeSubdir(sourceSubdir)
	targetPrefix := normalizeSubdir(targetSubdir)

	rel := strings.TrimPrefix(path, sourcePrefix)
	if rel == path && sourcePrefix != "" {
		return ""
	}
	return targetPrefix + rel
}

func normalizeSubdir(dir string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return ""
	}
	return dir + "/"
}

func pathDepth(dir string) int {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return 1
	}
	return strings.Count(dir, "/") + 1
}

func applyDirectory(dir string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return ""
	}
	return dir
}
