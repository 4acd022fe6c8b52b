// Package syncengine implements the sync engine's hot path: projecting
// one scanned source commit onto the target repository, either by
// replaying it as a patch, replaying it as a merge, or diverting it to a
// conflict branch when neither succeeds cleanly.
package syncengine

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/logscan"
	"go.gitsync.dev/gitsync/internal/plugin"
	"go.gitsync.dev/gitsync/internal/random"
	"go.gitsync.dev/gitsync/internal/syncstate"
)

// ErrConflict is the error every diverted run ultimately fails with,
// once every remaining commit has been projected onto a conflict
// branch. The caller owns emitting the bit-exact recovery messaging.
var ErrConflict = fmt.Errorf("conflict")

// Apply projects one scanned source commit onto the target repository,
// implementing spec.md §4.6 end to end.
func Apply(ctx context.Context, s *syncstate.State, entry logscan.Entry, plugins []*plugin.Plugin) error {
	hash := entry.Hash
	parents := entry.ParentHashes
	if len(parents) == 0 {
		parents = []git.Hash{git.EmptyTreeHash}
	}

	if err := selectBranch(ctx, s, entry); err != nil {
		return fmt.Errorf("select branch for %s: %w", hash.Short(), err)
	}

	var newHead git.Hash
	var err error
	switch {
	case len(parents) > 1:
		newHead, err = applyMerge(ctx, s, hash, parents, plugins)
	default:
		newHead, err = applyPatch(ctx, s, hash, parents[0], false, plugins)
	}
	if err != nil {
		return err
	}

	s.Oracle.Put(hash, newHead)
	return nil
}

// selectBranch implements spec.md §4.6 step 2: switching the target's
// checked-out branch before projecting a commit, based on whether it was
// drawn on the log's trunk column.
func selectBranch(ctx context.Context, s *syncstate.State, entry logscan.Entry) error {
	if !entry.OnCurrentLine {
		parentHash := git.Hash(git.EmptyTreeHash)
		if len(entry.ParentHashes) > 0 {
			parentHash = entry.ParentHashes[0]
		}

		targetParent, err := s.Oracle.Resolve(ctx, parentHash)
		if err != nil {
			return fmt.Errorf("resolve parent %s: %w", parentHash.Short(), err)
		}

		branch := "sync-" + targetParent.String()
		if err := s.Target.CreateOrResetBranch(ctx, branch, targetParent.String()); err != nil {
			return fmt.Errorf("create temp branch %s: %w", branch, err)
		}
		s.AddTempBranch(branch)
		s.CurrentBranch = branch
		return nil
	}

	if s.CurrentBranch != s.DefaultBranch {
		if err := s.Target.Checkout(ctx, s.DefaultBranch); err != nil {
			return fmt.Errorf("checkout %s: %w", s.DefaultBranch, err)
		}
		s.CurrentBranch = s.DefaultBranch
	}
	return nil
}

// applyMerge implements spec.md §4.6 step 3.
func applyMerge(ctx context.Context, s *syncstate.State, hash git.Hash, parents []git.Hash, plugins []*plugin.Plugin) (git.Hash, error) {
	resolved := make([]string, 0, len(parents))
	for _, p := range parents {
		target, err := s.Oracle.Resolve(ctx, p)
		if err != nil {
			return "", fmt.Errorf("resolve merge parent %s: %w", p.Short(), err)
		}
		resolved = append(resolved, target.String())
	}

	// A merge failure here is routine (conflicting hunks) and is
	// resolved by the shim below, not propagated.
	_ = s.Target.Merge(ctx, resolved...)

	if err := conflictShim(ctx, s, hash, parents); err != nil {
		return "", err
	}

	return commitStep(ctx, s, hash, plugins)
}

// applyPatch implements spec.md §4.6 step 4. retry is true when this
// call is itself the bounded retry after a first-failure divert.
func applyPatch(ctx context.Context, s *syncstate.State, hash, parent git.Hash, retry bool, plugins []*plugin.Plugin) (git.Hash, error) {
	patch, err := s.Source.CommitPatch(ctx, hash, s.SourcePathspecs...)
	if err != nil {
		return "", fmt.Errorf("build patch for %s: %w", hash.Short(), err)
	}

	applyErr := s.Target.Apply(ctx, git.ApplyRequest{
		Patch:     patch,
		Strip:     pathDepth(s.Config.SourceSubdir),
		Directory: applyDirectory(s.Config.TargetSubdir),
	})
	if applyErr == nil {
		return commitStep(ctx, s, hash, plugins)
	}

	return resolvePatchFailure(ctx, s, hash, parent, plugins, retry)
}

// resolvePatchFailure implements spec.md §4.6.5's conflict resolution
// shim for the single-parent patch path.
func resolvePatchFailure(ctx context.Context, s *syncstate.State, hash, parent git.Hash, plugins []*plugin.Plugin, retry bool) (git.Hash, error) {
	parents := []git.Hash{parent}

	switch {
	case s.IsContains && s.IsHistorical:
		if err := divert(ctx, s, hash); err != nil {
			return "", err
		}
		return commitAfterOverwrite(ctx, s, hash, parents, plugins)

	case s.IsContains:
		if err := overwrite(ctx, s, hash, parents); err != nil {
			return "", fmt.Errorf("worktree overwrite %s: %w", hash.Short(), err)
		}
		return commitStep(ctx, s, hash, plugins)

	case !retry && s.ConsumeFirstFailure():
		if err := divert(ctx, s, hash); err != nil {
			return "", err
		}
		return applyPatch(ctx, s, hash, parent, true, plugins)

	default:
		if err := divert(ctx, s, hash); err != nil {
			return "", err
		}
		return commitAfterOverwrite(ctx, s, hash, parents, plugins)
	}
}

// commitAfterOverwrite lands hash's changes via worktree overwrite once
// diversion has placed the target on a fresh conflict branch, since the
// patch that failed to apply is no longer expected to apply cleanly
// there either.
func commitAfterOverwrite(ctx context.Context, s *syncstate.State, hash git.Hash, parents []git.Hash, plugins []*plugin.Plugin) (git.Hash, error) {
	if err := overwrite(ctx, s, hash, parents); err != nil {
		return "", fmt.Errorf("worktree overwrite %s: %w", hash.Short(), err)
	}
	return commitStep(ctx, s, hash, plugins)
}

// conflictShim implements spec.md §4.6.5 for the merge path: overwrite
// when the source is a strict superset of the target and this is not a
// historical sync, otherwise divert.
func conflictShim(ctx context.Context, s *syncstate.State, hash git.Hash, parents []git.Hash) error {
	if s.IsContains && !s.IsHistorical {
		return overwrite(ctx, s, hash, parents)
	}
	return divert(ctx, s, hash)
}

// overwrite implements spec.md §4.6.7: replacing the target tree's
// changed files wholesale from an auxiliary worktree of the source,
// rather than trusting a three-way patch apply. parents lists hash's
// source-side parents (the empty-tree sentinel for a root commit).
func overwrite(ctx context.Context, s *syncstate.State, hash git.Hash, parents []git.Hash) error {
	var changed []git.ChangedFile
	for _, parent := range parents {
		files, err := s.Source.DiffTreeNameStatus(ctx, parent, hash, s.SourcePathspecs...)
		if err != nil {
			return fmt.Errorf("diff-tree %s..%s: %w", parent.Short(), hash.Short(), err)
		}
		changed = append(changed, files...)
	}

	wt, err := auxiliaryWorktree(ctx, s)
	if err != nil {
		return err
	}

	var deletions, updates []git.ChangedFile
	for _, f := range changed {
		if f.Status == "D" {
			deletions = append(deletions, f)
		} else {
			updates = append(updates, f)
		}
	}

	// Deletions land first, so a rename (old path deleted, new path
	// added) does not clobber the renamed file's target-side copy.
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
		if err := wt.CheckoutPaths(ctx, hash.String(), updatePaths...); err != nil {
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

	if err := s.Target.AddPaths(ctx, stagePaths...); err != nil {
		return fmt.Errorf("stage overwritten paths: %w", err)
	}
	return nil
}

// auxiliaryWorktree lazily creates the run's single auxiliary worktree
// of the source repository, reusing it across every overwrite call. The
// directory name carries a random suffix so two runs against the same
// source clone (e.g. a retried CI job that did not clean up) never
// collide on a stale worktree left behind by the previous one.
func auxiliaryWorktree(ctx context.Context, s *syncstate.State) (*git.Worktree, error) {
	if s.Worktree != nil {
		return s.Worktree, nil
	}
	dir := s.Source.GitDir() + "/gitsync-worktree-" + random.Alnum(8)
	wt, err := s.Source.AddWorktree(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("create auxiliary worktree: %w", err)
	}
	s.Worktree = wt
	return wt, nil
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

// rehome strips sourceSubdir's prefix from path and rejoins it against
// targetSubdir, reporting "" if path does not fall under sourceSubdir.
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

// pathDepth reports the patch strip depth (git apply -p<N>) for a
// subdirectory: the count of its path segments, or 1 at the root.
func pathDepth(dir string) int {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return 1
	}
	return strings.Count(dir, "/") + 1
}

// applyDirectory reports the --directory argument for `git apply`,
// omitted at the root.
func applyDirectory(dir string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return ""
	}
	return dir
}

// commitStep implements spec.md §4.6.6.
func commitStep(ctx context.Context, s *syncstate.State, sourceHash git.Hash, plugins []*plugin.Plugin) (git.Hash, error) {
	if err := s.Target.AddTracked(ctx); err != nil {
		return "", fmt.Errorf("stage changes: %w", err)
	}

	if _, err := plugin.Chain(plugins, plugin.HookBeforeCommit, plugin.Context{
		Source:     s.Source.Root(),
		Target:     s.Target.Root(),
		TargetHash: sourceHash.String(),
	}); err != nil {
		return "", fmt.Errorf("beforeCommit hook: %w", err)
	}

	info, err := s.Source.CommitInfo(ctx, sourceHash)
	if err != nil {
		return "", fmt.Errorf("read source commit metadata: %w", err)
	}

	req := git.CommitRequest{
		Message:    info.Body,
		All:        true,
		AllowEmpty: true,
	}
	if s.Config.PreserveCommit {
		req.Author = &git.Signature{Name: info.AuthorName, Email: info.AuthorEmail, Time: info.AuthorDate}
		req.Committer = &git.Signature{Name: info.CommitterName, Email: info.CommitterEmail, Time: info.CommitterDate}
	}
	if update, ok := os.LookupEnv("GITSYNC_UPDATE"); ok {
		req.Env = append(req.Env, "GITSYNC_UPDATE="+update)
	}

	if err := s.Target.Commit(ctx, req); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	head, err := s.Target.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve new HEAD: %w", err)
	}
	return head, nil
}
