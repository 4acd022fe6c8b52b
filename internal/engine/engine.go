// Package engine implements the top-level orchestrator (C11): the single
// entry point that wires every other component into one sync run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.gitsync.dev/gitsync/internal/branchsync"
	"go.gitsync.dev/gitsync/internal/config"
	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/logscan"
	"go.gitsync.dev/gitsync/internal/maputil"
	"go.gitsync.dev/gitsync/internal/pathspec"
	"go.gitsync.dev/gitsync/internal/plugin"
	"go.gitsync.dev/gitsync/internal/progress"
	"go.gitsync.dev/gitsync/internal/refsync"
	"go.gitsync.dev/gitsync/internal/silog"
	"go.gitsync.dev/gitsync/internal/squash"
	"go.gitsync.dev/gitsync/internal/syncengine"
	"go.gitsync.dev/gitsync/internal/syncstate"
	"go.gitsync.dev/gitsync/internal/tagsync"
)

// RunConfig is the engine's run configuration, loaded by internal/config.
type RunConfig = config.RunConfig

// ConflictPair names a branch diverted to a conflict branch this run.
type ConflictPair = syncstate.ConflictPair

// Result summarizes a completed run.
type Result struct {
	New, Exists, Source, Target int
	Branches                    branchsync.Summary
	Tags                        tagsync.Summary
	Conflicts                   []ConflictPair

	// InitHash and InitHashKnown record the target's HEAD before this
	// run touched it, so a caller can render [ErrorRecovery]'s reset
	// hint after a failed run.
	InitHash      string
	InitHashKnown bool
}

// ErrConflict is returned by Run when the projection completed but one or
// more branches were diverted to conflict branches; the caller should
// render [ConflictSummary] using the returned Result.
var ErrConflict = errors.New("conflict")

// Run executes spec.md §4.11's full sequence against cfg, returning a
// summary of what changed or ErrConflict if manual resolution is needed.
func Run(ctx context.Context, cfg RunConfig, log *silog.Logger, plugins []*plugin.Plugin) (Result, error) {
	source, err := git.Open(ctx, cfg.SourceDir, git.OpenOptions{Log: log})
	if err != nil {
		return Result{}, fmt.Errorf("open source repository: %w", err)
	}
	target, err := git.Open(ctx, cfg.TargetDir, git.OpenOptions{Log: log})
	if err != nil {
		return Result{}, fmt.Errorf("open target repository: %w", err)
	}

	clean, err := target.IsClean(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("check target status: %w", err)
	}
	if !clean {
		return Result{}, errors.New(dirtyTargetMessage(cfg.TargetDir))
	}

	if _, err := refsync.List(ctx, target); err != nil {
		return Result{}, err
	}

	sourcePathspecs, targetPathspecs := subdirPathspecs(cfg)

	s := syncstate.New(source, target, sourcePathspecs, targetPathspecs, cfg, log)

	if _, err := plugin.Chain(plugins, plugin.HookPrepare, plugin.Context{
		Source: source.Root(),
		Target: target.Root(),
	}); err != nil {
		return Result{}, fmt.Errorf("prepare hook: %w", err)
	}

	if initHash, err := target.LastCommit(ctx, git.LastCommitOptions{All: true}); err == nil {
		s.InitHash = initHash
		s.InitHashKnown = true
	} else if !errors.Is(err, git.ErrNotExist) {
		return Result{}, fmt.Errorf("resolve target init hash: %w", err)
	}

	origBranch, err := target.CurrentBranch(ctx)
	if err == nil {
		s.OrigBranch = origBranch
		s.CurrentBranch = origBranch
		s.DefaultBranch = origBranch
	} else if !errors.Is(err, git.ErrDetachedHead) {
		return Result{}, fmt.Errorf("resolve target branch: %w", err)
	}

	defer teardown(ctx, s)

	if !cfg.DryRun {
		if err := deleteDevelopBranches(ctx, s); err != nil {
			return withInit(s, Result{}), err
		}
	}

	result, err := dispatch(ctx, s, sourcePathspecs, targetPathspecs, plugins)
	if err != nil {
		return withInit(s, result), err
	}

	if s.OrigBranch != "" && s.CurrentBranch != s.OrigBranch {
		if err := target.Checkout(ctx, s.OrigBranch); err != nil {
			return withInit(s, result), fmt.Errorf("restore original branch %s: %w", s.OrigBranch, err)
		}
		s.CurrentBranch = s.OrigBranch
	}

	result.Conflicts = s.ConflictBranches
	if len(s.ConflictBranches) > 0 {
		return withInit(s, result), ErrConflict
	}

	if !cfg.NoTags && !cfg.DryRun {
		tagSummary, err := tagsync.Reconcile(ctx, s)
		if err != nil {
			return withInit(s, result), fmt.Errorf("reconcile tags: %w", err)
		}
		result.Tags = tagSummary
	}

	return withInit(s, result), nil
}

func withInit(s *syncstate.State, r Result) Result {
	r.InitHash = s.InitHash.String()
	r.InitHashKnown = s.InitHashKnown
	return r
}

func subdirPathspecs(cfg RunConfig) (source, target []string) {
	sourceDir := pathspec.ParseDir(cfg.SourceSubdir)
	targetDir := pathspec.ParseDir(cfg.TargetSubdir)
	if sourceDir.IsRoot() && targetDir.IsRoot() && len(cfg.Filters) == 0 {
		return nil, nil
	}
	return pathspec.Translate(sourceDir, targetDir, cfg.Filters)
}

func dispatch(ctx context.Context, s *syncstate.State, sourcePathspecs, targetPathspecs []string, plugins []*plugin.Plugin) (Result, error) {
	branches, err := refsync.List(ctx, s.Source)
	if err != nil {
		return Result{}, fmt.Errorf("list source branches: %w", err)
	}
	branches, err = refsync.Filter(branches, s.Config.IncludeBranches, s.Config.ExcludeBranches)
	if err != nil {
		return Result{}, fmt.Errorf("filter source branches: %w", err)
	}

	if s.Config.Squash {
		return dispatchSquash(ctx, s, branches)
	}
	return dispatchCommits(ctx, s, branches, plugins)
}

func dispatchCommits(ctx context.Context, s *syncstate.State, branches []string, plugins []*plugin.Plugin) (Result, error) {
	var result Result

	sourceEntries, err := logscan.Scan(ctx, s.Source, logscan.Options{
		All:       true,
		After:     s.Config.After,
		Limit:     s.Config.MaxCount,
		Pathspecs: s.SourcePathspecs,
	}, nil, nil)
	if err != nil {
		return result, fmt.Errorf("scan source log: %w", err)
	}
	targetEntries, err := logscan.Scan(ctx, s.Target, logscan.Options{
		All:       true,
		Pathspecs: s.TargetPathspecs,
	}, s.Source, s.SourcePathspecs)
	if err != nil {
		return result, fmt.Errorf("scan target log: %w", err)
	}

	result.Source = len(sourceEntries)
	result.Target = len(targetEntries)

	targetValues := logscan.ValueSet(targetEntries)
	newEntries := logscan.New(sourceEntries, targetValues)
	result.New = len(newEntries)
	result.Exists = result.Source - result.New

	// spec.md §4.6.5: computed once per run, ahead of the apply loop,
	// since every patch-failure/merge-conflict decision this run makes
	// reads them rather than recomputing per commit.
	s.IsContains = result.Source-result.Target == result.New
	if len(sourceEntries) > 0 && len(newEntries) > 0 {
		// Both slices come back newest-first, so index 0 is each log's
		// most recent ("last" in chronological order) commit.
		s.IsHistorical = newEntries[0].Hash != sourceEntries[0].Hash
	}

	if s.Config.DryRun {
		return result, nil
	}

	prog := runProgress(s.Log)
	bar := prog.AddBar("sync", len(newEntries))

	// Entries come back newest-first from the graph walk; commits must
	// be projected oldest-first so a commit's parent is always already
	// on the target by the time it is replayed.
	for i := len(newEntries) - 1; i >= 0; i-- {
		if err := syncengine.Apply(ctx, s, newEntries[i], plugins); err != nil {
			return result, fmt.Errorf("apply commit %s: %w", newEntries[i].Hash.Short(), err)
		}
		bar.Increment()
	}
	prog.Wait()

	branchSummary, err := branchsync.Reconcile(ctx, s, branches)
	if err != nil {
		return result, fmt.Errorf("reconcile branches: %w", err)
	}
	result.Branches = branchSummary

	return result, nil
}

func dispatchSquash(ctx context.Context, s *syncstate.State, branches []string) (Result, error) {
	var result Result

	ordered := orderWithBaseFirst(branches, s.Config.SquashBaseBranch)
	targetBranches, err := s.Target.LocalBranches(ctx)
	if err != nil {
		return result, fmt.Errorf("list target branches: %w", err)
	}
	existsInTarget := make(map[string]bool, len(targetBranches))
	for _, b := range targetBranches {
		existsInTarget[b] = true
	}
	s.Log.Debugf("squash mode: target already has branches %v", maputil.Keys(existsInTarget))

	prog := runProgress(s.Log)
	bar := prog.AddBar("squash", len(ordered))
	defer prog.Wait()

	for _, branch := range ordered {
		sourceEntries, err := logscan.Scan(ctx, s.Source, logscan.Options{
			Refs:      []string{branch},
			After:     s.Config.After,
			Limit:     s.Config.MaxCount,
			Pathspecs: s.SourcePathspecs,
		}, nil, nil)
		if err != nil {
			return result, fmt.Errorf("scan source branch %s: %w", branch, err)
		}
		result.Source += len(sourceEntries)

		var newEntries []logscan.Entry
		if existsInTarget[branch] {
			targetEntries, err := logscan.Scan(ctx, s.Target, logscan.Options{
				Refs:      []string{branch},
				Pathspecs: s.TargetPathspecs,
			}, s.Source, s.SourcePathspecs)
			if err != nil {
				return result, fmt.Errorf("scan target branch %s: %w", branch, err)
			}
			result.Target += len(targetEntries)
			newEntries = logscan.New(sourceEntries, logscan.ValueSet(targetEntries))
		} else {
			newEntries = sourceEntries
		}
		result.New += len(newEntries)

		if s.Config.DryRun {
			bar.Increment()
			continue
		}

		if err := squash.ApplyBranch(ctx, s, branch, existsInTarget[branch], newEntries); err != nil {
			return result, fmt.Errorf("squash branch %s: %w", branch, err)
		}
		bar.Increment()
	}
	result.Exists = result.Source - result.New

	return result, nil
}

// runProgress renders a bar to stderr while the default "info" log
// level is in effect, and is a silent no-op at any other verbosity,
// matching internal/progress's own doc comment.
func runProgress(log *silog.Logger) *progress.Progress {
	if log.Level() != silog.LevelInfo {
		return progress.NewDisabled()
	}
	return progress.New(os.Stderr)
}

// orderWithBaseFirst moves base to the front of branches if present,
// since the base branch's target tip anchors every other branch's
// from-scratch squash commit.
func orderWithBaseFirst(branches []string, base string) []string {
	ordered := make([]string, 0, len(branches))
	for _, b := range branches {
		if b == base {
			ordered = append([]string{b}, ordered...)
		} else {
			ordered = append(ordered, b)
		}
	}
	return ordered
}

func deleteDevelopBranches(ctx context.Context, s *syncstate.State) error {
	if len(s.Config.DevelopBranches) == 0 {
		return nil
	}

	sourceBranches, err := refsync.List(ctx, s.Source)
	if err != nil {
		return fmt.Errorf("list source branches: %w", err)
	}
	matched, err := refsync.Filter(sourceBranches, s.Config.DevelopBranches, nil)
	if err != nil {
		return fmt.Errorf("filter develop branches: %w", err)
	}

	for _, name := range matched {
		if name == s.OrigBranch {
			return errors.New(developBranchCheckedOutMessage(name))
		}
		if err := s.Target.DeleteBranch(ctx, name, git.BranchDeleteOptions{Force: true}); err != nil {
			// The branch may simply not exist on the target yet;
			// that is not a reason to fail the run.
			continue
		}
	}

	if url, err := s.Target.RemoteURL(ctx, "origin"); err == nil {
		if err := s.Target.RemoveRemote(ctx, "origin"); err != nil {
			return fmt.Errorf("remove origin remote: %w", err)
		}
		if err := s.Target.AddRemote(ctx, "origin", url); err != nil {
			return fmt.Errorf("re-add origin remote: %w", err)
		}
	}

	return nil
}

func teardown(ctx context.Context, s *syncstate.State) {
	for _, branch := range s.TempBranches {
		_ = s.Target.DeleteBranch(ctx, branch, git.BranchDeleteOptions{Force: true})
	}
	if s.Worktree != nil {
		_ = s.Worktree.Remove(ctx)
	}
}
