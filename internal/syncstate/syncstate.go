// Package syncstate holds the sync engine's transient per-run state: the
// pieces of mutable bookkeeping spec.md's orchestrator, patch applier,
// conflict diverter, branch reconciler, and squash mode all read from and
// write to over the course of a single run.
//
// It is deliberately a leaf package with no dependency on the
// higher-level packages that use it, so those packages can all accept a
// *State without creating an import cycle between them.
package syncstate

import (
	"go.gitsync.dev/gitsync/internal/config"
	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/identity"
	"go.gitsync.dev/gitsync/internal/silog"
)

// ConflictPair names a branch that diverged during this run and the
// conflict branch it was parked on.
type ConflictPair struct {
	Branch         string
	ConflictBranch string
}

// State is the orchestrator's transient run state, per spec.md §3.
type State struct {
	Source, Target *git.Repository

	SourcePathspecs []string
	TargetPathspecs []string

	Oracle *identity.Oracle
	Config config.RunConfig
	Log    *silog.Logger

	// InitHash is the target's HEAD commit at the start of the run,
	// used to build the "reset to previous HEAD" recovery hint.
	// InitHashKnown is false when the target had no commits on entry.
	InitHash      git.Hash
	InitHashKnown bool

	CurrentBranch string
	DefaultBranch string
	OrigBranch    string

	IsContains   bool
	IsHistorical bool

	ConflictBranches []ConflictPair
	TempBranches     []string

	Worktree *git.Worktree

	// squashRanges maps a squash commit's target hash to the source
	// hashes it represents, so the identity oracle and tag reconciler
	// can resolve a commit that falls inside an already-squashed range.
	squashRanges map[git.Hash][]git.Hash

	firstFailureConsumed bool
}

// New constructs an empty State for source/target, wired to a fresh
// identity oracle scoped by targetPathspecs.
func New(source, target *git.Repository, sourcePathspecs, targetPathspecs []string, cfg config.RunConfig, log *silog.Logger) *State {
	s := &State{
		Source:          source,
		Target:          target,
		SourcePathspecs: sourcePathspecs,
		TargetPathspecs: targetPathspecs,
		Config:          cfg,
		Log:             log,
		squashRanges:    make(map[git.Hash][]git.Hash),
	}
	s.Oracle = identity.New(source, target, targetPathspecs, s.ResolveSquashRange)
	return s
}

// MarkConflict records that branch diverged onto conflictBranch.
func (s *State) MarkConflict(branch, conflictBranch string) {
	s.ConflictBranches = append(s.ConflictBranches, ConflictPair{
		Branch:         branch,
		ConflictBranch: conflictBranch,
	})
}

// AddTempBranch records a temporary branch for deletion during teardown.
func (s *State) AddTempBranch(name string) {
	s.TempBranches = append(s.TempBranches, name)
}

// ConsumeFirstFailure reports true exactly once per run: the first time
// it is called it returns true and remembers that it has fired; every
// subsequent call returns false. The patch applier uses this to decide
// whether a conflict should retry on a fresh conflict branch (first
// failure) or divert without retry (any failure thereafter).
func (s *State) ConsumeFirstFailure() bool {
	if s.firstFailureConsumed {
		return false
	}
	s.firstFailureConsumed = true
	return true
}

// RecordSquashRange remembers that targetHash represents sourceHashes,
// so a later identity lookup landing inside the range can still resolve.
func (s *State) RecordSquashRange(targetHash git.Hash, sourceHashes []git.Hash) {
	s.squashRanges[targetHash] = append(s.squashRanges[targetHash], sourceHashes...)
}

// ResolveSquashRange implements [identity.SquashLookup]: it reports the
// target hash of the squash range containing sourceHash, if any.
func (s *State) ResolveSquashRange(sourceHash git.Hash) (git.Hash, bool) {
	for target, sources := range s.squashRanges {
		for _, h := range sources {
			if h == sourceHash {
				return target, true
			}
		}
	}
	return "", false
}
