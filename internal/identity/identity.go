// Package identity implements the correspondence between a source commit
// and its projected target commit, resolved by content-and-time search
// rather than by any stored mapping.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/logscan"
)

// SquashLookup resolves a source hash that falls in the middle of an
// already-squashed range to the target hash representing that range.
// Implemented by the squash package; nil when squash mode is inactive.
type SquashLookup func(sourceHash git.Hash) (targetHash git.Hash, ok bool)

// Oracle resolves source commit hashes to their target counterpart.
// Resolutions are cached and, per the engine's invariants, never
// rewritten once set.
type Oracle struct {
	source *git.Repository
	target *git.Repository

	targetPathspecs []string
	squash          SquashLookup

	cache map[git.Hash]git.Hash
}

// New constructs an Oracle. targetPathspecs scopes every search query
// against the target repository. squash may be nil.
func New(source, target *git.Repository, targetPathspecs []string, squash SquashLookup) *Oracle {
	return &Oracle{
		source:          source,
		target:          target,
		targetPathspecs: targetPathspecs,
		squash:          squash,
		cache:           make(map[git.Hash]git.Hash),
	}
}

// Put records a known resolution directly, for commits the caller has
// itself just projected.
func (o *Oracle) Put(sourceHash, targetHash git.Hash) {
	if _, ok := o.cache[sourceHash]; !ok {
		o.cache[sourceHash] = targetHash
	}
}

// Resolve maps sourceHash to its target counterpart.
//
// It first checks the cache, then the message itself (a squash marker
// resolves immediately to its recorded end hash), then the primary
// date-and-grep search, then the squash-range lookup if that search found
// nothing, then a date-relaxed, author-timestamp-filtered fallback, and
// the squash-range lookup once more if the fallback matches nothing. It returns
// [git.ErrNotExist] if no counterpart can be found, or an error if the
// fallback search itself is ambiguous.
func (o *Oracle) Resolve(ctx context.Context, sourceHash git.Hash) (git.Hash, error) {
	if target, ok := o.cache[sourceHash]; ok {
		return target, nil
	}

	committerTS, authorTS, body, err := o.source.CommitTimestamps(ctx, sourceHash)
	if err != nil {
		return "", fmt.Errorf("read source commit %s: %w", sourceHash.Short(), err)
	}
	firstLine, _, _ := strings.Cut(body, "\n")

	if _, end, ok := logscan.ParseSquashSubject(firstLine); ok {
		o.cache[sourceHash] = end
		return end, nil
	}

	at := time.Unix(committerTS, 0).UTC()
	results, err := o.target.SearchCommits(ctx, git.SearchCommitsOptions{
		After:     at,
		Before:    at,
		Grep:      firstLine,
		Pathspecs: o.targetPathspecs,
	})
	if err != nil {
		return "", fmt.Errorf("search target: %w", err)
	}

	if len(results) == 1 {
		for hash := range results {
			o.cache[sourceHash] = hash
			return hash, nil
		}
	}

	if len(results) == 0 {
		if o.squash != nil {
			if target, ok := o.squash(sourceHash); ok {
				o.cache[sourceHash] = target
				return target, nil
			}
		}
	}

	// Fallback: drop the date constraint, filter by author timestamp
	// instead. Rebase rewrites committer dates, git log short-circuits
	// its date-ordered walk when history is out of order, and rebase
	// can stamp multiple commits with an identical committer second —
	// so the primary query's date bounds are unreliable on their own.
	fallback, err := o.target.SearchCommits(ctx, git.SearchCommitsOptions{
		Grep:      firstLine,
		Pathspecs: o.targetPathspecs,
	})
	if err != nil {
		return "", fmt.Errorf("search target (fallback): %w", err)
	}

	var matches []git.Hash
	for hash, ts := range fallback {
		if ts == authorTS {
			matches = append(matches, hash)
		}
	}

	switch len(matches) {
	case 0:
		if o.squash != nil {
			if target, ok := o.squash(sourceHash); ok {
				o.cache[sourceHash] = target
				return target, nil
			}
		}
		return "", git.ErrNotExist
	case 1:
		o.cache[sourceHash] = matches[0]
		return matches[0], nil
	default:
		return "", fmt.Errorf(
			"Expected to return one commit, but returned more than one commit with the same message in the same second: %v",
			matches,
		)
	}
}
