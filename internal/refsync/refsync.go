// Package refsync enumerates and filters a repository's branches ahead
// of commit projection and branch reconciliation.
package refsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"go.gitsync.dev/gitsync/internal/git"
)

// ConflictSuffix is the suffix that marks a branch as parking diverged
// history for manual reconciliation. Its presence on any pre-existing
// branch name is a fatal error: a sync never runs against a repository
// that already carries unresolved conflicts.
const ConflictSuffix = "-gitsync-conflict"

// List enumerates the local and remote-tracking branches of repo,
// naming every "origin/X" by its bare projection name "X" (and dropping
// it when a local "X" already exists), and rejects the repository
// outright if it carries any branch ending in [ConflictSuffix].
func List(ctx context.Context, repo *git.Repository) ([]string, error) {
	all, err := repo.AllBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	local := make(map[string]bool, len(all))
	for _, name := range all {
		if !strings.HasPrefix(name, "origin/") {
			local[name] = true
		}
	}

	var conflicted []string
	names := make([]string, 0, len(all))
	seen := make(map[string]bool, len(all))
	for _, name := range all {
		rewritten := strings.TrimPrefix(name, "origin/")
		if rewritten != name && local[rewritten] {
			// A local branch shadows this remote-tracking ref.
			continue
		}
		if strings.HasSuffix(rewritten, ConflictSuffix) {
			conflicted = append(conflicted, rewritten)
		}
		if seen[rewritten] {
			continue
		}
		seen[rewritten] = true
		names = append(names, rewritten)
	}

	if len(conflicted) > 0 {
		return nil, fmt.Errorf(
			"Repository %q has unmerged conflict branches %q, please merge or remove branches before syncing.",
			repo.Root(), strings.Join(conflicted, ", "),
		)
	}

	return names, nil
}

// Filter keeps only the names matching at least one include glob and no
// exclude glob. An empty include list is treated as "**" (match
// everything).
func Filter(names []string, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = []string{"**"}
	}

	includeGlobs, err := compileAll(include)
	if err != nil {
		return nil, fmt.Errorf("compile include globs: %w", err)
	}
	excludeGlobs, err := compileAll(exclude)
	if err != nil {
		return nil, fmt.Errorf("compile exclude globs: %w", err)
	}

	var kept []string
	for _, name := range names {
		if !matchesAny(includeGlobs, name) {
			continue
		}
		if matchesAny(excludeGlobs, name) {
			continue
		}
		kept = append(kept, name)
	}
	return kept, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
