// Package tagsync reconciles the target repository's tags against the
// source's, applying include/exclude globs and prefix rewriting.
package tagsync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/refsync"
	"go.gitsync.dev/gitsync/internal/syncstate"
)

// Result is one tag's reconciliation outcome.
type Result struct {
	Name    string
	Action  string // "created", "skipped"
	Message string
}

// Summary totals the per-tag outcomes of a Reconcile call.
type Summary struct {
	Results []Result
}

// Reconcile implements spec.md §4.9: enumerate the source's tags, diff
// them by name against the target's existing tags, apply include/exclude
// and prefix transforms, then create every retained, not-yet-present tag
// on the target at its oracle-resolved (or squash-range-resolved) commit.
func Reconcile(ctx context.Context, s *syncstate.State) (Summary, error) {
	var summary Summary

	sourceTags, err := s.Source.ListTags(ctx)
	if err != nil {
		return summary, fmt.Errorf("list source tags: %w", err)
	}
	targetTags, err := s.Target.ListTags(ctx)
	if err != nil {
		return summary, fmt.Errorf("list target tags: %w", err)
	}
	haveInTarget := make(map[string]bool, len(targetTags))
	for _, t := range targetTags {
		haveInTarget[t.Name] = true
	}

	names := make([]string, 0, len(sourceTags))
	byName := make(map[string]git.TagRef, len(sourceTags))
	for _, t := range sourceTags {
		names = append(names, t.Name)
		byName[t.Name] = t
	}

	include := append([]string(nil), s.Config.IncludeTags...)
	if s.Config.RemoveTagPrefix != "" {
		// A configured removeTagPrefix implicitly widens the include
		// set to every tag that carries it, even if not otherwise
		// matched by an explicit include glob.
		include = append(include, s.Config.RemoveTagPrefix+"*")
	}

	kept, err := refsync.Filter(names, include, s.Config.ExcludeTags)
	if err != nil {
		return summary, fmt.Errorf("filter tags: %w", err)
	}

	for _, name := range kept {
		tag := byName[name]
		rewritten := rewriteName(name, s.Config.RemoveTagPrefix, s.Config.AddTagPrefix)

		if haveInTarget[rewritten] {
			summary.Results = append(summary.Results, Result{Name: rewritten, Action: "skipped", Message: "already exists"})
			continue
		}

		targetHash, err := s.Oracle.Resolve(ctx, tag.Hash)
		if err != nil {
			if !errors.Is(err, git.ErrNotExist) {
				return summary, fmt.Errorf("resolve tag %s: %w", name, err)
			}
			if resolved, ok := s.ResolveSquashRange(tag.Hash); ok {
				targetHash = resolved
			} else {
				summary.Results = append(summary.Results, Result{
					Name:    rewritten,
					Action:  "skipped",
					Message: "commit for tag " + name + " not found in target repository",
				})
				continue
			}
		}

		var annotation string
		if tag.Annotated {
			annotation, err = s.Source.TagAnnotation(ctx, name)
			if err != nil {
				return summary, fmt.Errorf("read annotation for tag %s: %w", name, err)
			}
		}

		if err := s.Target.CreateTag(ctx, git.CreateTagRequest{
			Name:       rewritten,
			Hash:       targetHash,
			Annotation: annotation,
		}); err != nil {
			return summary, fmt.Errorf("create tag %s: %w", rewritten, err)
		}
		summary.Results = append(summary.Results, Result{Name: rewritten, Action: "created"})
	}

	return summary, nil
}

// rewriteName applies the configured remove/add tag-prefix transform.
func rewriteName(name, removePrefix, addPrefix string) string {
	if removePrefix != "" {
		name = strings.TrimPrefix(name, removePrefix)
	}
	return addPrefix + name
}
