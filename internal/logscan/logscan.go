// Package logscan walks a repository's commit graph and assembles the
// ordered, path-filtered log entries the sync engine compares between
// source and target.
package logscan

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.gitsync.dev/gitsync/internal/git"
)

// squashSubjectPattern matches the subject of a squash-mode commit,
// capturing the source-side start and end hashes it represents.
var squashSubjectPattern = regexp.MustCompile(`^chore\(sync\): squash commits from (\S+) to (\S+)$`)

// Entry pairs a scanned commit with its log key/value, the
// representation the engine diffs source against target on.
type Entry struct {
	git.CommitRecord

	// Key is "#<hash> <space-separated parents>".
	Key string

	// Value is "<author_ts> <subject>". Two entries on opposite sides
	// of a sync represent the same logical commit iff their Values are
	// equal — hashes necessarily differ once a commit is projected.
	Value string
}

func newEntry(rec git.CommitRecord) Entry {
	parents := make([]string, len(rec.ParentHashes))
	for i, p := range rec.ParentHashes {
		parents[i] = p.String()
	}

	key := "#" + rec.Hash.String()
	if len(parents) > 0 {
		key += " " + strings.Join(parents, " ")
	}

	return Entry{
		CommitRecord: rec,
		Key:          key,
		Value:        strconv.FormatInt(rec.AuthorTS, 10) + " " + rec.Subject,
	}
}

// ParseSquashSubject reports the start/end hash pair encoded in a
// squash-marker commit subject, and whether subject is one.
func ParseSquashSubject(subject string) (start, end git.Hash, ok bool) {
	m := squashSubjectPattern.FindStringSubmatch(subject)
	if m == nil {
		return "", "", false
	}
	return git.Hash(m[1]), git.Hash(m[2]), true
}

// Options scopes a Scan call.
type Options struct {
	After     time.Time
	Limit     int
	Refs      []string
	All       bool
	Pathspecs []string

	// OnFirstHash, if set, is invoked once with the hash of the first
	// entry produced by the top-level graph walk (before squash
	// expansion), letting the orchestrator capture the log's leading
	// commit for branch-selection bookkeeping.
	OnFirstHash func(git.Hash)
}

// Scan walks repo's commit graph and returns one Entry per commit in
// scope, expanding any squash-marker commit into the corresponding range
// of the other repository's log.
//
// other is the opposite-side repository consulted when a squash marker
// is encountered; otherPathspecs scopes that recursive scan. Both may be
// nil/empty when the caller knows no squash markers are possible (e.g.
// it is itself scanning the "other" side of an expansion).
func Scan(ctx context.Context, repo *git.Repository, opts Options, other *git.Repository, otherPathspecs []string) ([]Entry, error) {
	records, err := repo.LogGraph(ctx, git.LogGraphOptions{
		After:     opts.After,
		Limit:     opts.Limit,
		Refs:      opts.Refs,
		All:       opts.All,
		Pathspecs: opts.Pathspecs,
	})
	if err != nil {
		return nil, fmt.Errorf("log graph: %w", err)
	}

	if opts.OnFirstHash != nil && len(records) > 0 {
		opts.OnFirstHash(records[0].Hash)
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		if start, end, ok := ParseSquashSubject(rec.Subject); ok && other != nil {
			expanded, err := Scan(ctx, other, Options{
				Refs:      []string{start.String() + ".." + end.String()},
				Pathspecs: otherPathspecs,
			}, nil, nil)
			if err != nil {
				return nil, fmt.Errorf("expand squash marker %s: %w", rec.Hash.Short(), err)
			}
			entries = append(entries, expanded...)
			continue
		}
		entries = append(entries, newEntry(rec))
	}

	return entries, nil
}

// ValueSet indexes entries by Value, for membership tests against an
// opposing side's scan.
func ValueSet(entries []Entry) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e.Value] = true
	}
	return set
}

// New returns the entries in source whose Value does not appear anywhere
// in targetValues — the commits the engine must still project. Order is
// preserved from source.
func New(source []Entry, targetValues map[string]bool) []Entry {
	var out []Entry
	for _, e := range source {
		if !targetValues[e.Value] {
			out = append(out, e)
		}
	}
	return out
}
