package git

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CommitRecord is one row of a graph-walked commit log.
type CommitRecord struct {
	// Hash of the commit.
	Hash Hash

	// ParentHashes lists the commit's parents in the order git reports
	// them. A root commit has no parents.
	ParentHashes []Hash

	// AuthorTS is the author timestamp, seconds since the Unix epoch.
	AuthorTS int64

	// Subject is the first line of the commit message.
	Subject string

	// OnCurrentLine reports whether this commit was drawn on the
	// trunk column of the graph (a leading "*" with no preceding
	// graph characters), as opposed to a branched-off line.
	OnCurrentLine bool
}

// LogGraphOptions scopes a LogGraph invocation.
type LogGraphOptions struct {
	// After restricts the walk to commits more recent than this time.
	After time.Time

	// Limit caps the number of commits returned, equivalent to -N.
	// Zero means unlimited.
	Limit int

	// Refs restricts the walk to commits reachable from these
	// revisions. Ignored if All is set.
	Refs []string

	// All walks every ref, equivalent to --all.
	All bool

	// Pathspecs, if non-empty, scopes the walk to these paths.
	Pathspecs []string
}

// LogGraph walks the commit graph and returns one CommitRecord per commit
// git draws on the graph, in the order git emits them (newest first).
//
// It is the engine's sole window into topology: parent lists, author
// timestamps, subjects, and trunk/branch placement for every commit in
// scope.
func (r *Repository) LogGraph(ctx context.Context, opts LogGraphOptions) ([]CommitRecord, error) {
	args := []string{
		"log",
		"--graph",
		"--format=#%H %P-%at %s",
		"--full-history",
		"--simplify-merges",
	}
	if !opts.After.IsZero() {
		args = append(args, "--after="+opts.After.Format(time.RFC3339))
	}
	if opts.Limit > 0 {
		args = append(args, "-"+strconv.Itoa(opts.Limit))
	}
	if opts.All {
		args = append(args, "--all")
	} else {
		args = append(args, opts.Refs...)
	}
	if len(opts.Pathspecs) > 0 {
		args = append(args, "--")
		args = append(args, opts.Pathspecs...)
	}

	cmd := r.gitCmd(ctx, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start git log: %w", err)
	}

	var records []CommitRecord
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		rec, ok, parseErr := parseLogGraphLine(scanner.Text())
		if parseErr != nil {
			return nil, parseErr
		}
		if ok {
			records = append(records, rec)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}

	return records, nil
}

// parseLogGraphLine parses one line of `--graph --format=#%H %P-%at %s`
// output. ok is false for graph continuation lines that carry no commit.
func parseLogGraphLine(line string) (rec CommitRecord, ok bool, err error) {
	star := strings.IndexByte(line, '*')
	if star < 0 {
		return CommitRecord{}, false, nil
	}

	hashIdx := strings.IndexByte(line, '#')
	if hashIdx < 0 {
		return CommitRecord{}, false, nil
	}
	payload := line[hashIdx+1:]

	left, right, ok := strings.Cut(payload, "-")
	if !ok {
		return CommitRecord{}, false, fmt.Errorf("malformed log line: %q", line)
	}

	fields := strings.Fields(left)
	if len(fields) == 0 {
		return CommitRecord{}, false, fmt.Errorf("malformed log line: %q", line)
	}

	rec.Hash = Hash(fields[0])
	for _, p := range fields[1:] {
		rec.ParentHashes = append(rec.ParentHashes, Hash(p))
	}
	rec.OnCurrentLine = star == 0

	tsStr, subject, ok := strings.Cut(right, " ")
	if !ok {
		tsStr, subject = right, ""
	}
	ts, parseErr := strconv.ParseInt(tsStr, 10, 64)
	if parseErr != nil {
		return CommitRecord{}, false, fmt.Errorf("malformed log line: %q: %w", line, parseErr)
	}
	rec.AuthorTS = ts
	rec.Subject = subject

	return rec, true, nil
}

// CommitTimestamps reports the committer timestamp, author timestamp, and
// full message body of hash, equivalent to `git log --format=%ct %at %B -1
// <hash>`.
func (r *Repository) CommitTimestamps(ctx context.Context, hash Hash) (committerTS, authorTS int64, body string, err error) {
	out, err := r.gitCmd(ctx, "log", "--format=%ct %at %B", "-1", hash.String()).
		OutputString(r.exec)
	if err != nil {
		return 0, 0, "", fmt.Errorf("git log: %w", err)
	}

	// The subject line follows the two timestamps on the first line.
	first, rest, _ := strings.Cut(out, "\n")
	fields := strings.SplitN(first, " ", 3)
	if len(fields) < 2 {
		return 0, 0, "", fmt.Errorf("unexpected output from git log: %q", out)
	}
	var subject string
	if len(fields) == 3 {
		subject = fields[2]
	}

	committerTS, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("parse committer ts: %w", err)
	}
	authorTS, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("parse author ts: %w", err)
	}

	return committerTS, authorTS, strings.TrimSpace(subject + "\n" + rest), nil
}

// PriorCommit reports the committer timestamp and full message body of
// the commit immediately before start on the given pathspecs, equivalent
// to `git log --skip=1 --format=%ct %B -1 <start> [-- paths]`. It returns
// [ErrNotExist] if start has no prior commit in scope.
func (r *Repository) PriorCommit(ctx context.Context, start string, pathspecs ...string) (committerTS int64, body string, err error) {
	args := []string{"log", "--skip=1", "--format=%ct %B", "-1", start}
	if len(pathspecs) > 0 {
		args = append(args, "--")
		args = append(args, pathspecs...)
	}

	out, err := r.gitCmd(ctx, args...).OutputString(r.exec)
	if err != nil {
		return 0, "", fmt.Errorf("git log: %w", err)
	}
	if out == "" {
		return 0, "", ErrNotExist
	}

	// The subject line follows the timestamp on the first line.
	first, rest, _ := strings.Cut(out, "\n")
	tsStr, subject, _ := strings.Cut(first, " ")

	committerTS, err = strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse committer ts: %w", err)
	}

	return committerTS, strings.TrimSpace(subject + "\n" + rest), nil
}

// RefDecorations reports the ref names pointing at hash, equivalent to
// `git log --format=%D -1 <hash>`.
func (r *Repository) RefDecorations(ctx context.Context, hash Hash) (string, error) {
	out, err := r.gitCmd(ctx, "log", "--format=%D", "-1", hash.String()).
		OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("git log: %w", err)
	}
	return out, nil
}

// SearchCommitsOptions scopes a SearchCommits call.
type SearchCommitsOptions struct {
	// After and Before bound the search by committer date. A zero
	// value for either leaves that bound open.
	After, Before time.Time

	// Grep is a fixed-string match against the commit message.
	Grep string

	// Pathspecs, if non-empty, scopes the search to these paths.
	Pathspecs []string
}

// SearchCommits finds commits across every ref (`--all`) matching opts,
// reporting hash and author timestamp pairs. This backs the identity
// oracle's date-and-subject correlation.
func (r *Repository) SearchCommits(ctx context.Context, opts SearchCommitsOptions) (map[Hash]int64, error) {
	args := []string{"log", "--all", "--fixed-strings", "--format=%H %at"}
	if !opts.After.IsZero() {
		args = append(args, "--after="+opts.After.Format(time.RFC3339))
	}
	if !opts.Before.IsZero() {
		args = append(args, "--before="+opts.Before.Format(time.RFC3339))
	}
	if opts.Grep != "" {
		args = append(args, "--grep="+opts.Grep)
	}
	if len(opts.Pathspecs) > 0 {
		args = append(args, "--")
		args = append(args, opts.Pathspecs...)
	}

	cmd := r.gitCmd(ctx, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start git log: %w", err)
	}

	results := make(map[Hash]int64)
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		hash, tsStr, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		ts, convErr := strconv.ParseInt(tsStr, 10, 64)
		if convErr != nil {
			continue
		}
		results[Hash(hash)] = ts
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}

	return results, nil
}

// CommitPatch builds the single-commit patch used for three-way apply,
// equivalent to `git log -p --reverse -m --stat --binary -1 --color=never
// --format=%n <hash>` scoped by pathspecs. A trailing blank line is
// appended, working around git-apply mishandling truncated binary or
// corrupt-fake-ancestor diagnostics at end of input.
func (r *Repository) CommitPatch(ctx context.Context, hash Hash, pathspecs ...string) (string, error) {
	args := []string{
		"log", "-p",
		"--reverse",
		"-m",
		"--stat",
		"--binary",
		"-1",
		"--color=never",
		"--format=%n",
		hash.String(),
	}
	if len(pathspecs) > 0 {
		args = append(args, "--")
		args = append(args, pathspecs...)
	}

	out, err := r.gitCmd(ctx, args...).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("git log -p: %w", err)
	}
	return out + "\n\n", nil
}
