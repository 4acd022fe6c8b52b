package git

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"go.gitsync.dev/gitsync/internal/scanutil"
)

// CommitInfo holds the authorship and message metadata of a commit,
// as needed to preserve identity when projecting it onto another
// repository.
type CommitInfo struct {
	AuthorName     string
	AuthorEmail    string
	AuthorDate     time.Time
	CommitterName  string
	CommitterEmail string
	CommitterDate  time.Time
	Body           string
}

// CommitInfo fetches the authorship and full message of hash, equivalent
// to `git show -s --format=%an%x00%ae%x00%ai%x00%cn%x00%ce%x00%ci%x00%B <hash>`.
// Fields are NUL-delimited rather than separated by a printable character
// since a commit body may legitimately contain any of those.
func (r *Repository) CommitInfo(ctx context.Context, hash Hash) (CommitInfo, error) {
	out, err := r.gitCmd(ctx,
		"show", "-s",
		"--format=%an%x00%ae%x00%ai%x00%cn%x00%ce%x00%ci%x00%B",
		hash.String(),
	).OutputString(r.exec)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("git show: %w", err)
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(scanutil.SplitNull)

	var fields []string
	for scanner.Scan() {
		fields = append(fields, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return CommitInfo{}, fmt.Errorf("scan git show output: %w", err)
	}
	if len(fields) < 7 {
		return CommitInfo{}, fmt.Errorf("unexpected output from git show: %q", out)
	}

	var info CommitInfo
	info.AuthorName = fields[0]
	info.AuthorEmail = fields[1]
	if t, err := parseGitDate(fields[2]); err == nil {
		info.AuthorDate = t
	}
	info.CommitterName = fields[3]
	info.CommitterEmail = fields[4]
	if t, err := parseGitDate(fields[5]); err == nil {
		info.CommitterDate = t
	}
	// The body is everything after the sixth separator, rejoined in
	// case it contains a NUL byte of its own (scanutil.SplitNull would
	// otherwise have split it further).
	info.Body = strings.TrimRight(strings.Join(fields[6:], "\x00"), "\n")

	return info, nil
}

// parseGitDate parses the default "%ai"/"%ci" date format,
// e.g. "2024-01-02 15:04:05 -0700".
func parseGitDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05 -0700", s)
}
