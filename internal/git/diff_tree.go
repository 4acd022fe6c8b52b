package git

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// ChangedFile is one line of `git diff-tree --name-status` output:
// a path and the single-letter status git assigned it.
type ChangedFile struct {
	// Status is one of git's diff status letters: A, M, D, R, C, T, etc.
	Status string

	// Path is the file path relative to the repository root.
	Path string
}

// DiffTreeNameStatus reports the files that changed between parent and
// hash, each tagged with its git status letter. Pathspecs scope the
// comparison the same way they scope `git log`.
func (r *Repository) DiffTreeNameStatus(ctx context.Context, parent, hash Hash, pathspecs ...string) ([]ChangedFile, error) {
	args := []string{"diff-tree", "--name-status", "-r", parent.String(), hash.String()}
	if len(pathspecs) > 0 {
		args = append(args, "--")
		args = append(args, pathspecs...)
	}

	cmd := r.gitCmd(ctx, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start diff-tree: %w", err)
	}

	var files []ChangedFile
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		status, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}

		// Rename/copy statuses carry a similarity percentage
		// (e.g. "R100") followed by old-path TAB new-path; only the
		// new path matters for overwrite purposes.
		if idx := strings.LastIndexByte(path, '\t'); idx >= 0 {
			path = path[idx+1:]
		}

		files = append(files, ChangedFile{
			Status: strings.TrimSpace(status[:1]),
			Path:   path,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("diff-tree: %w", err)
	}

	return files, nil
}

// DiffTreeNameOnly reports the paths touched by hash relative to its sole
// parent, including paths added by a root commit against the empty tree.
func (r *Repository) DiffTreeNameOnly(ctx context.Context, hash Hash) ([]string, error) {
	cmd := r.gitCmd(ctx, "diff-tree", "--no-commit-id", "--name-only", "-r", "--root", hash.String())
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start diff-tree: %w", err)
	}

	var paths []string
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("diff-tree: %w", err)
	}

	return paths, nil
}
