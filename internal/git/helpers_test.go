package git_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.gitsync.dev/gitsync/internal/git"
)

func writeFile(t *testing.T, repo *git.Repository, name, content string) {
	t.Helper()

	path := filepath.Join(repo.Root(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, repo *git.Repository, name string) string {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(repo.Root(), name))
	require.NoError(t, err)
	return string(content)
}

func writeAndCommit(t *testing.T, ctx context.Context, repo *git.Repository, name, content, message string) git.Hash {
	t.Helper()

	writeFile(t, repo, name, content)
	require.NoError(t, repo.AddPaths(ctx, name))
	require.NoError(t, repo.Commit(ctx, git.CommitRequest{Message: message, AllowEmpty: true}))

	head, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	return head
}
