package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/silog/silogtest"
)

func newTestRepo(t *testing.T) *git.Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := git.Init(ctx, t.TempDir(), git.InitOptions{Log: silogtest.New(t), Branch: "main"})
	require.NoError(t, err)
	return repo
}

func writeCommit(t *testing.T, ctx context.Context, repo *git.Repository, name, content, message string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(repo.Root(), name), []byte(content), 0o644))
	require.NoError(t, repo.AddPaths(ctx, name))
	require.NoError(t, repo.Commit(ctx, git.CommitRequest{Message: message, AllowEmpty: true}))
}

func TestSyncCmd_dryRunSkipsConfirmAndLeavesTargetUntouched(t *testing.T) {
	ctx := context.Background()

	source := newTestRepo(t)
	writeCommit(t, ctx, source, "a.txt", "hello\n", "root commit")
	writeCommit(t, ctx, source, "b.txt", "world\n", "add b")

	target := newTestRepo(t)
	writeCommit(t, ctx, target, "a.txt", "hello\n", "root commit")

	configPath := filepath.Join(t.TempDir(), "gitsync.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(
		"sourceDir: %s\ntargetDir: %s\nnoTags: true\n", source.Root(), target.Root(),
	)), 0o644))

	cmd := &syncCmd{Config: configPath, DryRun: true}
	err := cmd.Run(ctx, silogtest.New(t))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(target.Root(), "b.txt"))
	assert.True(t, os.IsNotExist(err))
}
