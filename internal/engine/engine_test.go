package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitsync.dev/gitsync/internal/config"
	"go.gitsync.dev/gitsync/internal/engine"
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

func writeCommit(t *testing.T, ctx context.Context, repo *git.Repository, name, content, message string) git.Hash {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(repo.Root(), name), []byte(content), 0o644))
	require.NoError(t, repo.AddPaths(ctx, name))
	require.NoError(t, repo.Commit(ctx, git.CommitRequest{Message: message, AllowEmpty: true}))
	head, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	return head
}

func TestRun_projectsNewCommits(t *testing.T) {
	ctx := context.Background()

	source := newTestRepo(t)
	writeCommit(t, ctx, source, "a.txt", "hello\n", "root commit")
	writeCommit(t, ctx, source, "b.txt", "world\n", "add b")

	target := newTestRepo(t)
	writeCommit(t, ctx, target, "a.txt", "hello\n", "root commit")

	cfg := config.RunConfig{
		SourceDir: source.Root(),
		TargetDir: target.Root(),
		NoTags:    true,
	}

	log := silogtest.New(t)
	result, err := engine.Run(ctx, cfg, log, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.New)

	content, err := os.ReadFile(filepath.Join(target.Root(), "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world\n", string(content))
}

func TestRun_failsOnDirtyTarget(t *testing.T) {
	ctx := context.Background()

	source := newTestRepo(t)
	writeCommit(t, ctx, source, "a.txt", "hello\n", "root commit")

	target := newTestRepo(t)
	writeCommit(t, ctx, target, "a.txt", "hello\n", "root commit")
	require.NoError(t, os.WriteFile(filepath.Join(target.Root(), "dirty.txt"), []byte("x"), 0o644))

	cfg := config.RunConfig{
		SourceDir: source.Root(),
		TargetDir: target.Root(),
		NoTags:    true,
	}

	_, err := engine.Run(ctx, cfg, silogtest.New(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uncommitted changes")
}

func TestRun_idempotentSecondRun(t *testing.T) {
	ctx := context.Background()

	source := newTestRepo(t)
	writeCommit(t, ctx, source, "a.txt", "hello\n", "root commit")

	target := newTestRepo(t)
	writeCommit(t, ctx, target, "a.txt", "hello\n", "root commit")

	cfg := config.RunConfig{
		SourceDir: source.Root(),
		TargetDir: target.Root(),
		NoTags:    true,
	}

	log := silogtest.New(t)
	result, err := engine.Run(ctx, cfg, log, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.New)
	assert.Equal(t, 1, result.Exists)
}

func TestRun_dryRunMakesNoChanges(t *testing.T) {
	ctx := context.Background()

	source := newTestRepo(t)
	writeCommit(t, ctx, source, "a.txt", "hello\n", "root commit")
	writeCommit(t, ctx, source, "b.txt", "world\n", "add b")

	target := newTestRepo(t)
	writeCommit(t, ctx, target, "a.txt", "hello\n", "root commit")

	cfg := config.RunConfig{
		SourceDir: source.Root(),
		TargetDir: target.Root(),
		NoTags:    true,
		DryRun:    true,
	}

	log := silogtest.New(t)
	result, err := engine.Run(ctx, cfg, log, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.New)

	_, err = os.Stat(filepath.Join(target.Root(), "b.txt"))
	assert.True(t, os.IsNotExist(err), "dry run must not create b.txt on the target")

	clean, err := target.IsClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean, "dry run must leave the target clean")
}

func TestRun_squashModeAppendsSingleCommit(t *testing.T) {
	ctx := context.Background()

	source := newTestRepo(t)
	writeCommit(t, ctx, source, "a.txt", "hello\n", "root commit")
	writeCommit(t, ctx, source, "b.txt", "world\n", "add b")
	writeCommit(t, ctx, source, "c.txt", "more\n", "add c")

	target := newTestRepo(t)

	cfg := config.RunConfig{
		SourceDir:        source.Root(),
		TargetDir:        target.Root(),
		NoTags:           true,
		Squash:           true,
		SquashBaseBranch: "main",
	}

	log := silogtest.New(t)
	result, err := engine.Run(ctx, cfg, log, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.New)

	content, err := os.ReadFile(filepath.Join(target.Root(), "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "more\n", string(content))

	log2, err := target.CommitSubject(ctx, "HEAD")
	require.NoError(t, err)
	assert.Contains(t, log2, "chore(sync): squash commits from")
}

func TestRun_deletesDevelopBranches(t *testing.T) {
	ctx := context.Background()

	source := newTestRepo(t)
	writeCommit(t, ctx, source, "a.txt", "hello\n", "root commit")
	require.NoError(t, source.CreateAndCheckoutBranch(ctx, git.CreateBranchRequest{Name: "develop", Head: "HEAD"}))
	require.NoError(t, source.Checkout(ctx, "main"))

	target := newTestRepo(t)
	writeCommit(t, ctx, target, "a.txt", "hello\n", "root commit")
	require.NoError(t, target.CreateAndCheckoutBranch(ctx, git.CreateBranchRequest{Name: "develop", Head: "HEAD"}))
	require.NoError(t, target.Checkout(ctx, "main"))

	cfg := config.RunConfig{
		SourceDir:       source.Root(),
		TargetDir:       target.Root(),
		NoTags:          true,
		DevelopBranches: []string{"develop"},
	}

	_, err := engine.Run(ctx, cfg, silogtest.New(t), nil)
	require.NoError(t, err)

	branches, err := target.LocalBranches(ctx)
	require.NoError(t, err)
	assert.NotContains(t, branches, "develop")
}

func TestRun_refusesToDeleteCheckedOutDevelopBranch(t *testing.T) {
	ctx := context.Background()

	source := newTestRepo(t)
	writeCommit(t, ctx, source, "a.txt", "hello\n", "root commit")
	require.NoError(t, source.CreateAndCheckoutBranch(ctx, git.CreateBranchRequest{Name: "develop", Head: "HEAD"}))

	target := newTestRepo(t)
	writeCommit(t, ctx, target, "a.txt", "hello\n", "root commit")
	require.NoError(t, target.CreateAndCheckoutBranch(ctx, git.CreateBranchRequest{Name: "develop", Head: "HEAD"}))

	cfg := config.RunConfig{
		SourceDir:       source.Root(),
		TargetDir:       target.Root(),
		NoTags:          true,
		DevelopBranches: []string{"develop"},
	}

	_, err := engine.Run(ctx, cfg, silogtest.New(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot delete develop branch")
}
