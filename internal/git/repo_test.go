package git_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/silog/silogtest"
)

func newTestRepo(t *testing.T) *git.Repository {
	t.Helper()

	ctx := context.Background()
	dir := t.TempDir()
	repo, err := git.Init(ctx, dir, git.InitOptions{
		Log:    silogtest.New(t),
		Branch: "main",
	})
	require.NoError(t, err)
	return repo
}

func TestInitAndOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := git.Init(ctx, dir, git.InitOptions{
		Log:    silogtest.New(t),
		Branch: "trunk",
	})
	require.NoError(t, err)

	branch, err := repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)

	reopened, err := git.Open(ctx, dir, git.OpenOptions{Log: silogtest.New(t)})
	require.NoError(t, err)

	branch, err = reopened.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)
}

func TestRepository_BranchLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	writeAndCommit(t, ctx, repo, "a.txt", "hello", "initial commit")

	require.NoError(t, repo.CreateBranch(ctx, git.CreateBranchRequest{Name: "feature"}))

	branches, err := repo.LocalBranches(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main", "feature"}, branches)

	require.NoError(t, repo.Checkout(ctx, "feature"))
	current, err := repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature", current)

	require.NoError(t, repo.Checkout(ctx, "main"))
	require.NoError(t, repo.DeleteBranch(ctx, "feature", git.BranchDeleteOptions{}))

	branches, err = repo.LocalBranches(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main"}, branches)
}

func TestRepository_ForceCreateBranch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first := writeAndCommit(t, ctx, repo, "a.txt", "one", "first")
	writeAndCommit(t, ctx, repo, "a.txt", "two", "second")

	require.NoError(t, repo.ForceCreateBranch(ctx, git.CreateBranchRequest{
		Name: "main",
		Head: first.String(),
	}))

	head, err := repo.PeelToCommit(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, first, head)
}

func TestRepository_CommitInfoBody(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	writeAndCommit(t, ctx, repo, "a.txt", "hello", "initial commit")

	info, err := repo.CommitInfo(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "initial commit", info.Body)
}

func TestRepository_AddAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	writeAndCommit(t, ctx, repo, "a.txt", "hello", "initial commit")

	clean, err := repo.IsClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean)

	writeFile(t, repo, "a.txt", "changed")
	clean, err = repo.IsClean(ctx)
	require.NoError(t, err)
	assert.False(t, clean)

	require.NoError(t, repo.AddTracked(ctx))
	require.NoError(t, repo.Commit(ctx, git.CommitRequest{Message: "update"}))

	clean, err = repo.IsClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestRepository_DiffTreeNameStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	root := writeAndCommit(t, ctx, repo, "a.txt", "hello", "add a")
	writeFile(t, repo, "b.txt", "world")
	require.NoError(t, repo.AddPaths(ctx, "b.txt"))
	require.NoError(t, repo.Commit(ctx, git.CommitRequest{Message: "add b"}))

	head, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)

	files, err := repo.DiffTreeNameStatus(ctx, root, head)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "A", files[0].Status)
	assert.Equal(t, "b.txt", files[0].Path)
}

func TestRepository_TagLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	head := writeAndCommit(t, ctx, repo, "a.txt", "hello", "initial commit")

	require.NoError(t, repo.CreateTag(ctx, git.CreateTagRequest{
		Name:       "v1",
		Hash:       head,
		Annotation: "release one",
	}))

	tags, err := repo.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "v1", tags[0].Name)
	assert.Equal(t, head, tags[0].Hash)
	assert.True(t, tags[0].Annotated)

	body, err := repo.TagAnnotation(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "release one", body)
}

func TestRepository_ResetHardAndContains(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first := writeAndCommit(t, ctx, repo, "a.txt", "one", "first")
	writeAndCommit(t, ctx, repo, "a.txt", "two", "second")

	ok, err := repo.Contains(ctx, first)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.ResetHard(ctx, first.String()))

	head, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, first, head)
}

func TestRepository_WorktreeOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	head := writeAndCommit(t, ctx, repo, "a.txt", "hello", "initial commit")

	wt, err := repo.AddWorktree(ctx, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = wt.Remove(ctx) })

	require.NoError(t, wt.CheckoutPaths(ctx, head.String(), "a.txt"))
}

func TestRepository_LastCommit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.LastCommit(ctx, git.LastCommitOptions{})
	assert.ErrorIs(t, err, git.ErrNotExist)

	head := writeAndCommit(t, ctx, repo, "a.txt", "hello", "initial commit")

	last, err := repo.LastCommit(ctx, git.LastCommitOptions{All: true})
	require.NoError(t, err)
	assert.Equal(t, head, last)
}

func TestRepository_RemoteAndConfig(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.AddRemote(ctx, "origin", "https://example.com/repo.git"))

	url, err := repo.ConfigGet(ctx, "remote.origin.url")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/repo.git", url)

	require.NoError(t, repo.RemoveRemote(ctx, "origin"))

	_, err = repo.ConfigGet(ctx, "remote.origin.url")
	assert.ErrorIs(t, err, git.ErrNotExist)
}

func TestRepository_LogGraph(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first := writeAndCommit(t, ctx, repo, "a.txt", "one", "first commit")
	second := writeAndCommit(t, ctx, repo, "a.txt", "two", "second commit")

	records, err := repo.LogGraph(ctx, git.LogGraphOptions{Refs: []string{"main"}})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, second, records[0].Hash)
	assert.True(t, records[0].OnCurrentLine)
	assert.Equal(t, []git.Hash{first}, records[0].ParentHashes)
	assert.Equal(t, "second commit", records[0].Subject)

	assert.Equal(t, first, records[1].Hash)
	assert.Empty(t, records[1].ParentHashes)
	assert.Equal(t, "first commit", records[1].Subject)
}

func TestRepository_CommitPatchAndApply(t *testing.T) {
	ctx := context.Background()
	source := newTestRepo(t)
	writeAndCommit(t, ctx, source, "a.txt", "hello", "initial commit")
	head := writeAndCommit(t, ctx, source, "a.txt", "hello world", "update a")

	patch, err := source.CommitPatch(ctx, head)
	require.NoError(t, err)
	assert.Contains(t, patch, "a.txt")

	target := newTestRepo(t)
	writeAndCommit(t, ctx, target, "a.txt", "hello", "initial commit")

	require.NoError(t, target.Apply(ctx, git.ApplyRequest{
		Patch: patch,
		Strip: 1,
	}))

	require.NoError(t, target.AddTracked(ctx))
	require.NoError(t, target.Commit(ctx, git.CommitRequest{Message: "apply update"}))

	content := readFile(t, target, "a.txt")
	assert.Equal(t, "hello world", content)
}

func TestRepository_Merge(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	writeAndCommit(t, ctx, repo, "a.txt", "base", "base commit")
	require.NoError(t, repo.CreateAndCheckoutBranch(ctx, git.CreateBranchRequest{Name: "feature"}))
	writeAndCommit(t, ctx, repo, "b.txt", "feature content", "feature commit")

	require.NoError(t, repo.Checkout(ctx, "main"))
	err := repo.Merge(ctx, "feature")
	require.NoError(t, err)

	require.NoError(t, repo.Commit(ctx, git.CommitRequest{Message: "merge feature"}))

	subject, err := repo.CommitSubject(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "merge feature", subject)
}
