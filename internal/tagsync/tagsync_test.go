package tagsync_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitsync.dev/gitsync/internal/config"
	"go.gitsync.dev/gitsync/internal/git"
	"go.gitsync.dev/gitsync/internal/silog/silogtest"
	"go.gitsync.dev/gitsync/internal/syncstate"
	"go.gitsync.dev/gitsync/internal/tagsync"
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

func TestReconcile_createsLightweightAndAnnotatedTags(t *testing.T) {
	ctx := context.Background()

	source := newTestRepo(t)
	root := writeCommit(t, ctx, source, "a.txt", "hello\n", "root commit")
	require.NoError(t, source.CreateTag(ctx, git.CreateTagRequest{Name: "v1.0.0", Hash: root}))
	require.NoError(t, source.CreateTag(ctx, git.CreateTagRequest{Name: "v1.1.0", Hash: root, Annotation: "release notes"}))

	target := newTestRepo(t)
	targetRoot := writeCommit(t, ctx, target, "a.txt", "hello\n", "root commit")

	s := syncstate.New(source, target, nil, nil, config.RunConfig{}, silogtest.New(t))
	s.Oracle.Put(root, targetRoot)

	summary, err := tagsync.Reconcile(ctx, s)
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)

	tags, err := target.ListTags(ctx)
	require.NoError(t, err)
	byName := make(map[string]git.TagRef, len(tags))
	for _, tag := range tags {
		byName[tag.Name] = tag
	}

	assert.Equal(t, targetRoot, byName["v1.0.0"].Hash)
	assert.False(t, byName["v1.0.0"].Annotated)

	assert.Equal(t, targetRoot, byName["v1.1.0"].Hash)
	assert.True(t, byName["v1.1.0"].Annotated)
}

func TestReconcile_excludeAndPrefix(t *testing.T) {
	ctx := context.Background()

	source := newTestRepo(t)
	root := writeCommit(t, ctx, source, "a.txt", "hello\n", "root commit")
	require.NoError(t, source.CreateTag(ctx, git.CreateTagRequest{Name: "internal-v1", Hash: root}))
	require.NoError(t, source.CreateTag(ctx, git.CreateTagRequest{Name: "release-v1", Hash: root}))

	target := newTestRepo(t)
	targetRoot := writeCommit(t, ctx, target, "a.txt", "hello\n", "root commit")

	s := syncstate.New(source, target, nil, nil, config.RunConfig{
		ExcludeTags:     []string{"internal-*"},
		RemoveTagPrefix: "release-",
		AddTagPrefix:    "mirror-",
	}, silogtest.New(t))
	s.Oracle.Put(root, targetRoot)

	summary, err := tagsync.Reconcile(ctx, s)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "mirror-v1", summary.Results[0].Name)

	tags, err := target.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "mirror-v1", tags[0].Name)
}
