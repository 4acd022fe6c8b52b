package refsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_defaultIncludesAll(t *testing.T) {
	names := []string{"main", "feature/a", "release/1.0"}
	got, err := Filter(names, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, names, got)
}

func TestFilter_include(t *testing.T) {
	names := []string{"main", "feature/a", "feature/b", "release/1.0"}
	got, err := Filter(names, []string{"feature/**"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"feature/a", "feature/b"}, got)
}

func TestFilter_exclude(t *testing.T) {
	names := []string{"main", "feature/a", "feature/b"}
	got, err := Filter(names, nil, []string{"feature/b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "feature/a"}, got)
}

func TestFilter_includeAndExclude(t *testing.T) {
	names := []string{"main", "feature/a", "feature/wip-b"}
	got, err := Filter(names, []string{"feature/**"}, []string{"feature/wip-*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"feature/a"}, got)
}

func TestFilter_invalidPattern(t *testing.T) {
	_, err := Filter([]string{"main"}, []string{"["}, nil)
	assert.Error(t, err)
}
