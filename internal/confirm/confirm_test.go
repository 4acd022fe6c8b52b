package confirm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitsync.dev/gitsync/internal/confirm"
)

func TestAutoAccept(t *testing.T) {
	ok, err := confirm.AutoAccept("proceed?", "", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFuncAcceptsAutoAccept(t *testing.T) {
	var f confirm.Func = confirm.AutoAccept
	ok, err := f("proceed?", "Yes", "No")
	require.NoError(t, err)
	assert.True(t, ok)
}
