package main

import (
	"bytes"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
)

func TestVersionFlag(t *testing.T) {
	var (
		exitCode int
		stdout   bytes.Buffer
	)

	_ = versionFlag(true).BeforeReset(&kong.Kong{
		Stdout: &stdout,
		Exit: func(code int) {
			exitCode = code
		},
	})
	assert.Zero(t, exitCode)
	assert.Contains(t, stdout.String(), "gitsync "+_version)
}

func TestDescriptionIsDedented(t *testing.T) {
	assert.NotContains(t, _description, "\n\t")
	assert.Contains(t, _description, "gitsync projects commits")
}
