// Package silogtest provides a logger for testing.
package silogtest

import (
	"go.gitsync.dev/gitsync/internal/ioutil"
	"go.gitsync.dev/gitsync/internal/silog"
)

// New creates a new logger that writes to the given testing.TB.
func New(t ioutil.TestOutput) *silog.Logger {
	return silog.New(ioutil.TestOutputWriter(t, ""), &silog.Options{
		Level: silog.LevelDebug,
	})
}
