// Command gitsync projects one git repository's commit graph onto
// another, keeping a partial checkout of a monorepo in sync with its
// standalone mirror (or vice versa).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"go.gitsync.dev/gitsync/internal/silog"
	"go.gitsync.dev/gitsync/internal/text"
)

// _description is written with a leading indent so it reads naturally
// alongside the struct tags and usage examples around it in source;
// text.Dedent strips that indent back out before kong ever sees it.
var _description = text.Dedent(`
	gitsync projects commits, branches, and tags from one git
	repository onto another, keeping a partial checkout of a monorepo
	in sync with its standalone mirror (or vice versa).
`)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var cmd mainCmd
	kctx := kong.Parse(
		&cmd,
		kong.Name("gitsync"),
		kong.Description(_description),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)

	kctx.FatalIfErrorf(kctx.Run())
}

type mainCmd struct {
	Verbose bool `short:"v" help:"Enable verbose (debug-level) logging."`
	Quiet   bool `short:"q" help:"Only log warnings and errors."`

	Sync   syncCmd   `cmd:"" help:"Sync commits, branches, and tags from source to target."`
	Config configCmd `cmd:"" help:"Inspect or validate a gitsync configuration file."`

	Version versionFlag `help:"Print version information and quit."`
}

func (cmd *mainCmd) AfterApply(kctx *kong.Context) error {
	opts := &silog.Options{Level: silog.LevelInfo}
	switch {
	case cmd.Verbose:
		opts.Level = silog.LevelDebug
	case cmd.Quiet:
		opts.Level = silog.LevelWarn
	}

	log := silog.New(os.Stderr, opts)
	kctx.Bind(log)
	return nil
}

type versionFlag bool

func (versionFlag) BeforeReset(app *kong.Kong) error {
	fmt.Fprintln(app.Stdout, "gitsync", _version)
	app.Exit(0)
	return nil
}

var _version = "dev"
