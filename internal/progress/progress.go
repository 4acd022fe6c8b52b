// Package progress renders a commit-by-commit progress bar while the
// sync engine walks a scanned log, and is a no-op when the caller's log
// level is anything other than the default "info" tier (per the
// engine's rule that progress ticks are suppressed at verbose level,
// same as the retry hint).
package progress

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bar tracks progress through a fixed-size unit of work.
type Bar struct {
	bar *mpb.Bar
}

// Progress owns the terminal rendering surface for a run. A nil
// *Progress is valid and every method on it is a no-op, so callers need
// not branch on whether progress rendering is enabled.
type Progress struct {
	container *mpb.Progress
}

// New creates a Progress that renders to w. Pass io.Discard (or call
// NewDisabled) to suppress rendering entirely while still exercising the
// same call sites.
func New(w io.Writer) *Progress {
	return &Progress{container: mpb.New(mpb.WithOutput(w))}
}

// NewDisabled returns a Progress whose bars render nothing.
func NewDisabled() *Progress {
	return New(io.Discard)
}

// AddBar starts a new bar named name with total units of work.
func (p *Progress) AddBar(name string, total int) *Bar {
	if p == nil || p.container == nil {
		return nil
	}
	bar := p.container.AddBar(int64(total),
		mpb.PrependDecorators(decor.Name(name)),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	return &Bar{bar: bar}
}

// Wait blocks until every bar owned by p has completed.
func (p *Progress) Wait() {
	if p == nil || p.container == nil {
		return
	}
	p.container.Wait()
}

// Increment advances the bar by one unit.
func (b *Bar) Increment() {
	if b == nil || b.bar == nil {
		return
	}
	b.bar.Increment()
}

// SetTotal updates the bar's total unit count, used when the scanned log
// size is only known after the initial walk.
func (b *Bar) SetTotal(total int) {
	if b == nil || b.bar == nil {
		return
	}
	b.bar.SetTotal(int64(total), false)
}
