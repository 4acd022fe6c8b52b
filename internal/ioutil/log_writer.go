// Package ioutil provides I/O utilities.
package ioutil

import (
	"bytes"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// LogWriter builds and returns an io.Writer that
// writes messages to the given logger.
// If the logger is nil, a no-op writer is returned.
//
// The done function must be called when the writer is no longer needed.
// It will flush any buffered text to the logger.
//
// The returned writer is not thread-safe.
func LogWriter(logger *log.Logger, lvl log.Level) (w io.Writer, done func()) {
	if logger == nil {
		return io.Discard, func() {}
	}

	var printf func(string, ...any)
	switch lvl {
	case log.DebugLevel:
		printf = logger.Debugf
	case log.InfoLevel:
		printf = logger.Infof
	case log.WarnLevel:
		printf = logger.Warnf
	case log.ErrorLevel:
		printf = logger.Errorf
	default:
		panic("unsupported log level")
	}

	return LogfWriter(printf, "")
}

// TestOutput is the subset of testing.TB used by TestOutputWriter.
type TestOutput interface {
	Logf(format string, args ...any)
	Cleanup(func())
}

// TestOutputWriter builds and returns an io.Writer that
// writes messages to the given test output.
// The returned writer is not thread-safe.
func TestOutputWriter(out TestOutput, prefix string) (w io.Writer) {
	w, flush := LogfWriter(out.Logf, prefix)
	out.Cleanup(flush)
	return w
}

// LineWriter builds an io.Writer that invokes recv once per complete line,
// buffering any trailing partial line until the next Write or until flush
// is called.
func LineWriter(recv func([]byte)) (w io.Writer, flush func()) {
	lw := &lineWriter{recv: recv}
	return lw, lw.flush
}

type lineWriter struct {
	recv func([]byte)
	buff bytes.Buffer
	mu   sync.Mutex
}

func (w *lineWriter) Write(bs []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	total := len(bs)
	for len(bs) > 0 {
		line, rest, ok := bytes.Cut(bs, _newline)
		bs = rest
		if !ok {
			w.buff.Write(line)
			break
		}

		if w.buff.Len() == 0 {
			w.recv(line)
			continue
		}

		w.buff.Write(line)
		w.recv(append([]byte(nil), w.buff.Bytes()...))
		w.buff.Reset()
	}
	return total, nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buff.Len() > 0 {
		w.recv(append([]byte(nil), w.buff.Bytes()...))
		w.buff.Reset()
	}
}

// printfWriter is an io.Writer that writes to a printf-style function,
// one line at a time.
type printfWriter struct {
	// printf implementation should add a newline at the end.
	printf func(string, ...any)
	prefix string
	buff   bytes.Buffer
	mu     sync.Mutex
}

var _ io.Writer = (*printfWriter)(nil)

// LogfWriter builds an io.Writer that calls printf once per complete line
// written to it, prefixing each line with prefix.
//
// The returned flush function must be called to flush any text
// that was written without a trailing newline.
func LogfWriter(printf func(string, ...any), prefix string) (w io.Writer, flush func()) {
	pw := &printfWriter{
		printf: printf,
		prefix: prefix,
	}
	return pw, pw.flush
}

var _newline = []byte{'\n'}

func (w *printfWriter) Write(bs []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	total := len(bs)
	for len(bs) > 0 {
		var (
			line []byte
			ok   bool
		)
		line, bs, ok = bytes.Cut(bs, _newline)
		if !ok {
			// No newline. Buffer and wait for more.
			w.buff.Write(line)
			break
		}

		if w.buff.Len() == 0 {
			// No prior partial write. Flush.
			w.printf("%s%s", w.prefix, line)
			continue
		}

		// Flush prior partial write.
		w.buff.Write(line)
		w.printf("%s%s", w.prefix, w.buff.Bytes())
		w.buff.Reset()
	}
	return total, nil
}

// flush flushes buffered text, even if it doesn't end with a newline.
func (w *printfWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buff.Len() > 0 {
		w.printf("%s%s", w.prefix, w.buff.Bytes())
		w.buff.Reset()
	}
}
