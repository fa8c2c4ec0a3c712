package findata

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

const defaultBufSize = 256 * 1024 // 256KB: records are wide

// Option configures a Writer.
type Option func(*Writer)

// WithBufSize sets the bufio.Writer buffer size. Default: 256KB.
func WithBufSize(bytes int) Option {
	return func(w *Writer) { w.bufSize = bytes }
}

// WithClock overrides the time source used for Metadata.GeneratedAt.
// Pin it to regenerate a dataset byte-identically.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// Writer persists a dataset as NDJSON with buffered I/O. It is safe for
// use from one goroutine at a time per method, and Append enforces that
// records arrive in index order.
type Writer struct {
	mu       sync.Mutex
	f        *os.File
	w        *bufio.Writer
	path     string
	next     int
	bufSize  int
	ownsFile bool
	now      func() time.Time
}

// NewWriter creates (truncating) the dataset file and writes the
// metadata line. The path "-" writes to stdout instead of a file.
// GeneratedAt is stamped from the clock unless the caller already set it.
func NewWriter(path string, meta Metadata, opts ...Option) (*Writer, error) {
	w := &Writer{
		path:    path,
		bufSize: defaultBufSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	if path == "-" {
		w.f = os.Stdout
	} else {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, fmt.Errorf("findata: open %s: %w", path, err)
		}
		w.f = f
		w.ownsFile = true
	}
	w.w = bufio.NewWriterSize(w.f, w.bufSize)

	meta.FormatVersion = FormatVersion
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = w.now().UTC()
	}
	if err := w.writeLine(meta); err != nil {
		if w.ownsFile {
			w.f.Close()
			os.Remove(path)
		}
		return nil, err
	}
	return w, nil
}

// Append writes one record line. Records must arrive with consecutive
// indices starting at 0; the single-writer accumulation point upstream
// guarantees this, and Append rejects anything else rather than
// silently producing a misaligned dataset.
func (w *Writer) Append(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rec.Index != w.next {
		return fmt.Errorf("findata: record index %d out of order, want %d", rec.Index, w.next)
	}
	if err := w.writeLine(rec); err != nil {
		return err
	}
	w.next++
	return nil
}

// Count returns the number of records appended so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next
}

// Close flushes the buffer and closes the file. Stdout is flushed but
// left open.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		if w.ownsFile {
			w.f.Close()
		}
		return fmt.Errorf("findata: flush: %w", err)
	}
	if !w.ownsFile {
		return nil
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("findata: close: %w", err)
	}
	return nil
}

func (w *Writer) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("findata: marshal: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("findata: write: %w", err)
	}
	return nil
}
