package findata

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrFormat reports a malformed dataset file.
var ErrFormat = errors.New("findata: malformed dataset")

// Reader streams records from a persisted dataset in stored order.
type Reader struct {
	f    *os.File
	sc   *bufio.Scanner
	meta Metadata
	next int
}

// Open reads the metadata line and positions the reader at the first
// record.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("findata: open %s: %w", path, err)
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, defaultBufSize), 64*1024*1024)

	if !sc.Scan() {
		f.Close()
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("findata: read metadata: %w", err)
		}
		return nil, fmt.Errorf("%w: empty file", ErrFormat)
	}
	var meta Metadata
	if err := json.Unmarshal(sc.Bytes(), &meta); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: metadata: %v", ErrFormat, err)
	}
	if meta.FormatVersion != FormatVersion {
		f.Close()
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrFormat, meta.FormatVersion)
	}

	return &Reader{f: f, sc: sc, meta: meta}, nil
}

// Metadata returns the dataset metadata block.
func (r *Reader) Metadata() Metadata { return r.meta }

// Next returns the next record, or io.EOF when the dataset is
// exhausted. It verifies index alignment and grid shape as it goes.
func (r *Reader) Next() (Record, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return Record{}, fmt.Errorf("findata: read record: %w", err)
		}
		return Record{}, io.EOF
	}
	var rec Record
	if err := json.Unmarshal(r.sc.Bytes(), &rec); err != nil {
		return Record{}, fmt.Errorf("%w: record %d: %v", ErrFormat, r.next, err)
	}
	if rec.Index != r.next {
		return Record{}, fmt.Errorf("%w: record index %d, want %d", ErrFormat, rec.Index, r.next)
	}
	if cells := r.meta.GridWidth * r.meta.GridHeight; len(rec.Values) != cells || len(rec.Mask) != cells {
		return Record{}, fmt.Errorf("%w: record %d has %d values and %d mask entries for a %dx%d grid",
			ErrFormat, rec.Index, len(rec.Values), len(rec.Mask), r.meta.GridWidth, r.meta.GridHeight)
	}
	r.next++
	return rec, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// ReadAll loads a whole dataset into memory.
func ReadAll(path string) (Metadata, []Record, error) {
	r, err := Open(path)
	if err != nil {
		return Metadata{}, nil, err
	}
	defer r.Close()

	var recs []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return r.Metadata(), recs, nil
		}
		if err != nil {
			return Metadata{}, nil, err
		}
		recs = append(recs, rec)
	}
}
