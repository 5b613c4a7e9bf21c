// =============================================================================
// IRS 527 Splitter - Streaming Line Reader
// =============================================================================
//
// The bulk data file is several gigabytes, so it is never loaded into memory.
// Reader hands out one line at a time, the same way the rest of the pipeline
// consumes it: both passes open their own Reader over the input path.
//
// USAGE:
//   reader, err := record.Open(path)
//   if err != nil {
//       return err
//   }
//   defer reader.Close()
//
//   for reader.Next() {
//       line := reader.Line()
//       // Process the line...
//   }
//
//   if err := reader.Err(); err != nil {
//       return err
//   }
//
// =============================================================================

package record

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

const (
	// initialBufferSize is the scanner's starting buffer.
	initialBufferSize = 1024 * 1024

	// MaxLineSize is the longest line the reader accepts.
	MaxLineSize = 20 * 1024 * 1024
)

// Reader streams lines from an input file.
type Reader struct {
	closer     io.Closer
	scanner    *bufio.Scanner
	line       string
	lineNumber int
	err        error
}

// Open opens the file at path for streaming.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	reader := NewReader(file)
	reader.closer = file
	return reader, nil
}

// NewReader streams lines from r. Closing the Reader does not close r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialBufferSize), MaxLineSize)
	return &Reader{scanner: scanner}
}

// Next advances to the next line. It returns false at end of input or on
// error; check Err afterwards.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}

	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			r.err = fmt.Errorf("error reading line %d: %w", r.lineNumber+1, err)
		}
		return false
	}

	r.lineNumber++
	r.line = r.scanner.Text()
	return true
}

// Line returns the current line without its line terminator.
func (r *Reader) Line() string {
	return r.line
}

// LineNumber returns the 1-based number of the current line.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Err returns the first error encountered while reading.
func (r *Reader) Err() error {
	return r.err
}

// Close releases the underlying file, if the Reader opened one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
