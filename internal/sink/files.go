// =============================================================================
// IRS 527 Splitter - Output Sinks
// =============================================================================
//
// Every record type gets one output file in the output directory:
//
//   <type>_records.txt      e.g. B_records.txt, Buff_records.txt
//
// The first line of each file is the schema header for that type joined with
// the delimiter. Records follow, one per line.
//
// OWNERSHIP:
//   A Sink is not safe for concurrent use. The pipeline writes every type
//   except "B" from its reading goroutine, and "B" only from the BatchWriter
//   goroutine, so each file has exactly one writer.
//
// =============================================================================

package sink

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ginjaninja78/irs527-splitter/internal/schema"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// writerBufferSize is the buffer in front of each output file.
const writerBufferSize = 256 * 1024

// FileName returns the output file name for a record type.
func FileName(rt types.RecordType) string {
	return fmt.Sprintf("%s_records.txt", rt)
}

// EnsureDir creates dir and its parents if they don't exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// SINK
// =============================================================================

// Sink is one buffered, append-only output file.
type Sink struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	lines  int64
}

func openSink(path, header string) (*Sink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	s := &Sink{
		path:   path,
		file:   file,
		writer: bufio.NewWriterSize(file, writerBufferSize),
	}
	if _, err := s.writer.WriteString(header + "\n"); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	return s, nil
}

// WriteLine appends line and a newline.
func (s *Sink) WriteLine(line string) error {
	if _, err := s.writer.WriteString(line); err != nil {
		return fmt.Errorf("failed to write to %s: %w", s.path, err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write to %s: %w", s.path, err)
	}
	s.lines++
	return nil
}

// Flush pushes buffered lines to the file.
func (s *Sink) Flush() error {
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", s.path, err)
	}
	return nil
}

// Lines returns the number of records written, not counting the header.
func (s *Sink) Lines() int64 {
	return s.lines
}

// Path returns the file path.
func (s *Sink) Path() string {
	return s.path
}

func (s *Sink) close() error {
	flushErr := s.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, closeErr)
	}
	return nil
}

// =============================================================================
// SINK SET
// =============================================================================

// Set holds the output files for every record type in a schema.
type Set struct {
	order []types.RecordType
	sinks map[types.RecordType]*Sink

	closeOnce sync.Once
	closeErr  error
}

// OpenSet creates dir if needed and opens one file per schema type, writing
// each header. On failure, files opened so far are closed.
func OpenSet(dir string, s *schema.Schema, delimiter string) (*Set, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}

	set := &Set{
		order: s.Types(),
		sinks: make(map[types.RecordType]*Sink),
	}

	for _, rt := range set.order {
		sink, err := openSink(filepath.Join(dir, FileName(rt)), s.Header(rt, delimiter))
		if err != nil {
			set.Close()
			return nil, err
		}
		set.sinks[rt] = sink
	}

	return set, nil
}

// Sink returns the output file for a record type, or nil when the schema
// has no such type.
func (s *Set) Sink(rt types.RecordType) *Sink {
	return s.sinks[rt]
}

// Counts returns the number of records written per type.
func (s *Set) Counts() map[types.RecordType]int64 {
	counts := make(map[types.RecordType]int64, len(s.sinks))
	for rt, sink := range s.sinks {
		counts[rt] = sink.Lines()
	}
	return counts
}

// Close flushes and closes every file. Only the first call does any work;
// later calls return the same error.
func (s *Set) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		for _, rt := range s.order {
			if sink, ok := s.sinks[rt]; ok {
				if err := sink.close(); err != nil {
					errs = append(errs, err)
				}
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
