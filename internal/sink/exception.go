package sink

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// ExceptionLogName is the file name of the exception log.
const ExceptionLogName = "exception_log.txt"

// exceptionPreamble is written once when the log is created.
const exceptionPreamble = "Exception Log for Non-Numeric Amount Values\n\n"

// ExceptionLog records lines whose amount could not be parsed. Contribution
// exceptions are found on the reading goroutine and expenditure exceptions on
// the workers, so writes are serialized by a mutex.
type ExceptionLog struct {
	path string

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	count  int64
	closed bool
}

// OpenExceptionLog creates the log at path and writes the preamble.
func OpenExceptionLog(path string) (*ExceptionLog, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create exception log: %w", err)
	}

	l := &ExceptionLog{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}
	if _, err := l.writer.WriteString(exceptionPreamble); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write exception log preamble: %w", err)
	}
	return l, nil
}

// Write appends one entry:
//
//	Record <type> Exception (Amount: <raw>): <line>
func (l *ExceptionLog) Write(rt types.RecordType, rawAmount, line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("exception log %s is closed", l.path)
	}
	if _, err := fmt.Fprintf(l.writer, "Record %s Exception (Amount: %s): %s\n", rt, rawAmount, line); err != nil {
		return fmt.Errorf("failed to write exception log: %w", err)
	}
	l.count++
	return nil
}

// Count returns the number of entries written.
func (l *ExceptionLog) Count() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Path returns the log file path.
func (l *ExceptionLog) Path() string {
	return l.path
}

// Close flushes and closes the log. It is safe to call more than once.
func (l *ExceptionLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	flushErr := l.writer.Flush()
	closeErr := l.file.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush exception log: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close exception log: %w", closeErr)
	}
	return nil
}
