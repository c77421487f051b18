// Package sink abstracts where rendered frames and passthrough lines go.
// The engine itself never writes to os.Stdout directly; everything funnels
// through a Writer so tests capture output in memory and callers can
// redirect it.
package sink

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/flanksource/progress/errors"
)

// Writer receives output lines from the engine.
type Writer interface {
	// WriteLine writes a single line, appending the newline itself.
	WriteLine(line string) error
	// Flush forces buffered output out.
	Flush() error
	// Ready reports whether the writer can accept output.
	Ready() bool
	// Close releases the writer. Writes after Close fail.
	Close() error
}

type streamWriter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closed bool
	name   string
}

// Stdout returns a Writer backed by the process stdout.
func Stdout() Writer {
	return &streamWriter{w: bufio.NewWriter(os.Stdout), name: "stdout"}
}

// Stderr returns a Writer backed by the process stderr.
func Stderr() Writer {
	return &streamWriter{w: bufio.NewWriter(os.Stderr), name: "stderr"}
}

func (s *streamWriter) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.IO, "write on closed sink",
			errors.WithComponent(s.name), errors.WithSeverity(errors.High))
	}
	if _, err := s.w.WriteString(line + "\n"); err != nil {
		return errors.Wrap(err, errors.IO, "write failed",
			errors.WithComponent(s.name), errors.Retryable())
	}
	return nil
}

func (s *streamWriter) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return errors.Wrap(s.w.Flush(), errors.IO, "flush failed",
		errors.WithComponent(s.name), errors.Retryable())
}

func (s *streamWriter) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *streamWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	// The process owns the underlying stream, only drain the buffer.
	return errors.Wrap(s.w.Flush(), errors.IO, "flush on close failed",
		errors.WithComponent(s.name))
}

// Memory is an in-memory Writer for tests. It records every line in order.
type Memory struct {
	mu     sync.Mutex
	lines  []string
	closed bool
}

// NewMemory returns an empty in-memory writer.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) WriteLine(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New(errors.IO, "write on closed sink",
			errors.WithComponent("memory"), errors.WithSeverity(errors.High))
	}
	m.lines = append(m.lines, line)
	return nil
}

func (m *Memory) Flush() error { return nil }

func (m *Memory) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Lines returns a copy of everything written so far.
func (m *Memory) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

// String joins the recorded lines with newlines.
func (m *Memory) String() string {
	return strings.Join(m.Lines(), "\n")
}

// Reset discards recorded lines.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
}
