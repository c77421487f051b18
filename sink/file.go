package sink

import (
	"bufio"
	"os"
	"sync"

	"github.com/flanksource/progress/errors"
)

// File appends lines to a file on disk.
type File struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// NewFile opens (or creates) path for appending.
func NewFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, errors.IO, "cannot open sink file",
			errors.WithDetail("path", path), errors.WithSeverity(errors.High))
	}
	return &File{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *File) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.IO, "write on closed sink",
			errors.WithComponent("file"), errors.WithSeverity(errors.High))
	}
	if _, err := s.w.WriteString(line + "\n"); err != nil {
		return errors.Wrap(err, errors.IO, "write failed",
			errors.WithComponent("file"), errors.Retryable())
	}
	return nil
}

func (s *File) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return errors.Wrap(s.w.Flush(), errors.IO, "flush failed",
		errors.WithComponent("file"), errors.Retryable())
}

func (s *File) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.w.Flush(); err != nil {
		_ = s.f.Close()
		return errors.Wrap(err, errors.IO, "flush on close failed",
			errors.WithComponent("file"))
	}
	return errors.Wrap(s.f.Close(), errors.IO, "close failed",
		errors.WithComponent("file"))
}
