package sink

import "sync"

// Synced serializes access to a Writer so a multi-line block (a rendered
// frame) is never interleaved with individual passthrough lines written
// from other goroutines.
type Synced struct {
	mu sync.Mutex
	w  Writer
}

// NewSynced wraps w.
func NewSynced(w Writer) *Synced { return &Synced{w: w} }

// WriteLine writes one line under the lock.
func (s *Synced) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteLine(line)
}

// WriteBlock writes all lines and flushes as one atomic unit.
func (s *Synced) WriteBlock(lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range lines {
		if err := s.w.WriteLine(line); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

// Flush flushes the underlying writer.
func (s *Synced) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

// Ready reports whether the underlying writer accepts output.
func (s *Synced) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Ready()
}

// Close closes the underlying writer.
func (s *Synced) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}
