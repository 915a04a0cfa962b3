package speech

import (
	"io"
	"sync"
)

// WriterSink appends every frame to w, ignoring utterance boundaries.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
	n  int64
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) WriteAudio(_, _ string, chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.w.Write(chunk)
	s.n += int64(n)
	return err
}

// Written returns the number of bytes written so far.
func (s *WriterSink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
