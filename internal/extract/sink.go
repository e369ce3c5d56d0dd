package extract

import (
	"fmt"
	"io"
	"sync"

	"github.com/zsiec/esaudio/media"
)

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(f *media.AudioFrame) error

// WriteFrame calls fn(f).
func (fn SinkFunc) WriteFrame(f *media.AudioFrame) error { return fn(f) }

// RawSink writes frame payloads back to back, reproducing a clean
// elementary stream. It is safe for concurrent use.
type RawSink struct {
	mu sync.Mutex
	w  io.Writer
	n  int64
}

// NewRawSink returns a RawSink writing to w.
func NewRawSink(w io.Writer) *RawSink {
	return &RawSink{w: w}
}

// WriteFrame writes f.Data.
func (s *RawSink) WriteFrame(f *media.AudioFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.w.Write(f.Data)
	s.n += int64(n)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Written returns the number of bytes written.
func (s *RawSink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
