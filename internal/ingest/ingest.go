// Package ingest wraps the byte sources esaudio reads from (files, stdin,
// SRT connections) with metadata and read counters.
package ingest

import (
	"io"
	"sync/atomic"
	"time"
)

// InputFormat identifies the container format of an input.
type InputFormat int

// Supported input formats.
const (
	FormatMPEGTS InputFormat = iota
	FormatElementary
)

func (f InputFormat) String() string {
	switch f {
	case FormatMPEGTS:
		return "mpegts"
	case FormatElementary:
		return "elementary"
	}
	return "unknown"
}

// Stats captures connection-level counters for a source.
type Stats struct {
	BytesReceived int64  `json:"bytesReceived"`
	ReadCount     int64  `json:"readCount"`
	ConnectedAt   int64  `json:"connectedAt"`
	UptimeMs      int64  `json:"uptimeMs"`
	RemoteAddr    string `json:"remoteAddr"`
}

// Source is an open input. Reads are counted; Close releases the
// underlying reader.
type Source struct {
	Key       string
	StartedAt time.Time
	Format    InputFormat
	input     io.ReadCloser

	bytesReceived atomic.Int64
	readCount     atomic.Int64
	remoteAddr    atomic.Value
}

// NewSource wraps input as a Source identified by key.
func NewSource(key string, format InputFormat, input io.ReadCloser) *Source {
	return &Source{
		Key:       key,
		StartedAt: time.Now(),
		Format:    format,
		input:     input,
	}
}

// Read reads from the underlying input and records the read.
func (s *Source) Read(p []byte) (int, error) {
	n, err := s.input.Read(p)
	if n > 0 {
		s.RecordRead(n)
	}
	return n, err
}

// Close closes the underlying input.
func (s *Source) Close() error {
	return s.input.Close()
}

// RecordRead increments the byte and read counters.
func (s *Source) RecordRead(n int) {
	s.bytesReceived.Add(int64(n))
	s.readCount.Add(1)
}

// SetRemoteAddr stores the remote address of a network source.
func (s *Source) SetRemoteAddr(addr string) {
	s.remoteAddr.Store(addr)
}

// Stats returns a snapshot of the source counters.
func (s *Source) Stats() Stats {
	addr, _ := s.remoteAddr.Load().(string)
	return Stats{
		BytesReceived: s.bytesReceived.Load(),
		ReadCount:     s.readCount.Load(),
		ConnectedAt:   s.StartedAt.UnixMilli(),
		UptimeMs:      time.Since(s.StartedAt).Milliseconds(),
		RemoteAddr:    addr,
	}
}
