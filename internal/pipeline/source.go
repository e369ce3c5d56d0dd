package pipeline

import (
	"io"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/mpegts"
)

// DefaultChunkSize is the read size for elementary-stream input.
const DefaultChunkSize = 4096

// ElementarySource delivers a raw elementary stream in fixed-size chunks
// on a single PID with no timestamps.
type ElementarySource struct {
	r      io.Reader
	pid    uint16
	format audioparse.Format
	buf    []byte
}

// NewElementarySource reads r in chunks of size bytes and labels them
// with pid and format.
func NewElementarySource(r io.Reader, pid uint16, format audioparse.Format, size int) *ElementarySource {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &ElementarySource{r: r, pid: pid, format: format, buf: make([]byte, size)}
}

// Next returns the next chunk, or io.EOF.
func (s *ElementarySource) Next() (mpegts.Chunk, error) {
	n, err := io.ReadFull(s.r, s.buf)
	if n == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return mpegts.Chunk{}, err
	}
	data := make([]byte, n)
	copy(data, s.buf[:n])
	return mpegts.Chunk{PID: s.pid, Format: s.format, Data: data, PTS: audioparse.NoPTS}, nil
}
