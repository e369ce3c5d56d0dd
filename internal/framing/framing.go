// Package framing writes and reads the binary frame-record format produced
// by esaudio. Each record is
//
//	[pid (varint)] [format (1 byte)] [pts (varint)] [length (varint)] [payload]
//
// with QUIC variable-length integers (RFC 9000 §16). Records follow each
// other with no further delimiting, so a file is a plain concatenation.
// There is no marker for a missing timestamp: such frames carry pts 0 and
// read back as 0.
package framing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/quic-go/quic-go/quicvarint"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/media"
)

// MaxPayload bounds the payload length a Reader accepts.
const MaxPayload = 1 << 20

const maxPID = 0x1FFF

// Record is one framed audio frame.
type Record struct {
	PID    uint16
	Format audioparse.Format
	// PTS is never NoPTS after a round trip; a missing timestamp is
	// stored as 0.
	PTS     audioparse.PTS
	Payload []byte
}

// AppendRecord appends the encoding of r to buf. An invalid PTS is written
// as zero.
func AppendRecord(buf []byte, r Record) []byte {
	pts := r.PTS
	if !pts.Valid() {
		pts = 0
	}
	buf = quicvarint.Append(buf, uint64(r.PID))
	buf = append(buf, byte(r.Format))
	buf = quicvarint.Append(buf, uint64(pts&audioparse.MaxPTS))
	buf = quicvarint.Append(buf, uint64(len(r.Payload)))
	return append(buf, r.Payload...)
}

// Writer encodes frames as records. It is safe for concurrent use; each
// record is written in one piece.
type Writer struct {
	mu      sync.Mutex
	bw      *bufio.Writer
	scratch []byte
	records int64
	bytes   int64
}

// NewWriter returns a Writer that buffers output to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteFrame writes f as one record.
func (w *Writer) WriteFrame(f *media.AudioFrame) error {
	return w.Write(Record{PID: f.PID, Format: f.Format, PTS: f.PTS, Payload: f.Data})
}

// Write writes r.
func (w *Writer) Write(r Record) error {
	if r.PID > maxPID {
		return fmt.Errorf("framing: PID 0x%X out of range", r.PID)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scratch = AppendRecord(w.scratch[:0], r)
	n, err := w.bw.Write(w.scratch)
	w.bytes += int64(n)
	if err != nil {
		return fmt.Errorf("framing: write record: %w", err)
	}
	w.records++
	return nil
}

// Flush writes any buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bw.Flush()
}

// Stats returns the number of records and bytes written.
func (w *Writer) Stats() (records, bytes int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records, w.bytes
}

// Reader decodes records written by a Writer.
type Reader struct {
	br *bufio.Reader
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Next returns the next record. It returns io.EOF at a record boundary and
// io.ErrUnexpectedEOF if the input ends inside a record.
func (r *Reader) Next() (Record, error) {
	var rec Record

	pid, err := quicvarint.Read(r.br)
	if err != nil {
		return rec, err
	}
	if pid > maxPID {
		return rec, fmt.Errorf("framing: PID 0x%X out of range", pid)
	}
	rec.PID = uint16(pid)

	format, err := r.br.ReadByte()
	if err != nil {
		return rec, truncated("format", err)
	}
	rec.Format = audioparse.Format(format)

	pts, err := quicvarint.Read(r.br)
	if err != nil {
		return rec, truncated("pts", err)
	}
	rec.PTS = audioparse.PTS(pts) & audioparse.MaxPTS

	length, err := quicvarint.Read(r.br)
	if err != nil {
		return rec, truncated("length", err)
	}
	if length > MaxPayload {
		return rec, fmt.Errorf("framing: payload of %d bytes exceeds %d", length, MaxPayload)
	}
	rec.Payload = make([]byte, length)
	if _, err := io.ReadFull(r.br, rec.Payload); err != nil {
		return rec, truncated("payload", err)
	}
	return rec, nil
}

func truncated(field string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("framing: read %s: %w", field, err)
}
