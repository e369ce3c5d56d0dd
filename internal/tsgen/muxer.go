// Package tsgen writes synthetic MPEG-TS streams carrying audio elementary
// streams. It backs the test tools and the end-to-end tests; it is not a
// general-purpose multiplexer (no PCR, one program, one PES per write).
package tsgen

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/mpegts"
)

// PacketSize is the fixed size of an MPEG-TS packet.
const PacketSize = 188

// Stream is one elementary stream announced in the PMT.
type Stream struct {
	PID    uint16
	Format audioparse.Format
}

// StreamType returns the PMT stream_type for the stream.
func (s Stream) StreamType() uint8 {
	switch s.Format {
	case audioparse.FormatMPEGAudio:
		return 0x03
	case audioparse.FormatAAC:
		return 0x0F
	case audioparse.FormatAC3:
		return 0x81
	case audioparse.FormatLPCM:
		return 0x80
	}
	return 0x06
}

// StreamID returns the PES stream_id for the stream.
func (s Stream) StreamID() byte {
	if s.Format == audioparse.FormatAC3 || s.Format == audioparse.FormatLPCM {
		return 0xBD // private_stream_1
	}
	return 0xC0
}

// Muxer writes one program to w. It is not safe for concurrent use.
type Muxer struct {
	w       io.Writer
	pmtPID  uint16
	streams []Stream
	cc      map[uint16]byte
	packets int
}

// NewMuxer returns a Muxer for a program whose PMT is carried on pmtPID.
func NewMuxer(w io.Writer, pmtPID uint16, streams ...Stream) *Muxer {
	return &Muxer{
		w:       w,
		pmtPID:  pmtPID,
		streams: streams,
		cc:      make(map[uint16]byte),
	}
}

// Packets returns the number of packets written.
func (m *Muxer) Packets() int { return m.packets }

// WriteTables writes a PAT and PMT.
func (m *Muxer) WriteTables() error {
	if err := m.writeSection(0x0000, PAT(1, m.pmtPID)); err != nil {
		return err
	}
	return m.writeSection(m.pmtPID, PMT(1, m.streams))
}

// WritePES writes data as one PES packet on the stream's PID. An invalid
// pts omits the timestamp.
func (m *Muxer) WritePES(s Stream, pts audioparse.PTS, data []byte) error {
	cc := m.cc[s.PID]
	buf := Packetize(BuildPES(s.StreamID(), pts, data), s.PID, &cc)
	m.cc[s.PID] = cc
	return m.write(buf)
}

func (m *Muxer) writeSection(pid uint16, section []byte) error {
	payload := append([]byte{0x00}, section...) // pointer_field
	cc := m.cc[pid]
	buf := Packetize(payload, pid, &cc)
	m.cc[pid] = cc
	return m.write(buf)
}

func (m *Muxer) write(buf []byte) error {
	if _, err := m.w.Write(buf); err != nil {
		return fmt.Errorf("tsgen: write: %w", err)
	}
	m.packets += len(buf) / PacketSize
	return nil
}

// BuildPES builds a PES packet with an optional PTS. The length field is
// zero when the packet exceeds 65535 bytes.
func BuildPES(streamID byte, pts audioparse.PTS, data []byte) []byte {
	var opt []byte
	flags := byte(0)
	if pts.Valid() {
		flags = 0x80
		opt = encodePTS(0x02, uint64(pts))
	}
	pesLen := 3 + len(opt) + len(data)
	if pesLen > 0xFFFF {
		pesLen = 0
	}

	pes := make([]byte, 0, 9+len(opt)+len(data))
	pes = append(pes, 0x00, 0x00, 0x01, streamID, byte(pesLen>>8), byte(pesLen))
	pes = append(pes, 0x80, flags, byte(len(opt)))
	pes = append(pes, opt...)
	return append(pes, data...)
}

func encodePTS(marker byte, v uint64) []byte {
	return []byte{
		marker<<4 | byte(v>>29)&0x0E | 0x01,
		byte(v >> 22),
		byte(v>>14)&0xFE | 0x01,
		byte(v >> 7),
		byte(v<<1)&0xFE | 0x01,
	}
}

// Packetize splits data into 188-byte packets on pid, advancing the
// continuity counter cc. The last packet is padded with an adaptation field.
func Packetize(data []byte, pid uint16, cc *byte) []byte {
	var out []byte
	first := true
	for len(data) > 0 {
		var pkt [PacketSize]byte
		pkt[0] = 0x47
		pkt[1] = byte(pid>>8) & 0x1F
		pkt[2] = byte(pid)
		if first {
			pkt[1] |= 0x40
			first = false
		}
		pkt[3] = 0x10 | *cc&0x0F
		*cc = (*cc + 1) & 0x0F

		n := copy(pkt[4:], data)
		if stuff := PacketSize - 4 - n; stuff > 0 {
			pkt[3] |= 0x20
			pkt[4] = byte(stuff - 1)
			if stuff > 1 {
				pkt[5] = 0x00
				for i := 6; i < 4+stuff; i++ {
					pkt[i] = 0xFF
				}
			}
			copy(pkt[4+stuff:], data[:n])
		}
		data = data[n:]
		out = append(out, pkt[:]...)
	}
	return out
}

// PAT builds a single-program PAT section with its CRC.
func PAT(program, pmtPID uint16) []byte {
	s := []byte{
		0x00, 0xB0, 13,
		0x00, 0x01, // transport_stream_id
		0xC1, 0x00, 0x00,
		byte(program >> 8), byte(program),
		0xE0 | byte(pmtPID>>8)&0x1F, byte(pmtPID),
	}
	return binary.BigEndian.AppendUint32(s, mpegts.CRC32(s))
}

// PMT builds a PMT section listing streams, with the first stream as the
// PCR PID.
func PMT(program uint16, streams []Stream) []byte {
	pcr := uint16(0x1FFF)
	if len(streams) > 0 {
		pcr = streams[0].PID
	}
	s := []byte{
		0x02, 0xB0, 0x00,
		byte(program >> 8), byte(program),
		0xC1, 0x00, 0x00,
		0xE0 | byte(pcr>>8)&0x1F, byte(pcr),
		0xF0, 0x00,
	}
	for _, st := range streams {
		s = append(s, st.StreamType(), 0xE0|byte(st.PID>>8)&0x1F, byte(st.PID), 0xF0, 0x00)
	}
	sectionLen := len(s) - 3 + 4
	s[1] |= byte(sectionLen>>8) & 0x0F
	s[2] = byte(sectionLen)
	return binary.BigEndian.AppendUint32(s, mpegts.CRC32(s))
}
