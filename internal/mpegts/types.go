// Package mpegts extracts audio elementary-stream payloads from an MPEG
// transport stream. It resynchronizes on the 0x47 sync byte, drops packets
// flagged with transport errors, tracks continuity counters per PID, strips
// PES headers, and discovers audio PIDs from the PAT and PMT when the caller
// does not name them.
package mpegts

import "github.com/zsiec/esaudio/audioparse"

// Packet is a parsed 188-byte transport stream packet.
type Packet struct {
	Header  PacketHeader
	Payload []byte
}

// PacketHeader contains the parsed header fields of a transport stream packet.
type PacketHeader struct {
	PID                       uint16
	ContinuityCounter         uint8
	HasAdaptationField        bool
	HasPayload                bool
	PayloadUnitStartIndicator bool
	TransportErrorIndicator   bool
	DiscontinuityIndicator    bool
}

// Chunk is the elementary-stream payload of one transport packet.
type Chunk struct {
	PID    uint16
	Format audioparse.Format // FormatNone until the PMT names the stream type
	Data   []byte

	// PTS is the timestamp of the PES packet that starts in this chunk, or
	// audioparse.NoPTS.
	PTS audioparse.PTS

	// Discontinuity reports that packets were lost on this PID since the
	// previous chunk.
	Discontinuity bool
}

// StreamInfo describes an elementary stream the Reader delivers.
type StreamInfo struct {
	PID        uint16
	StreamType uint8
	Format     audioparse.Format
}

type patProgram struct {
	ProgramNumber uint16
	PMTPID        uint16
}

type pmtStream struct {
	PID        uint16
	StreamType uint8
	Format     audioparse.Format
}
