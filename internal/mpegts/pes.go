package mpegts

import (
	"errors"
	"fmt"

	"github.com/zsiec/esaudio/audioparse"
)

var errNotPES = errors.New("mpegts: invalid PES start code")

// isPESPayload checks for the PES start code prefix (0x000001).
func isPESPayload(data []byte) bool {
	return len(data) >= 3 && data[0] == 0x00 && data[1] == 0x00 && data[2] == 0x01
}

// hasOptionalHeader reports whether streamID carries the optional PES
// header. padding_stream (0xBE), private_stream_2 (0xBF), ECM (0xF0),
// EMM (0xF1), DSMCC (0xF2), H.222.1 type E (0xF8) and the program stream
// directory (0xFF) do not.
func hasOptionalHeader(streamID byte) bool {
	switch streamID {
	case 0xBE, 0xBF, 0xF0, 0xF1, 0xF2, 0xF8, 0xFF:
		return false
	}
	return true
}

// stripPES removes the PES header from the first payload of a PES packet
// and returns the elementary-stream bytes that follow it, along with the
// PTS when one is present. The header must be contained in payload.
func stripPES(payload []byte) ([]byte, audioparse.PTS, error) {
	if len(payload) < 6 {
		return nil, audioparse.NoPTS, fmt.Errorf("mpegts: PES packet too short (%d bytes)", len(payload))
	}
	if !isPESPayload(payload) {
		return nil, audioparse.NoPTS, errNotPES
	}

	streamID := payload[3]
	if !hasOptionalHeader(streamID) {
		return payload[6:], audioparse.NoPTS, nil
	}
	if len(payload) < 9 {
		return nil, audioparse.NoPTS, fmt.Errorf("mpegts: PES optional header too short")
	}

	// payload[7]: PTS_DTS_indicator(2) + ESCR(1) + ES_rate(1) + DSM_trick(1) + additional_copy(1) + CRC(1) + extension(1)
	// payload[8]: PES_header_data_length
	ptsDTSIndicator := (payload[7] >> 6) & 0x03
	dataStart := 9 + int(payload[8])
	if dataStart > len(payload) {
		return nil, audioparse.NoPTS, fmt.Errorf("mpegts: PES header of %d bytes spans packets", dataStart)
	}

	pts := audioparse.NoPTS
	if ptsDTSIndicator&0x02 != 0 && dataStart >= 14 {
		pts = parsePTS(payload[9:14])
	}
	return payload[dataStart:], pts, nil
}

// parsePTS extracts a 33-bit timestamp from 5 PES timestamp bytes.
func parsePTS(bs []byte) audioparse.PTS {
	base := uint64(bs[0]>>1&0x07)<<30 |
		uint64(bs[1])<<22 |
		uint64(bs[2]>>1&0x7F)<<15 |
		uint64(bs[3])<<7 |
		uint64(bs[4]>>1&0x7F)
	return audioparse.PTS(base)
}
