package mpegts

import (
	"fmt"

	"github.com/zsiec/esaudio/audioparse"
)

const (
	tableIDPAT = 0x00
	tableIDPMT = 0x02
)

// Audio stream types carried in the PMT.
const (
	streamTypeMPEG1Audio = 0x03
	streamTypeMPEG2Audio = 0x04
	streamTypePrivatePES = 0x06
	streamTypeADTS       = 0x0F
	streamTypeLPCM       = 0x80
	streamTypeAC3        = 0x81
)

const (
	descriptorRegistration = 0x05
	descriptorDVBAC3       = 0x6A
)

// streamFormat maps a PMT stream type and its ES descriptors to an audio
// format. Private PES streams are AC-3 only when a descriptor says so.
func streamFormat(streamType uint8, descriptors []byte) audioparse.Format {
	switch streamType {
	case streamTypeMPEG1Audio, streamTypeMPEG2Audio:
		return audioparse.FormatMPEGAudio
	case streamTypeADTS:
		return audioparse.FormatAAC
	case streamTypeAC3:
		return audioparse.FormatAC3
	case streamTypeLPCM:
		return audioparse.FormatLPCM
	case streamTypePrivatePES:
		if hasAC3Descriptor(descriptors) {
			return audioparse.FormatAC3
		}
	}
	return audioparse.FormatNone
}

func hasAC3Descriptor(descriptors []byte) bool {
	for i := 0; i+2 <= len(descriptors); {
		tag, n := descriptors[i], int(descriptors[i+1])
		body := descriptors[i+2 : min(i+2+n, len(descriptors))]
		switch {
		case tag == descriptorDVBAC3:
			return true
		case tag == descriptorRegistration && string(body) == "AC-3":
			return true
		}
		i += 2 + n
	}
	return false
}

// sectionAssembler collects the payloads of one PSI PID until a complete
// section is available.
type sectionAssembler struct {
	buf []byte
}

// add appends a packet payload and returns the complete sections once the
// table is assembled. Payloads before the first unit start are ignored.
func (a *sectionAssembler) add(p Packet) []byte {
	if p.Header.PayloadUnitStartIndicator {
		a.buf = append(a.buf[:0], p.Payload...)
	} else if len(a.buf) > 0 {
		a.buf = append(a.buf, p.Payload...)
	} else {
		return nil
	}
	if !isPSIComplete(a.buf) {
		return nil
	}
	out := a.buf
	a.buf = nil
	return out
}

func (a *sectionAssembler) reset() { a.buf = nil }

// isPSIComplete checks whether payload contains complete PSI sections.
func isPSIComplete(payload []byte) bool {
	if len(payload) < 1 {
		return false
	}
	offset := 1 + int(payload[0])
	if offset >= len(payload) {
		return false
	}
	for offset < len(payload) {
		if payload[offset] == 0xFF {
			return true // stuffing
		}
		if offset+3 > len(payload) {
			return false
		}
		if payload[offset+1]&0x80 == 0 {
			return true // zero padding, not a section header
		}
		sectionLength := int(payload[offset+1]&0x0F)<<8 | int(payload[offset+2])
		if offset+3+sectionLength > len(payload) {
			return false
		}
		offset += 3 + sectionLength
	}
	return true
}

// forEachSection calls fn with every PSI section in payload, after the
// pointer field.
func forEachSection(payload []byte, fn func(tableID byte, section []byte) error) error {
	if len(payload) < 1 {
		return fmt.Errorf("mpegts: PSI payload too short")
	}
	offset := 1 + int(payload[0])
	if offset >= len(payload) {
		return fmt.Errorf("mpegts: PSI pointer field out of range")
	}
	for offset+3 <= len(payload) {
		tableID := payload[offset]
		if tableID == 0xFF || payload[offset+1]&0x80 == 0 {
			break
		}
		sectionLength := int(payload[offset+1]&0x0F)<<8 | int(payload[offset+2])
		end := offset + 3 + sectionLength
		if end > len(payload) {
			break
		}
		if err := fn(tableID, payload[offset:end]); err != nil {
			return err
		}
		offset = end
	}
	return nil
}

// parsePATSection returns the program entries of a PAT section,
// skipping the NIT entry (program 0).
//
//	[0]    table_id
//	[1-2]  section_syntax_indicator(1) + zero(1) + reserved(2) + section_length(12)
//	[3-4]  transport_stream_id
//	[5]    reserved(2) + version(5) + current_next(1)
//	[6-7]  section_number, last_section_number
//	[8..N-4] program entries (4 bytes each)
//	[N-4..N] CRC32
func parsePATSection(data []byte) ([]patProgram, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("mpegts: PAT too short")
	}
	if err := verifyCRC32(data); err != nil {
		return nil, fmt.Errorf("mpegts: PAT %w", err)
	}

	var programs []patProgram
	for i := 8; i+4 <= len(data)-4; i += 4 {
		num := uint16(data[i])<<8 | uint16(data[i+1])
		if num == 0 {
			continue
		}
		programs = append(programs, patProgram{
			ProgramNumber: num,
			PMTPID:        uint16(data[i+2]&0x1F)<<8 | uint16(data[i+3]),
		})
	}
	return programs, nil
}

// parsePMTSection returns the elementary streams of a PMT section.
//
//	[8-9]   reserved(3) + PCR_PID(13)
//	[10-11] reserved(4) + program_info_length(12)
//	[...]   program descriptors, elementary stream entries, CRC32
func parsePMTSection(data []byte) ([]pmtStream, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("mpegts: PMT too short")
	}
	if err := verifyCRC32(data); err != nil {
		return nil, fmt.Errorf("mpegts: PMT %w", err)
	}

	end := len(data) - 4
	offset := 12 + (int(data[10]&0x0F)<<8 | int(data[11]))

	var streams []pmtStream
	for offset+5 <= end {
		streamType := data[offset]
		pid := uint16(data[offset+1]&0x1F)<<8 | uint16(data[offset+2])
		infoLen := int(data[offset+3]&0x0F)<<8 | int(data[offset+4])
		descStart := offset + 5
		descEnd := min(descStart+infoLen, end)

		streams = append(streams, pmtStream{
			PID:        pid,
			StreamType: streamType,
			Format:     streamFormat(streamType, data[descStart:descEnd]),
		})
		offset = descStart + infoLen
	}
	return streams, nil
}
