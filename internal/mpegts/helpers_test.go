package mpegts

import "encoding/binary"

func makePacket(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	buf := make([]byte, packetSize)
	buf[0] = syncByte
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	buf[3] = 0x10 | (cc & 0x0F) // payload only
	if pusi {
		buf[1] |= 0x40
	}
	copy(buf[4:], payload)
	return buf
}

// makeStuffedPacket carries a payload shorter than 184 bytes, padding the
// packet with an adaptation field.
func makeStuffedPacket(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	buf := make([]byte, packetSize)
	buf[0] = syncByte
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	if pusi {
		buf[1] |= 0x40
	}
	buf[3] = 0x30 | (cc & 0x0F)
	afLen := packetSize - 5 - len(payload)
	buf[4] = byte(afLen)
	for i := 0; i < afLen; i++ {
		buf[5+i] = 0xFF
	}
	if afLen > 0 {
		buf[5] = 0x00 // no adaptation flags
	}
	copy(buf[5+afLen:], payload)
	return buf
}

// packetize splits one PES packet into transport packets on pid, starting
// at continuity counter cc. It returns the packets and the next counter.
func packetize(pid uint16, cc uint8, pes []byte) ([][]byte, uint8) {
	var out [][]byte
	first := true
	for len(pes) > 0 {
		n := min(len(pes), packetSize-4)
		if n == packetSize-4 {
			out = append(out, makePacket(pid, cc, first, pes[:n]))
		} else {
			out = append(out, makeStuffedPacket(pid, cc, first, pes[:n]))
		}
		pes = pes[n:]
		cc = (cc + 1) & 0x0F
		first = false
	}
	return out, cc
}

// encodePTS encodes a 33-bit PTS/DTS value into 5 bytes with marker bits.
func encodePTS(marker byte, value int64) []byte {
	bs := make([]byte, 5)
	bs[0] = marker<<4 | byte((value>>29)&0x0E) | 0x01
	bs[1] = byte(value >> 22)
	bs[2] = byte((value>>14)&0xFE) | 0x01
	bs[3] = byte(value >> 7)
	bs[4] = byte((value<<1)&0xFE) | 0x01
	return bs
}

// buildPES builds an audio PES packet. A negative pts omits the timestamp.
func buildPES(streamID byte, pts int64, data []byte) []byte {
	var opt []byte
	indicator := byte(0)
	if pts >= 0 {
		indicator = 2
		opt = encodePTS(0x02, pts)
	}
	packetLength := 3 + len(opt) + len(data)

	buf := make([]byte, 0, 9+len(opt)+len(data))
	buf = append(buf, 0x00, 0x00, 0x01, streamID)
	buf = append(buf, byte(packetLength>>8), byte(packetLength))
	buf = append(buf, 0x80, indicator<<6, byte(len(opt)))
	buf = append(buf, opt...)
	buf = append(buf, data...)
	return buf
}

// buildPAT constructs a valid PAT section with CRC32.
func buildPAT(tsID uint16, programs []struct{ num, pid uint16 }) []byte {
	sectionLength := 5 + len(programs)*4 + 4

	data := make([]byte, 3+sectionLength)
	data[0] = tableIDPAT
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(tsID >> 8)
	data[4] = byte(tsID)
	data[5] = 0xC1 // reserved(2) + version(0) + current_next(1)

	offset := 8
	for _, p := range programs {
		data[offset] = byte(p.num >> 8)
		data[offset+1] = byte(p.num)
		data[offset+2] = 0xE0 | byte(p.pid>>8)&0x1F
		data[offset+3] = byte(p.pid)
		offset += 4
	}
	binary.BigEndian.PutUint32(data[offset:], CRC32(data[:offset]))
	return data
}

type pmtEntry struct {
	streamType  uint8
	pid         uint16
	descriptors []byte
}

// buildPMT constructs a valid PMT section with CRC32.
func buildPMT(programNum, pcrPID uint16, streams []pmtEntry) []byte {
	esLen := 0
	for _, s := range streams {
		esLen += 5 + len(s.descriptors)
	}
	sectionLength := 9 + esLen + 4

	data := make([]byte, 3+sectionLength)
	data[0] = tableIDPMT
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(programNum >> 8)
	data[4] = byte(programNum)
	data[5] = 0xC1
	data[8] = 0xE0 | byte(pcrPID>>8)&0x1F
	data[9] = byte(pcrPID)
	data[10] = 0xF0 // program_info_length = 0

	offset := 12
	for _, s := range streams {
		data[offset] = s.streamType
		data[offset+1] = 0xE0 | byte(s.pid>>8)&0x1F
		data[offset+2] = byte(s.pid)
		data[offset+3] = 0xF0 | byte(len(s.descriptors)>>8)&0x0F
		data[offset+4] = byte(len(s.descriptors))
		offset += 5
		offset += copy(data[offset:], s.descriptors)
	}
	binary.BigEndian.PutUint32(data[offset:], CRC32(data[:offset]))
	return data
}

// psiPacket wraps a section in a single packet with a zero pointer field.
func psiPacket(pid uint16, cc uint8, section []byte) []byte {
	return makePacket(pid, cc, true, append([]byte{0x00}, section...))
}
