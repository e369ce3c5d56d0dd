package mpegts

import "fmt"

const (
	packetSize = 188
	syncByte   = 0x47
	pidPAT     = 0x0000
	pidNull    = 0x1FFF
)

// parsePacket decodes the header of buf. Payload aliases buf.
func parsePacket(buf []byte) (Packet, error) {
	var p Packet
	if len(buf) != packetSize {
		return p, fmt.Errorf("mpegts: packet size %d, expected %d", len(buf), packetSize)
	}
	if buf[0] != syncByte {
		return p, fmt.Errorf("mpegts: invalid sync byte 0x%02X", buf[0])
	}

	p.Header.TransportErrorIndicator = buf[1]&0x80 != 0
	p.Header.PayloadUnitStartIndicator = buf[1]&0x40 != 0
	p.Header.PID = uint16(buf[1]&0x1F)<<8 | uint16(buf[2])
	p.Header.HasAdaptationField = buf[3]&0x20 != 0
	p.Header.HasPayload = buf[3]&0x10 != 0
	p.Header.ContinuityCounter = buf[3] & 0x0F

	offset := 4
	if p.Header.HasAdaptationField {
		afLen := int(buf[offset])
		if afLen > 0 {
			p.Header.DiscontinuityIndicator = buf[offset+1]&0x80 != 0
		}
		offset += 1 + afLen
		if offset > packetSize {
			return p, fmt.Errorf("mpegts: adaptation field length %d overruns packet", afLen)
		}
	}

	if p.Header.HasPayload && offset < packetSize {
		p.Payload = buf[offset:]
	}
	return p, nil
}
