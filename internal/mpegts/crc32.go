package mpegts

import "fmt"

// crcTable holds the MPEG-2 CRC32 (polynomial 0x04C11DB7, no reflection).
var crcTable = func() (t [256]uint32) {
	for i := range t {
		crc := uint32(i) << 24
		for range 8 {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}()

// CRC32 returns the MPEG-2 CRC of data. A PSI section including its
// trailing CRC sums to zero.
func CRC32(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}

// verifyCRC32 checks a section whose last four bytes are its CRC.
func verifyCRC32(section []byte) error {
	if len(section) < 4 {
		return fmt.Errorf("data too short for CRC32")
	}
	if CRC32(section) != 0 {
		return fmt.Errorf("CRC32 mismatch")
	}
	return nil
}
