package audioparse

import "fmt"

type ac3Codec struct{}

func (ac3Codec) sync() syncPattern { return syncPattern{b1: 0x0B, b2: 0x77, mask: 0xFF} }

func (ac3Codec) minHeader() int { return minHeaderAC3 }

// decode reads the AC-3 syncinfo and the leading bsi fields:
// syncword(16) crc1(16) fscod(2) frmsizecod(6) bsid(5) bsmod(3) acmod(3) ...
func (ac3Codec) decode(hdr []byte) (Header, error) {
	h := Header{Format: FormatAC3, SamplesPerFrame: ac3SamplesPerFrame}

	code := int(hdr[4] & 0x3F)
	h.BitRateIndex = code
	h.BitRate = ac3BitRates[code>>1] * 1000
	if h.BitRate == 0 {
		return h, fmt.Errorf("%w: frmsizecod %d", ErrUnknownBitRate, code)
	}

	half := ac3Half[(hdr[5]>>3)&0x0F]
	fscod := int(hdr[4]&0xC0) >> 6
	if ac3SampleRates[fscod] == 0 {
		return h, fmt.Errorf("%w: fscod %d", ErrUnknownSampleRate, fscod)
	}
	h.SampleRate = (ac3SampleRates[fscod] * 100) >> half
	h.FrameSize = ac3FrameSize(fscod, code, h.BitRate)

	acmod := hdr[6] >> 5
	flags := int(acmod)
	if hdr[6]&0xF8 == 0x50 {
		flags = ac3DolbyFlag
		h.DolbySurround = true
	}
	if hdr[6]&ac3LFEMask[acmod] != 0 {
		flags |= ac3LFEFlag
		h.LFE = true
	}
	h.Channels = ac3Channels[flags&0x07]
	if h.LFE {
		h.Channels++
	}
	return h, nil
}

func (ac3Codec) revalidate(est, got Header) error {
	if got.BitRate != est.BitRate {
		return fmt.Errorf("%w: bit rate %d, stream has %d", ErrHeaderMismatch, got.BitRate, est.BitRate)
	}
	if got.SampleRate != est.SampleRate {
		return fmt.Errorf("%w: sample rate %d, stream has %d", ErrHeaderMismatch, got.SampleRate, est.SampleRate)
	}
	return nil
}

// ac3FrameSize returns the frame length in bytes. At 44.1 kHz the low bit
// of frmsizecod selects between the two word counts that average out the
// fractional rate.
func ac3FrameSize(fscod, code, bitRate int) int {
	switch fscod {
	case 0:
		return 4 * bitRate / 1000
	case 1:
		return 2 * (320*bitRate/147000 + code&1)
	case 2:
		return 6 * bitRate / 1000
	}
	return 0
}
