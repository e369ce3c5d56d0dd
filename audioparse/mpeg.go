package audioparse

import "fmt"

type mpegCodec struct{}

func (mpegCodec) sync() syncPattern { return syncPattern{b1: 0xFF, b2: 0xF0, mask: 0xF0} }

func (mpegCodec) minHeader() int { return minHeaderMPEG }

// decode reads a four-byte MPEG audio header:
//
//	AAAAAAAA AAAIBBCD EEEEFFGH IIJJKLMM
//
// A sync, B version, C layer, D protection, E bitrate index, F sampling
// frequency index, G padding, I channel mode.
func (mpegCodec) decode(hdr []byte) (Header, error) {
	h := Header{Format: FormatMPEGAudio}

	h.Layer = 4 - int(hdr[1]&0x06)>>1
	if h.Layer > 3 {
		return h, ErrInvalidLayer
	}

	// The sync mask requires the high version bit, so MPEG-2.5 never gets here.
	h.LSF = hdr[1]&0x08 == 0

	sri := int(hdr[2]>>2) & 0x03
	if sri >= len(mpegSampleRates) {
		return h, ErrUnknownSampleRate
	}
	h.SampleRate = mpegSampleRates[sri] >> lsfBit(h.LSF)

	h.BitRateIndex = int(hdr[2] >> 4)
	if h.BitRateIndex >= len(mpegBitRates[0][0]) {
		return h, fmt.Errorf("%w: index %d", ErrUnknownBitRate, h.BitRateIndex)
	}
	h.BitRate = mpegBitRates[lsfBit(h.LSF)][h.Layer-1][h.BitRateIndex] * 1000
	if h.BitRate == 0 {
		// Free-format streams carry no frame size in the header.
		return h, fmt.Errorf("%w: free format", ErrUnknownBitRate)
	}

	h.Padding = int(hdr[2]>>1) & 0x01
	h.FrameSize = mpegFrameSize(h)
	if h.FrameSize == 0 {
		return h, ErrInvalidFrameSize
	}

	if int(hdr[3]>>6)&0x03 == mpegModeMono {
		h.Channels = 1
	} else {
		h.Channels = 2
	}

	switch {
	case h.Layer == 1:
		h.SamplesPerFrame = 384
	case h.Layer == 3 && h.LSF:
		h.SamplesPerFrame = 576
	default:
		h.SamplesPerFrame = 1152
	}
	return h, nil
}

func (mpegCodec) revalidate(est, got Header) error {
	if got.Layer != est.Layer {
		return fmt.Errorf("%w: layer %d, stream has %d", ErrHeaderMismatch, got.Layer, est.Layer)
	}
	if got.BitRate != est.BitRate {
		return fmt.Errorf("%w: bit rate %d, stream has %d", ErrHeaderMismatch, got.BitRate, est.BitRate)
	}
	return nil
}

func mpegFrameSize(h Header) int {
	kbps := h.BitRate / 1000
	switch h.Layer {
	case 1:
		return (kbps*12000/h.SampleRate + h.Padding) * 4
	case 2:
		return kbps*144000/h.SampleRate + h.Padding
	default:
		return kbps*144000/(h.SampleRate<<lsfBit(h.LSF)) + h.Padding
	}
}

func lsfBit(b bool) uint {
	if b {
		return 1
	}
	return 0
}
