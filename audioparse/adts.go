package audioparse

import "fmt"

type adtsCodec struct{}

func (adtsCodec) sync() syncPattern { return syncPattern{b1: 0xFF, b2: 0xF0, mask: 0xF0} }

func (adtsCodec) minHeader() int { return minHeaderAAC }

// decode reads the fixed and variable ADTS header:
// Byte 2: [profile:2][sampling_freq_idx:4][private:1][channel_cfg_hi:1]
// Byte 3: [channel_cfg_lo:2][original:1][home:1][copyright:2][frame_length_hi:2]
// Byte 4: [frame_length_mid:8]
// Byte 5: [frame_length_lo:3][buffer_fullness_hi:5]
// Byte 6: [buffer_fullness_lo:6][num_raw_blocks_minus1:2]
func (adtsCodec) decode(hdr []byte) (Header, error) {
	h := Header{Format: FormatAAC}

	// ADTS always codes layer 0; anything else is an MPEG audio header.
	if hdr[1]&0x06 != 0 {
		return h, ErrInvalidLayer
	}

	sfi := int(hdr[2]&0x3C) >> 2
	h.SampleRate = aacSampleRates[sfi]
	if h.SampleRate == 0 {
		return h, fmt.Errorf("%w: sampling frequency index %d", ErrUnknownSampleRate, sfi)
	}

	cfg := int(hdr[2]&0x01)<<2 | int(hdr[3]&0xC0)>>6
	h.Channels = aacChannels[cfg]
	if h.Channels == 0 {
		return h, fmt.Errorf("%w: channel configuration %d", ErrUnknownChannels, cfg)
	}

	h.FrameSize = int(hdr[3]&0x03)<<11 | int(hdr[4])<<3 | int(hdr[5])>>5
	if h.FrameSize < minHeaderAAC {
		return h, fmt.Errorf("%w: frame length %d", ErrInvalidFrameSize, h.FrameSize)
	}

	h.RawBlocks = int(hdr[6]&0x03) + 1
	h.SamplesPerFrame = aacSamplesPerBlock * h.RawBlocks
	h.BitRate = h.FrameSize * 8 * h.SampleRate / h.SamplesPerFrame
	return h, nil
}

func (adtsCodec) revalidate(est, got Header) error {
	if got.SampleRate != est.SampleRate {
		return fmt.Errorf("%w: sample rate %d, stream has %d", ErrHeaderMismatch, got.SampleRate, est.SampleRate)
	}
	if got.Channels != est.Channels {
		return fmt.Errorf("%w: %d channels, stream has %d", ErrHeaderMismatch, got.Channels, est.Channels)
	}
	return nil
}
