package tsgen

import (
	"fmt"

	"github.com/zsiec/esaudio/audioparse"
)

// Frames returns n valid frames of format with deterministic payloads:
// MPEG-1 Layer II at 128 kbit/s and 44.1 kHz with encoder-style padding,
// 192 kbit/s 48 kHz stereo AC-3, or 48 kHz stereo ADTS of varying length.
func Frames(format audioparse.Format, n int) ([][]byte, error) {
	out := make([][]byte, 0, n)
	var slots int // MPEG padding accumulator
	for i := range n {
		var hdr []byte
		var size int
		switch format {
		case audioparse.FormatMPEGAudio:
			// 144000*128/44100 leaves a fraction of 42300/44100 slot.
			slots += 42300
			pad := byte(0)
			if slots >= 44100 {
				slots -= 44100
				pad = 1
			}
			hdr = []byte{0xFF, 0xFD, 0x80 | pad<<1, 0x00}
			size = 417 + int(pad)
		case audioparse.FormatAC3:
			hdr = []byte{0x0B, 0x77, 0x00, 0x00, 0x14, 0x40, 0x40}
			size = 768
		case audioparse.FormatAAC:
			size = 300 + 24*(i%5)
			hdr = []byte{
				0xFF, 0xF1,
				1<<6 | 3<<2, // AAC-LC, 48 kHz
				2<<6 | byte(size>>11)&0x03,
				byte(size >> 3),
				byte(size&0x07)<<5 | 0x1F,
				0xFC,
			}
		default:
			return nil, fmt.Errorf("tsgen: no frame generator for %v", format)
		}

		f := make([]byte, size)
		copy(f, hdr)
		for j := len(hdr); j < size; j++ {
			f[j] = byte(1 + (i+j)%7)
		}
		out = append(out, f)
	}
	return out, nil
}

// Duration returns the duration of one frame of format in 90 kHz ticks.
func Duration(frame []byte, format audioparse.Format) (int64, error) {
	h, err := audioparse.Decode(frame, format)
	if err != nil {
		return 0, err
	}
	return int64(h.SamplesPerFrame) * 90000 / int64(h.SampleRate), nil
}
