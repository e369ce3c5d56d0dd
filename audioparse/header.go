package audioparse

// Header holds the canonical parameters decoded from one frame header.
// Fields that do not apply to a format are left zero.
type Header struct {
	Format          Format
	Layer           int // MPEG audio layer 1-3
	LSF             bool
	SampleRate      int // Hz
	BitRate         int // bit/s; estimated for AAC
	BitRateIndex    int
	Channels        int
	Padding         int
	FrameSize       int // bytes, header included
	SamplesPerFrame int

	LFE           bool // AC-3 low-frequency effects channel present
	DolbySurround bool // AC-3 stereo stream flagged as Dolby Surround encoded
	RawBlocks     int  // AAC raw data blocks in the frame
}

// Decode decodes the frame header at the start of hdr.
func Decode(hdr []byte, f Format) (Header, error) {
	c := f.codec()
	if c == nil {
		return Header{}, ErrUnknownFormat
	}
	if len(hdr) < c.minHeader() {
		return Header{}, ErrIncompleteHeader
	}
	p := c.sync()
	if hdr[0] != p.b1 || hdr[1]&p.mask != p.b2 {
		return Header{}, ErrNoSync
	}
	return c.decode(hdr)
}

// Duration returns the frame duration in 90 kHz ticks.
func (h Header) Duration() int64 {
	return frameDuration(h.SamplesPerFrame, h.SampleRate)
}
