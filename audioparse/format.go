package audioparse

import "strings"

// Format identifies the elementary stream syntax a [Stream] parses.
type Format uint8

const (
	FormatNone Format = iota
	FormatAC3
	FormatMPEGAudio
	FormatAAC
	FormatLPCM
	FormatUnknown
)

// Minimum bytes needed from the start of a frame before its header can be
// decoded.
const (
	minHeaderMPEG = 4
	minHeaderAC3  = 7
	minHeaderAAC  = 7
)

func (f Format) String() string {
	switch f {
	case FormatAC3:
		return "AC3"
	case FormatMPEGAudio:
		return "MPEG"
	case FormatAAC:
		return "AAC"
	case FormatLPCM:
		return "LPCM"
	case FormatNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseFormat maps a name such as "MPEG", "AC3", "AAC" or "LPCM" to its
// Format. Matching is case-insensitive and follows the prefix rules of the
// command line tool: "MPEG2" selects FormatMPEGAudio.
func ParseFormat(name string) Format {
	n := strings.ToUpper(name)
	switch {
	case strings.HasPrefix(n, "MPEG"), n == "MP2", n == "MP3":
		return FormatMPEGAudio
	case strings.HasPrefix(n, "AC3"), n == "A52":
		return FormatAC3
	case strings.HasPrefix(n, "LPCM"):
		return FormatLPCM
	case strings.HasPrefix(n, "AAC"), n == "ADTS":
		return FormatAAC
	}
	return FormatUnknown
}

// Supported reports whether frames of this format can be located.
func (f Format) Supported() bool {
	return f.codec() != nil
}

// syncPattern is the two-byte frame start marker: the first byte matches
// exactly, the second under mask.
type syncPattern struct {
	b1, b2, mask byte
}

// codec is the capability set every supported format implements.
type codec interface {
	sync() syncPattern
	minHeader() int
	decode(hdr []byte) (Header, error)
	// revalidate checks that got describes the same stream as est.
	revalidate(est, got Header) error
}

func (f Format) codec() codec {
	switch f {
	case FormatMPEGAudio:
		return mpegCodec{}
	case FormatAC3:
		return ac3Codec{}
	case FormatAAC:
		return adtsCodec{}
	}
	return nil
}

// MinHeaderBytes returns the number of bytes needed to decode a header of
// this format, or 0 if the format is unsupported.
func (f Format) MinHeaderBytes() int {
	c := f.codec()
	if c == nil {
		return 0
	}
	return c.minHeader()
}
