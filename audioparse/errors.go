package audioparse

import (
	"errors"
	"fmt"
)

// Stream-level failure kinds. Fatal outcomes of [Stream.Parse] wrap one of
// these in a [*ParseError], so callers branch with errors.Is.
var (
	ErrNoSync               = errors.New("audioparse: no sync word found")
	ErrIncompleteHeader     = errors.New("audioparse: incomplete header")
	ErrHeaderMismatch       = errors.New("audioparse: header does not match stream")
	ErrUnknownFormat        = errors.New("audioparse: unsupported audio format")
	ErrBufferCapacity       = errors.New("audioparse: frame exceeds main buffer capacity")
	ErrConfigRejected       = errors.New("audioparse: stream configuration rejected")
	ErrMissingFrameCallback = errors.New("audioparse: frame callback is required")
)

// Header decoding failures. A decoder returns one of these when a table
// index resolves to a reserved or zero entry.
var (
	ErrInvalidLayer      = errors.New("audioparse: invalid MPEG audio layer")
	ErrUnknownSampleRate = errors.New("audioparse: unknown sample rate")
	ErrUnknownBitRate    = errors.New("audioparse: unknown bit rate")
	ErrUnknownChannels   = errors.New("audioparse: unknown channel configuration")
	ErrInvalidFrameSize  = errors.New("audioparse: invalid frame size")
)

// ParseError describes a fatal outcome of [Stream.Parse]. Kind is one of
// the stream-level sentinels; Err, when set, carries the decoder failure
// that caused it.
type ParseError struct {
	Kind   error
	Format Format
	Offset int // offset into the main buffer where the failure was observed
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Err == nil || e.Err == e.Kind:
		return fmt.Sprintf("%v (%s at offset %d)", e.Kind, e.Format, e.Offset)
	case errors.Is(e.Err, e.Kind):
		// The cause already names the kind.
		return fmt.Sprintf("%v (%s at offset %d)", e.Err, e.Format, e.Offset)
	}
	return fmt.Sprintf("%v (%s at offset %d): %v", e.Kind, e.Format, e.Offset, e.Err)
}

// Unwrap exposes both the kind and the underlying decoder error.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil || e.Err == e.Kind {
		return []error{e.Kind}
	}
	if errors.Is(e.Err, e.Kind) {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}
