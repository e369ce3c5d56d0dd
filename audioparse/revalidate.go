package audioparse

import "fmt"

// Revalidate checks the frame header expected at the start of window
// against the parameters established in est.
//
// A zero offset with a nil error means the header was confirmed in place;
// est then carries the frame size and other per-frame fields of the new
// header. A positive offset with a nil error means a sync word was found
// that many bytes ahead: the caller skips the stray bytes and calls again.
// ErrIncompleteHeader asks for more data. Any other error means the stream
// can no longer be trusted.
func Revalidate(window []byte, est *Header) (int, error) {
	c := est.Format.codec()
	if c == nil {
		return 0, ErrUnknownFormat
	}
	at, err := scan(window, c.sync(), c.minHeader())
	if err != nil {
		return at, err
	}
	if at > 0 {
		return at, nil
	}

	got, err := c.decode(window)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrHeaderMismatch, err)
	}
	if err := c.revalidate(*est, got); err != nil {
		return 0, err
	}

	est.Padding = got.Padding
	est.FrameSize = got.FrameSize
	est.BitRate = got.BitRate
	est.BitRateIndex = got.BitRateIndex
	est.RawBlocks = got.RawBlocks
	est.SamplesPerFrame = got.SamplesPerFrame
	return 0, nil
}
