package audioparse

type scanState uint8

const (
	scanNoByte1 scanState = iota
	scanByte1Seen
)

// FindSync returns the offset of the first frame sync word of format f in
// window. It returns ErrIncompleteHeader when a sync word (or its first
// byte) starts too close to the end of window for a full header to follow,
// and ErrNoSync when window holds no candidate at all.
func FindSync(window []byte, f Format) (int, error) {
	c := f.codec()
	if c == nil {
		return 0, ErrUnknownFormat
	}
	return scan(window, c.sync(), c.minHeader())
}

func scan(window []byte, p syncPattern, minHeader int) (int, error) {
	state := scanNoByte1
	for i, b := range window {
		switch state {
		case scanNoByte1:
			if b == p.b1 {
				state = scanByte1Seen
			}
		case scanByte1Seen:
			if b&p.mask == p.b2 {
				start := i - 1
				if start+minHeader > len(window) {
					return start, ErrIncompleteHeader
				}
				return start, nil
			}
			if b != p.b1 {
				state = scanNoByte1
			}
		}
	}
	if state == scanByte1Seen {
		return len(window) - 1, ErrIncompleteHeader
	}
	return len(window), ErrNoSync
}
