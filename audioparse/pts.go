package audioparse

import "fmt"

// PTS is a 33-bit presentation timestamp on the 90 kHz MPEG system clock.
type PTS uint64

const (
	// NoPTS marks the absence of a timestamp.
	NoPTS PTS = 1 << 63
	// MaxPTS is the largest representable timestamp; arithmetic wraps past it.
	MaxPTS PTS = 1<<33 - 1
)

const (
	ptsClockHz        = 90000
	defaultSampleRate = 48000
)

// Valid reports whether p carries a timestamp.
func (p PTS) Valid() bool {
	return p&NoPTS == 0
}

// Add advances p by d ticks modulo 2^33.
func (p PTS) Add(d int64) PTS {
	return PTS(int64(p)+d) & MaxPTS
}

// String formats p as h:mm:ss.mmm.
func (p PTS) String() string {
	if !p.Valid() {
		return "none"
	}
	ms := uint64(p&MaxPTS) / 90
	return fmt.Sprintf("%d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

// frameDuration converts a frame's sample count to 90 kHz ticks. A zero
// sample rate is treated as 48 kHz.
func frameDuration(samples, sampleRate int) int64 {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	return int64(samples) * ptsClockHz / int64(sampleRate)
}
