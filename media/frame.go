// Package media defines the frame record that flows from the parser
// workers to the output sinks.
package media

import "github.com/zsiec/esaudio/audioparse"

// ChunkBufferSize is the per-stream channel depth between the transport
// reader and a parser worker: about two seconds of 48 kHz AC-3 carried in
// 188-byte packets.
const ChunkBufferSize = 512

// AudioFrame is one complete, header-validated audio frame. Data is owned
// by the frame; the parser's buffer is not referenced.
type AudioFrame struct {
	PID        uint16
	Format     audioparse.Format
	PTS        audioparse.PTS
	Data       []byte
	SampleRate int
	Channels   int
	Samples    int // samples per channel
}

// Duration returns the frame duration in 90 kHz ticks.
func (f *AudioFrame) Duration() int64 {
	rate := f.SampleRate
	if rate <= 0 {
		rate = 48000
	}
	return int64(f.Samples) * 90000 / int64(rate)
}
