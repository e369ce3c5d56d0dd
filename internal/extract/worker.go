// Package extract binds one audioparse.Stream to a flow of input chunks
// and hands every confirmed frame to a Sink.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/mpegts"
	"github.com/zsiec/esaudio/media"
)

// DefaultBufferSize is the main buffer size of a worker's Stream.
const DefaultBufferSize = 7 * 1024

// Sink receives extracted frames. The frame is not retained by the worker
// after WriteFrame returns.
type Sink interface {
	WriteFrame(f *media.AudioFrame) error
}

// Config configures a Worker.
type Config struct {
	PID        uint16
	Format     audioparse.Format
	BufferSize int
	Sink       Sink
	Logger     *slog.Logger
}

// Stats are the counters of one worker.
type Stats struct {
	Frames     uint64
	Bytes      uint64
	Resets     uint64 // fatal parse outcomes
	Dropped    uint64 // bytes discarded by fatal outcomes
	Gaps       uint64 // transport discontinuities
	LastPTS    audioparse.PTS
	SampleRate int
	Channels   int
}

// Worker parses one elementary stream. It is not safe for concurrent use;
// Run owns it for its lifetime.
type Worker struct {
	log    *slog.Logger
	pid    uint16
	format audioparse.Format
	stream *audioparse.Stream
	buf    []byte
	sink   Sink

	stats   Stats
	sinkErr error
}

// NewWorker creates a Worker with its own Stream and main buffer.
func NewWorker(cfg Config) (*Worker, error) {
	if cfg.Sink == nil {
		return nil, errors.New("extract: sink is required")
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	w := &Worker{
		log:    log.With("component", "extract", "pid", cfg.PID),
		pid:    cfg.PID,
		format: cfg.Format,
		buf:    make([]byte, size),
		sink:   cfg.Sink,
		stats:  Stats{LastPTS: audioparse.NoPTS},
	}
	s, err := audioparse.NewStream(audioparse.Config{
		Format:   cfg.Format,
		Buffer:   w.buf,
		OnFrame:  w.onFrame,
		OnConfig: w.onConfig,
		OnError:  w.onError,
		Logger:   log.With("pid", cfg.PID),
	})
	if err != nil {
		return nil, fmt.Errorf("extract: PID 0x%X: %w", cfg.PID, err)
	}
	w.stream = s
	return w, nil
}

// Run feeds chunks from in until in is closed or ctx is done.
func (w *Worker) Run(ctx context.Context, in <-chan mpegts.Chunk) error {
	defer w.logSummary()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-in:
			if !ok {
				w.finish()
				return nil
			}
			if err := w.Feed(c); err != nil {
				return err
			}
		}
	}
}

// Feed parses one chunk. It returns an error only when the sink fails;
// parse failures are absorbed by the Stream, which resynchronizes.
func (w *Worker) Feed(c mpegts.Chunk) error {
	if c.Discontinuity {
		w.stats.Gaps++
		if w.stream.Synchronized() {
			w.log.Debug("transport discontinuity, resetting", "buffered", w.stream.Buffered())
		}
		w.stream.Reset()
	}
	// onError already counts the reset; the status only feeds the log.
	if st, err := w.stream.Parse(c.Data, c.PTS); st == audioparse.StatusFatal {
		w.log.Debug("parse reset", "error", err)
	}
	err := w.sinkErr
	w.sinkErr = nil
	return err
}

// Stats returns the worker counters.
func (w *Worker) Stats() Stats {
	return w.stats
}

func (w *Worker) onFrame(start, length int, pts audioparse.PTS) {
	if w.sinkErr != nil {
		return
	}
	h := w.stream.Header()
	f := &media.AudioFrame{
		PID:        w.pid,
		Format:     w.format,
		PTS:        pts,
		Data:       bytes.Clone(w.buf[start : start+length]),
		SampleRate: h.SampleRate,
		Channels:   h.Channels,
		Samples:    h.SamplesPerFrame,
	}
	w.log.Debug("frame", "start", start, "len", length, "pts", pts.String())
	if err := w.sink.WriteFrame(f); err != nil {
		w.sinkErr = fmt.Errorf("extract: PID 0x%X: %w", w.pid, err)
		return
	}
	w.stats.Frames++
	w.stats.Bytes += uint64(length)
	w.stats.LastPTS = pts
}

func (w *Worker) onConfig(h audioparse.Header) error {
	w.stats.SampleRate = h.SampleRate
	w.stats.Channels = h.Channels
	w.log.Info("stream parameters",
		"format", h.Format.String(),
		"sample_rate", h.SampleRate,
		"channels", h.Channels,
		"bit_rate", h.BitRate,
	)
	return nil
}

func (w *Worker) onError(err error, dropped int) {
	w.stats.Resets++
	w.stats.Dropped += uint64(dropped)
}

// finish accounts for a trailing partial frame at end of input.
func (w *Worker) finish() {
	if n := w.stream.Buffered(); n > 0 {
		w.log.Debug("discarding partial frame at end of input", "bytes", n)
		w.stats.Dropped += uint64(n)
	}
}

func (w *Worker) logSummary() {
	w.log.Info("stream finished",
		"frames", w.stats.Frames,
		"bytes", w.stats.Bytes,
		"resets", w.stats.Resets,
		"dropped", w.stats.Dropped,
		"gaps", w.stats.Gaps,
		"last_pts", w.stats.LastPTS.String(),
	)
}
