// Package pipeline orchestrates the reader-to-worker data flow: it pulls
// chunks from a transport or elementary source and fans them out to one
// extract.Worker per PID, collecting per-stream statistics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/extract"
	"github.com/zsiec/esaudio/internal/mpegts"
	"github.com/zsiec/esaudio/media"
)

// ChunkSource yields input chunks until io.EOF.
type ChunkSource interface {
	Next() (mpegts.Chunk, error)
}

// SinkFactory opens the sink for a newly seen stream.
type SinkFactory func(pid uint16, format audioparse.Format) (extract.Sink, error)

// Config configures a Pipeline.
type Config struct {
	// Format forces the audio format of every stream. FormatNone takes
	// the format from the PMT.
	Format     audioparse.Format
	BufferSize int
	NewSink    SinkFactory
	Logger     *slog.Logger
}

// Pipeline routes chunks to per-PID workers.
type Pipeline struct {
	log *slog.Logger
	cfg Config

	chunksRead    atomic.Int64
	chunksSkipped atomic.Int64

	mu      sync.Mutex
	workers map[uint16]*extract.Worker
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		log:     log.With("component", "pipeline"),
		cfg:     cfg,
		workers: make(map[uint16]*extract.Worker),
	}
}

// Run reads src until io.EOF, then drains the workers. It returns the first
// error from the source, a sink, or the context.
func (p *Pipeline) Run(ctx context.Context, src ChunkSource) error {
	g, ctx := errgroup.WithContext(ctx)
	chans := make(map[uint16]chan mpegts.Chunk)
	warned := make(map[uint16]bool)

	g.Go(func() error {
		defer func() {
			for _, ch := range chans {
				close(ch)
			}
		}()
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			p.chunksRead.Add(1)

			ch, ok := chans[c.PID]
			if !ok {
				ch, err = p.start(ctx, g, c, warned)
				if err != nil {
					return err
				}
				if ch == nil {
					p.chunksSkipped.Add(1)
					continue
				}
				chans[c.PID] = ch
			}

			select {
			case ch <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	return g.Wait()
}

// start creates the worker for the stream of c. It returns a nil channel
// when the stream has no parseable format.
func (p *Pipeline) start(ctx context.Context, g *errgroup.Group, c mpegts.Chunk, warned map[uint16]bool) (chan mpegts.Chunk, error) {
	format := p.cfg.Format
	if format == audioparse.FormatNone {
		format = c.Format
	}
	if !format.Supported() {
		if !warned[c.PID] {
			p.log.Warn("no supported audio format for stream, skipping", "pid", c.PID, "format", format.String())
			warned[c.PID] = true
		}
		return nil, nil
	}

	sink, err := p.cfg.NewSink(c.PID, format)
	if err != nil {
		return nil, fmt.Errorf("open sink for PID 0x%X: %w", c.PID, err)
	}
	w, err := extract.NewWorker(extract.Config{
		PID:        c.PID,
		Format:     format,
		BufferSize: p.cfg.BufferSize,
		Sink:       sink,
		Logger:     p.log,
	})
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.workers[c.PID] = w
	p.mu.Unlock()
	p.log.Info("stream started", "pid", c.PID, "format", format.String())

	ch := make(chan mpegts.Chunk, media.ChunkBufferSize)
	g.Go(func() error {
		return w.Run(ctx, ch)
	})
	return ch, nil
}

// Stats returns the counters of every worker. Call it after Run returns.
func (p *Pipeline) Stats() map[uint16]extract.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[uint16]extract.Stats, len(p.workers))
	for pid, w := range p.workers {
		out[pid] = w.Stats()
	}
	return out
}

// Chunks returns how many chunks were read and how many were skipped for
// lack of a format.
func (p *Pipeline) Chunks() (read, skipped int64) {
	return p.chunksRead.Load(), p.chunksSkipped.Load()
}
