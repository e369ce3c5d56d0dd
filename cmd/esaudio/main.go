package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/zsiec/esaudio/internal/ingest"
	"github.com/zsiec/esaudio/internal/ingest/srt"
	"github.com/zsiec/esaudio/internal/mpegts"
	"github.com/zsiec/esaudio/internal/pipeline"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("invalid arguments", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("esaudio starting",
		"version", version,
		"input", opts.inputName(),
		"format", opts.format.String(),
		"output", opts.output,
		"records", opts.records,
	)

	if err := run(ctx, opts, slog.Default()); err != nil {
		slog.Error("extraction failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, log *slog.Logger) error {
	src, err := openInput(ctx, opts, log)
	if err != nil {
		return err
	}
	defer src.Close()

	var chunks pipeline.ChunkSource
	var ts *mpegts.Reader
	if opts.raw {
		chunks = pipeline.NewElementarySource(src, 0, opts.format, pipeline.DefaultChunkSize)
	} else {
		readerOpts := []mpegts.ReaderOpt{mpegts.WithLogger(log)}
		if len(opts.pids) > 0 {
			readerOpts = append(readerOpts, mpegts.WithPIDs(opts.pids...))
		}
		ts = mpegts.NewReader(ctx, src, readerOpts...)
		chunks = ts
	}

	out := newOutput(opts, log)
	p := pipeline.New(pipeline.Config{
		Format:     opts.format,
		BufferSize: opts.bufSize,
		NewSink:    out.sink,
		Logger:     log,
	})

	runErr := p.Run(ctx, chunks)
	if errors.Is(runErr, context.Canceled) {
		log.Info("interrupted, flushing output")
		runErr = nil
	}
	closeErr := out.Close()

	summarize(log, p, ts, src)
	return errors.Join(runErr, closeErr)
}

func openInput(ctx context.Context, opts options, log *slog.Logger) (*ingest.Source, error) {
	format := ingest.FormatMPEGTS
	if opts.raw {
		format = ingest.FormatElementary
	}

	switch {
	case opts.srtURL != "":
		req, err := srt.ParseURL(opts.srtURL)
		if err != nil {
			return nil, err
		}
		return srt.Pull(ctx, req, log)
	case opts.srtListen != "":
		return srt.Accept(ctx, opts.srtListen, log)
	case opts.input == "" || opts.input == "-":
		return ingest.NewSource("stdin", format, io.NopCloser(os.Stdin)), nil
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return ingest.NewSource(filepath.Base(opts.input), format, f), nil
}

func summarize(log *slog.Logger, p *pipeline.Pipeline, ts *mpegts.Reader, src *ingest.Source) {
	in := src.Stats()
	attrs := []any{"source", src.Key, "bytes_in", in.BytesReceived, "uptime_ms", in.UptimeMs}
	if in.RemoteAddr != "" {
		attrs = append(attrs, "remote", in.RemoteAddr)
	}
	if ts != nil {
		packets, skipped := ts.Stats()
		attrs = append(attrs, "packets", packets, "resync_bytes", skipped)
	}
	read, ignored := p.Chunks()
	attrs = append(attrs, "chunks", read, "chunks_ignored", ignored)
	log.Info("input summary", attrs...)

	for pid, st := range p.Stats() {
		log.Info("stream summary",
			"pid", pid,
			"frames", st.Frames,
			"bytes", st.Bytes,
			"sample_rate", st.SampleRate,
			"channels", st.Channels,
			"last_pts", st.LastPTS.String(),
			"resets", st.Resets,
			"dropped", st.Dropped,
			"gaps", st.Gaps,
		)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
