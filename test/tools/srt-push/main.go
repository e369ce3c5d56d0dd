// srt-push streams a transport stream file to an SRT listener such as
// `esaudio -srt-listen`, paced to the file's audio timeline.
//
// Usage:
//
//	srt-push -addr 127.0.0.1:6000 -key live/test stream.ts
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	srt "github.com/zsiec/srtgo"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/mpegts"
)

const chunkSize = 188 * 7

func main() {
	addr := flag.String("addr", "127.0.0.1:6000", "SRT listener address")
	key := flag.String("key", "", "stream ID (default: live/<file name>)")
	duration := flag.Float64("duration", 0, "stream duration in seconds (default: from audio PTS)")
	loops := flag.Int("loops", 1, "times to send the file, 0 for forever")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: srt-push [flags] <file.ts>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("read input", "error", err)
		os.Exit(1)
	}
	if len(data)%188 != 0 {
		slog.Warn("file size not a multiple of 188", "size", len(data))
	}

	streamID := *key
	if streamID == "" {
		base := filepath.Base(path)
		streamID = "live/" + strings.TrimSuffix(base, filepath.Ext(base))
	}

	secs := selectDuration(*duration, probeDuration(data))
	rate := float64(len(data)) / secs
	slog.Info("pushing", "file", path, "stream_id", streamID, "addr", *addr, "seconds", secs, "bytes_per_sec", int(rate))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := srt.DefaultConfig()
	cfg.StreamID = streamID
	conn, err := srt.Dial(*addr, cfg)
	if err != nil {
		slog.Error("SRT connect failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := push(ctx, conn, data, rate, *loops); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("push failed", "error", err)
		os.Exit(1)
	}
	slog.Info("done")
}

// push writes data loops times, pacing against a single clock so there is
// no burst at the loop seam.
func push(ctx context.Context, w io.Writer, data []byte, bytesPerSec float64, loops int) error {
	start := time.Now()
	var sent int64
	for loop := 1; loops == 0 || loop <= loops; loop++ {
		for i := 0; i < len(data); i += chunkSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := min(i+chunkSize, len(data))
			if _, err := w.Write(data[i:end]); err != nil {
				return fmt.Errorf("write: %w", err)
			}
			sent += int64(end - i)

			ahead := time.Duration(float64(sent)/bytesPerSec*float64(time.Second)) - time.Since(start)
			if ahead > 0 {
				select {
				case <-time.After(ahead):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		slog.Info("loop complete", "loop", loop, "sent_mb", float64(sent)/(1024*1024))
	}
	return nil
}

// probeDuration returns the PTS span of the first audio stream in seconds,
// or 0 when it cannot be determined.
func probeDuration(data []byte) float64 {
	r := mpegts.NewReader(context.Background(), bytes.NewReader(data),
		mpegts.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	var pid uint16
	first, last := audioparse.NoPTS, audioparse.NoPTS
	for {
		c, err := r.Next()
		if err != nil {
			break
		}
		if !c.PTS.Valid() {
			continue
		}
		if !first.Valid() {
			first, pid = c.PTS, c.PID
		}
		if c.PID == pid {
			last = c.PTS
		}
	}
	if !first.Valid() {
		return 0
	}
	ticks := (int64(last) - int64(first)) & int64(audioparse.MaxPTS)
	return float64(ticks) / 90000
}

// selectDuration prefers an explicit override, then the probed duration,
// then 60 seconds.
func selectDuration(override, probed float64) float64 {
	switch {
	case override > 0:
		return override
	case probed > 0:
		return probed
	}
	return 60
}
