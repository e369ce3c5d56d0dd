package srt

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/esaudio/internal/ingest"
)

// srtReadBufferSize is the read buffer for SRT socket reads.
// 1316 bytes = 7 MPEG-TS packets (188 * 7), the standard SRT payload size.
const srtReadBufferSize = 1316 * 10

// srtLatencyNs is the SRT latency setting in nanoseconds (120ms).
const srtLatencyNs = 120_000_000

const defaultDialTimeout = 10 * time.Second

// PullRequest describes a remote SRT source to pull from.
type PullRequest struct {
	Address     string
	StreamID    string
	DialTimeout time.Duration
}

// ParseURL parses srt://host:port?streamid=... into a PullRequest.
func ParseURL(raw string) (PullRequest, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return PullRequest{}, fmt.Errorf("parse SRT URL: %w", err)
	}
	if u.Scheme != "srt" {
		return PullRequest{}, fmt.Errorf("SRT URL scheme %q, want srt", u.Scheme)
	}
	if u.Host == "" {
		return PullRequest{}, fmt.Errorf("SRT URL %q has no host", raw)
	}
	req := PullRequest{Address: u.Host, StreamID: u.Query().Get("streamid")}
	if req.StreamID == "" {
		req.StreamID = strings.TrimPrefix(u.Path, "/")
	}
	return req, nil
}

// Pull dials the remote SRT listener with a timeout and returns the
// connection as a source. The source must be closed by the caller.
func Pull(ctx context.Context, req PullRequest, log *slog.Logger) (*ingest.Source, error) {
	if req.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "srt-caller")

	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs
	cfg.StreamID = req.StreamID

	log.Info("dialing", "address", req.Address, "stream_id", req.StreamID)

	type dialResult struct {
		conn *srtgo.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := srtgo.Dial(req.Address, cfg)
		ch <- dialResult{conn, err}
	}()

	dialTimeout := req.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	timer := time.NewTimer(dialTimeout)
	defer timer.Stop()

	// Drain the dial result in the background and close any leaked connection.
	abandon := func() {
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("SRT dial failed: %w", res.err)
		}
		log.Info("connected", "address", req.Address)
		src := ingest.NewSource(streamKey(req.StreamID), ingest.FormatMPEGTS, newConnReader(ctx, res.conn, nil))
		src.SetRemoteAddr(req.Address)
		return src, nil
	case <-timer.C:
		abandon()
		return nil, fmt.Errorf("SRT dial timed out after %s", dialTimeout)
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	}
}
