package srt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/esaudio/internal/ingest"
)

// Accept listens on addr and returns the first publish connection that
// presents a stream ID. The listener is closed together with the source.
func Accept(ctx context.Context, addr string, log *slog.Logger) (*ingest.Source, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "srt-server")

	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs

	l, err := srtgo.Listen(addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("SRT listen on %s: %w", addr, err)
	}
	log.Info("listening", "addr", addr)

	l.SetAcceptRejectFunc(func(req srtgo.ConnRequest) srtgo.RejectReason {
		if req.StreamID == "" {
			return srtgo.RejPeer
		}
		return 0
	})

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("accept error", "error", err)
			continue
		}

		key := streamKey(conn.StreamID())
		log.Info("publish", "stream_key", key, "remote", conn.RemoteAddr())

		src := ingest.NewSource(key, ingest.FormatMPEGTS, newConnReader(ctx, conn, func() { l.Close() }))
		src.SetRemoteAddr(conn.RemoteAddr().String())
		return src, nil
	}
}

// connReader adapts an SRT connection to io.ReadCloser. Reads are served
// from a message buffer of srtReadBufferSize so callers may read in any
// size. The connection is closed when ctx is done.
type connReader struct {
	conn    *srtgo.Conn
	buf     []byte
	pending []byte
	onClose func()

	once sync.Once
	stop func() bool
}

func newConnReader(ctx context.Context, conn *srtgo.Conn, onClose func()) *connReader {
	c := &connReader{
		conn:    conn,
		buf:     make([]byte, srtReadBufferSize),
		onClose: onClose,
	}
	c.stop = context.AfterFunc(ctx, func() { c.Close() })
	return c
}

func (c *connReader) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		n, err := c.conn.Read(c.buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("SRT read: %w", err)
		}
		c.pending = c.buf[:n]
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *connReader) Close() error {
	c.once.Do(func() {
		c.stop()
		c.conn.Close()
		if c.onClose != nil {
			c.onClose()
		}
	})
	return nil
}

func streamKey(streamID string) string {
	streamID = strings.TrimPrefix(streamID, "/")
	streamID = strings.TrimPrefix(streamID, "live/")
	if streamID == "" {
		return "default"
	}
	return streamID
}
