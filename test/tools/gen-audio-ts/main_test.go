package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/mpegts"
	"github.com/zsiec/esaudio/internal/tsgen"
)

func TestParseStreams(t *testing.T) {
	t.Parallel()
	streams, err := parseStreams("mpeg, AC3,aac")
	if err != nil {
		t.Fatal(err)
	}
	want := []audioparse.Format{audioparse.FormatMPEGAudio, audioparse.FormatAC3, audioparse.FormatAAC}
	for i, s := range streams {
		if s.Format != want[i] || s.PID != uint16(firstPID+i) {
			t.Errorf("stream %d = %+v", i, s)
		}
	}
	if _, err := parseStreams("ac3,lpcm"); err == nil {
		t.Error("lpcm should be rejected")
	}
}

func TestGenerateOrdered(t *testing.T) {
	t.Parallel()
	streams, _ := parseStreams("mpeg,ac3,aac")
	var buf bytes.Buffer
	if err := generate(tsgen.NewMuxer(&buf, pmtPID, streams...), streams, 90000); err != nil {
		t.Fatal(err)
	}

	r := mpegts.NewReader(context.Background(), &buf)
	last := make(map[uint16]audioparse.PTS)
	for {
		c, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if !c.PTS.Valid() {
			continue
		}
		if prev, ok := last[c.PID]; ok && c.PTS <= prev {
			t.Errorf("PID 0x%X: PTS %d after %d", c.PID, c.PTS, prev)
		}
		last[c.PID] = c.PTS
	}
	if len(last) != 3 {
		t.Errorf("got timestamps for %d streams, want 3", len(last))
	}
}
