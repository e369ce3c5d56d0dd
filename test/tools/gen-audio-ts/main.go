// gen-audio-ts writes a synthetic transport stream carrying MPEG audio,
// AC-3 and ADTS streams, for exercising esaudio without real captures.
//
// Usage:
//
//	gen-audio-ts -o test.ts -formats mpeg,ac3,aac -seconds 10
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/tsgen"
)

const (
	pmtPID    = 0x1000
	firstPID  = 0x101
	startPTS  = 90000
	perPES    = 4 // frames per PES packet
	tablesGap = 90000 / 2
)

func main() {
	out := flag.String("o", "test.ts", "output file")
	formats := flag.String("formats", "mpeg,ac3,aac", "comma-separated audio formats")
	seconds := flag.Float64("seconds", 10, "stream duration")
	flag.Parse()

	streams, err := parseStreams(*formats)
	if err != nil {
		slog.Error("invalid -formats", "error", err)
		os.Exit(2)
	}

	f, err := os.Create(*out)
	if err != nil {
		slog.Error("create output", "error", err)
		os.Exit(1)
	}
	bw := bufio.NewWriter(f)

	m := tsgen.NewMuxer(bw, pmtPID, streams...)
	if err := generate(m, streams, int64(*seconds*90000)); err != nil {
		slog.Error("generate", "error", err)
		os.Exit(1)
	}
	if err := bw.Flush(); err != nil {
		slog.Error("flush", "error", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		slog.Error("close", "error", err)
		os.Exit(1)
	}

	pids := make([]string, len(streams))
	for i, s := range streams {
		pids[i] = fmt.Sprintf("0x%X=%s", s.PID, s.Format)
	}
	slog.Info("wrote stream", "file", *out, "packets", m.Packets(), "streams", strings.Join(pids, ","))
}

func parseStreams(list string) ([]tsgen.Stream, error) {
	var streams []tsgen.Stream
	for i, name := range strings.Split(list, ",") {
		format := audioparse.ParseFormat(strings.TrimSpace(name))
		if !format.Supported() {
			return nil, fmt.Errorf("unsupported format %q", name)
		}
		streams = append(streams, tsgen.Stream{PID: uint16(firstPID + i), Format: format})
	}
	return streams, nil
}

type track struct {
	stream   tsgen.Stream
	frames   [][]byte
	duration int64
	next     int
	pts      int64
}

// generate interleaves the streams in PTS order, repeating PAT and PMT
// every half second of the earliest stream.
func generate(m *tsgen.Muxer, streams []tsgen.Stream, span int64) error {
	tracks := make([]*track, len(streams))
	for i, s := range streams {
		one, err := tsgen.Frames(s.Format, 1)
		if err != nil {
			return err
		}
		d, err := tsgen.Duration(one[0], s.Format)
		if err != nil {
			return err
		}
		frames, err := tsgen.Frames(s.Format, int(span/d)+1)
		if err != nil {
			return err
		}
		tracks[i] = &track{stream: s, frames: frames, duration: d, pts: startPTS}
	}

	nextTables := int64(startPTS)
	for {
		live := tracks[:0:0]
		for _, t := range tracks {
			if t.next < len(t.frames) {
				live = append(live, t)
			}
		}
		if len(live) == 0 {
			return nil
		}
		sort.Slice(live, func(i, j int) bool { return live[i].pts < live[j].pts })
		t := live[0]

		if t.pts >= nextTables {
			if err := m.WriteTables(); err != nil {
				return err
			}
			nextTables += tablesGap
		}

		end := min(t.next+perPES, len(t.frames))
		var payload []byte
		for _, f := range t.frames[t.next:end] {
			payload = append(payload, f...)
		}
		if err := m.WritePES(t.stream, audioparse.PTS(t.pts), payload); err != nil {
			return err
		}
		t.pts += int64(end-t.next) * t.duration
		t.next = end
	}
}
