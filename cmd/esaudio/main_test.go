package main

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/framing"
	"github.com/zsiec/esaudio/media"
)

func TestParsePIDs(t *testing.T) {
	t.Parallel()
	got, err := parsePIDs("0x101, 258,0X1FF")
	if err != nil {
		t.Fatal(err)
	}
	want := []uint16{0x101, 258, 0x1FF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pid %d = 0x%X, want 0x%X", i, got[i], want[i])
		}
	}

	for _, bad := range []string{"0x1FFF", "abc", "1,,2", "70000"} {
		if _, err := parsePIDs(bad); err == nil {
			t.Errorf("parsePIDs(%q) should fail", bad)
		}
	}
	if pids, err := parsePIDs(""); err != nil || pids != nil {
		t.Errorf("empty list = %v, %v", pids, err)
	}
}

func TestParseFlags(t *testing.T) {
	t.Parallel()
	opts, err := parseFlags([]string{"-t", "ac3", "-p", "0x44", "-o", "out.ac3", "-buf", "16384", "in.ts"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.format != audioparse.FormatAC3 || opts.output != "out.ac3" || opts.bufSize != 16384 || opts.input != "in.ts" {
		t.Errorf("opts = %+v", opts)
	}
	if len(opts.pids) != 1 || opts.pids[0] != 0x44 {
		t.Errorf("pids = %v", opts.pids)
	}

	bad := [][]string{
		{"-t", "lpcm", "in.ts"},
		{"-t", "wav"},
		{"-r", "in.es"},
		{"-r", "-t", "aac", "-p", "1", "in.es"},
		{"-r", "-t", "aac", "-srt", "srt://host:9000"},
		{"-srt", "srt://host:9000", "in.ts"},
		{"-buf", "0"},
		{"a.ts", "b.ts"},
	}
	for _, args := range bad {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%q) should fail", args)
		}
	}
}

func TestPIDPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path   string
		pid    uint16
		format audioparse.Format
		want   string
	}{
		{"out.ac3", 0x101, audioparse.FormatAC3, "out.0101.ac3"},
		{"dir/audio", 0x44, audioparse.FormatAAC, "dir/audio.0044.aac"},
		{"x", 0x1FFE, audioparse.FormatMPEGAudio, "x.1ffe.mpa"},
	}
	for _, tc := range tests {
		if got := pidPath(tc.path, tc.pid, tc.format); got != tc.want {
			t.Errorf("pidPath(%q, 0x%X) = %q, want %q", tc.path, tc.pid, got, tc.want)
		}
	}
}

type memFile struct {
	bytes.Buffer
	closed bool
}

func (m *memFile) Close() error {
	m.closed = true
	return nil
}

func testOutput(opts options) (*output, map[string]*memFile) {
	files := make(map[string]*memFile)
	o := newOutput(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	o.create = func(name string) (io.WriteCloser, error) {
		f := &memFile{}
		files[name] = f
		return f, nil
	}
	return o, files
}

func TestOutputRawPerPID(t *testing.T) {
	t.Parallel()
	o, files := testOutput(options{output: "out.ac3"})

	for _, pid := range []uint16{0x101, 0x102} {
		s, err := o.sink(pid, audioparse.FormatAC3)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.WriteFrame(&media.AudioFrame{PID: pid, Data: []byte{byte(pid)}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]byte{"out.0101.ac3": 0x01, "out.0102.ac3": 0x02} {
		f := files[name]
		if f == nil {
			t.Fatalf("no file %q, have %v", name, files)
		}
		if !f.closed || !bytes.Equal(f.Bytes(), []byte{want}) {
			t.Errorf("%s: closed=%v data=%x", name, f.closed, f.Bytes())
		}
	}
}

func TestOutputSingleStream(t *testing.T) {
	t.Parallel()
	o, files := testOutput(options{output: "out.aac", pids: []uint16{0x44}})
	if _, err := o.sink(0x44, audioparse.FormatAAC); err != nil {
		t.Fatal(err)
	}
	if _, ok := files["out.aac"]; !ok {
		t.Errorf("files = %v, want out.aac", files)
	}
	s, err := o.sink(0x45, audioparse.FormatAAC)
	if err != nil {
		t.Fatalf("second stream: %v", err)
	}
	if err := s.WriteFrame(&media.AudioFrame{PID: 0x45, Data: []byte{0x45}}); err != nil {
		t.Fatal(err)
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files["out.aac"].Len() != 0 {
		t.Errorf("second stream leaked into output: %v", files)
	}
}

func TestOutputStdoutDiscardsExtraStreams(t *testing.T) {
	t.Parallel()
	o, files := testOutput(options{output: "-"})
	if _, err := o.sink(0x101, audioparse.FormatAC3); err != nil {
		t.Fatal(err)
	}
	for _, pid := range []uint16{0x102, 0x103} {
		s, err := o.sink(pid, audioparse.FormatAC3)
		if err != nil {
			t.Fatalf("PID 0x%X: %v", pid, err)
		}
		if err := s.WriteFrame(&media.AudioFrame{PID: pid, Data: []byte{1}}); err != nil {
			t.Errorf("PID 0x%X: %v", pid, err)
		}
	}
	if len(files) != 0 {
		t.Errorf("stdout output created files: %v", files)
	}
}

func TestOutputRecordsShared(t *testing.T) {
	t.Parallel()
	o, files := testOutput(options{output: "out.rec", records: true})
	a, err := o.sink(0x101, audioparse.FormatAC3)
	if err != nil {
		t.Fatal(err)
	}
	b, err := o.sink(0x102, audioparse.FormatAAC)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("record sinks should share one writer")
	}
	if len(files) != 1 {
		t.Errorf("opened %d files, want 1", len(files))
	}
}

func TestOutputRecordsReachFile(t *testing.T) {
	t.Parallel()
	o, files := testOutput(options{output: "out.rec", records: true})
	s, err := o.sink(0x101, audioparse.FormatAC3)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFrame(&media.AudioFrame{PID: 0x101, Format: audioparse.FormatAC3, PTS: 3000, Data: []byte{0x0B, 0x77}}); err != nil {
		t.Fatal(err)
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}
	if len(o.bufs) != 0 {
		t.Errorf("records output has %d extra buffers", len(o.bufs))
	}
	f := files["out.rec"]
	if f == nil || !f.closed {
		t.Fatalf("out.rec missing or not closed: %v", files)
	}
	rec, err := framing.NewReader(&f.Buffer).Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec.PID != 0x101 || rec.PTS != 3000 || !bytes.Equal(rec.Payload, []byte{0x0B, 0x77}) {
		t.Errorf("record = %+v", rec)
	}
}
