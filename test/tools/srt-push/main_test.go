package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/tsgen"
)

func TestSelectDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		override float64
		probed   float64
		want     float64
	}{
		{"override takes precedence", 30.0, 28.0, 30.0},
		{"probed when no override", 0, 28.0, 28.0},
		{"default 60s when all zero", 0, 0, 60.0},
		{"negative override ignored", -1, 25.0, 25.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := selectDuration(tt.override, tt.probed); got != tt.want {
				t.Errorf("selectDuration(%v, %v) = %v, want %v", tt.override, tt.probed, got, tt.want)
			}
		})
	}
}

func TestProbeDuration(t *testing.T) {
	t.Parallel()
	s := tsgen.Stream{PID: 0x101, Format: audioparse.FormatAC3}
	var buf bytes.Buffer
	m := tsgen.NewMuxer(&buf, 0x1000, s)
	if err := m.WriteTables(); err != nil {
		t.Fatal(err)
	}
	frames, _ := tsgen.Frames(s.Format, 11)
	for i, f := range frames {
		if err := m.WritePES(s, audioparse.PTS(10000+2880*i), f); err != nil {
			t.Fatal(err)
		}
	}
	if got := probeDuration(buf.Bytes()); got != 0.32 {
		t.Errorf("probeDuration = %v, want 0.32", got)
	}
	if got := probeDuration([]byte{0x47, 0x00}); got != 0 {
		t.Errorf("probeDuration of garbage = %v", got)
	}
}

func TestPushWritesAll(t *testing.T) {
	t.Parallel()
	data := bytes.Repeat([]byte{0x47}, 188*20)
	var out bytes.Buffer
	if err := push(context.Background(), &out, data, 1e9, 2); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 2*len(data) {
		t.Errorf("wrote %d bytes, want %d", out.Len(), 2*len(data))
	}
}
