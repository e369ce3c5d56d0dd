package mpegts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/zsiec/esaudio/audioparse"
)

const (
	testPMTPID   = 0x1000
	testVideoPID = 0x100
	testAudioPID = 0x101
)

func programTables() [][]byte {
	pat := buildPAT(1, []struct{ num, pid uint16 }{{1, testPMTPID}})
	pmt := buildPMT(1, testVideoPID, []pmtEntry{
		{streamType: 0x1B, pid: testVideoPID},
		{streamType: streamTypeAC3, pid: testAudioPID},
	})
	return [][]byte{psiPacket(pidPAT, 0, pat), psiPacket(testPMTPID, 0, pmt)}
}

func esPayload(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func join(packets ...[][]byte) []byte {
	var out []byte
	for _, ps := range packets {
		for _, p := range ps {
			out = append(out, p...)
		}
	}
	return out
}

func readAll(t *testing.T, r *Reader) []Chunk {
	t.Helper()
	var chunks []Chunk
	for {
		c, err := r.Next()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		if err != nil {
			t.Fatal(err)
		}
		chunks = append(chunks, c)
	}
}

func concat(chunks []Chunk) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c.Data...)
	}
	return out
}

func TestReaderDiscoversAudio(t *testing.T) {
	t.Parallel()
	es1, es2 := esPayload(500, 1), esPayload(300, 7)
	audio1, cc := packetize(testAudioPID, 0, buildPES(0xBD, 90000, es1))
	audio2, _ := packetize(testAudioPID, cc, buildPES(0xBD, 92880, es2))
	video, _ := packetize(testVideoPID, 0, buildPES(0xE0, 90000, esPayload(400, 3)))

	stream := join(programTables(), audio1, video, audio2)
	r := NewReader(context.Background(), bytes.NewReader(stream))
	chunks := readAll(t, r)

	var ptss []audioparse.PTS
	for _, c := range chunks {
		if c.PID != testAudioPID {
			t.Fatalf("chunk for PID 0x%X, want only 0x%X", c.PID, testAudioPID)
		}
		if c.Format != audioparse.FormatAC3 {
			t.Errorf("format = %v, want AC3", c.Format)
		}
		if c.Discontinuity {
			t.Error("unexpected discontinuity")
		}
		if c.PTS.Valid() {
			ptss = append(ptss, c.PTS)
		}
	}
	if len(ptss) != 2 || ptss[0] != 90000 || ptss[1] != 92880 {
		t.Errorf("PTS values = %v, want [90000 92880]", ptss)
	}
	if !bytes.Equal(concat(chunks), append(es1, es2...)) {
		t.Error("elementary stream not reproduced")
	}
	if streams := r.Streams(); len(streams) != 1 || streams[0].PID != testAudioPID {
		t.Errorf("Streams() = %+v", streams)
	}
}

func TestReaderPinnedPIDs(t *testing.T) {
	t.Parallel()
	es := esPayload(400, 9)
	audio, _ := packetize(testAudioPID, 0, buildPES(0xC0, 1000, es))
	other, _ := packetize(0x102, 0, buildPES(0xC0, 1000, esPayload(100, 1)))

	r := NewReader(context.Background(), bytes.NewReader(join(audio, other)), WithPIDs(testAudioPID))
	chunks := readAll(t, r)
	if !bytes.Equal(concat(chunks), es) {
		t.Error("pinned PID payload not reproduced")
	}
	if chunks[0].Format != audioparse.FormatNone {
		t.Errorf("format = %v before any PMT", chunks[0].Format)
	}
}

func TestReaderPinnedPIDIgnoresOtherAudio(t *testing.T) {
	t.Parallel()
	pat := buildPAT(1, []struct{ num, pid uint16 }{{1, testPMTPID}})
	pmt := buildPMT(1, testVideoPID, []pmtEntry{
		{streamType: streamTypeADTS, pid: testAudioPID},
		{streamType: streamTypeAC3, pid: 0x102},
	})
	tables := [][]byte{psiPacket(pidPAT, 0, pat), psiPacket(testPMTPID, 0, pmt)}
	audio, _ := packetize(testAudioPID, 0, buildPES(0xC0, 0, esPayload(50, 1)))
	other, _ := packetize(0x102, 0, buildPES(0xBD, 0, esPayload(50, 1)))

	r := NewReader(context.Background(), bytes.NewReader(join(tables, audio, other)), WithPIDs(testAudioPID))
	chunks := readAll(t, r)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Format != audioparse.FormatAAC {
		t.Errorf("format = %v, want AAC from PMT", chunks[0].Format)
	}
}

func TestReaderResync(t *testing.T) {
	t.Parallel()
	es := esPayload(600, 2)
	audio, _ := packetize(testAudioPID, 0, buildPES(0xBD, 0, es))

	stream := append(bytes.Repeat([]byte{0x12}, 50), join(audio)...)
	r := NewReader(context.Background(), bytes.NewReader(stream), WithPIDs(testAudioPID))
	chunks := readAll(t, r)
	if !bytes.Equal(concat(chunks), es) {
		t.Error("payload not reproduced after resync")
	}
	if _, skipped := r.Stats(); skipped != 50 {
		t.Errorf("skipped = %d, want 50", skipped)
	}
}

func TestReaderContinuity(t *testing.T) {
	t.Parallel()
	audio, _ := packetize(testAudioPID, 0, buildPES(0xBD, 0, esPayload(184*4, 1)))
	if len(audio) != 5 {
		t.Fatalf("got %d packets, want 5", len(audio))
	}

	// Repeat packet 1, drop packet 3.
	packets := [][]byte{audio[0], audio[1], audio[1], audio[2], audio[4]}
	r := NewReader(context.Background(), bytes.NewReader(join(packets)), WithPIDs(testAudioPID))
	chunks := readAll(t, r)
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}
	for i, c := range chunks {
		if want := i == 3; c.Discontinuity != want {
			t.Errorf("chunk %d discontinuity = %v, want %v", i, c.Discontinuity, want)
		}
	}
}

func TestReaderSignaledDiscontinuity(t *testing.T) {
	t.Parallel()
	first, _ := packetize(testAudioPID, 0, buildPES(0xBD, 0, esPayload(100, 1)))
	second, _ := packetize(testAudioPID, 9, buildPES(0xBD, 5000, esPayload(100, 1)))
	second[0][5] = 0x80 // discontinuity_indicator

	r := NewReader(context.Background(), bytes.NewReader(join(first, second)), WithPIDs(testAudioPID))
	for _, c := range readAll(t, r) {
		if c.Discontinuity {
			t.Error("signaled discontinuity should not be reported as loss")
		}
	}
}

func TestReaderDropsTEI(t *testing.T) {
	t.Parallel()
	audio, _ := packetize(testAudioPID, 0, buildPES(0xBD, 0, esPayload(50, 1)))
	bad := bytes.Clone(audio[0])
	bad[1] |= 0x80

	r := NewReader(context.Background(), bytes.NewReader(join([][]byte{bad})), WithPIDs(testAudioPID))
	if chunks := readAll(t, r); len(chunks) != 0 {
		t.Errorf("got %d chunks from errored packet", len(chunks))
	}
}

func TestReaderPartialTrailingPacket(t *testing.T) {
	t.Parallel()
	audio, _ := packetize(testAudioPID, 0, buildPES(0xBD, 0, esPayload(50, 1)))
	stream := append(join(audio), audio[0][:100]...)

	r := NewReader(context.Background(), bytes.NewReader(stream), WithPIDs(testAudioPID))
	if chunks := readAll(t, r); len(chunks) != 1 {
		t.Errorf("got %d chunks, want 1", len(chunks))
	}
}

func TestReaderContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(ctx, bytes.NewReader(join(programTables())))
	if _, err := r.Next(); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestReaderBadPSICRC(t *testing.T) {
	t.Parallel()
	tables := programTables()
	tables[1][10] ^= 0x01 // inside the PMT section
	audio, _ := packetize(testAudioPID, 0, buildPES(0xBD, 0, esPayload(50, 1)))

	r := NewReader(context.Background(), bytes.NewReader(join(tables, audio)))
	if chunks := readAll(t, r); len(chunks) != 0 {
		t.Errorf("got %d chunks without a valid PMT", len(chunks))
	}
}
