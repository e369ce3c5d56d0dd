package audioparse

import (
	"errors"
	"testing"
)

func TestFindSync(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		format  Format
		window  []byte
		wantAt  int
		wantErr error
	}{
		{"at start", FormatMPEGAudio, []byte{0xFF, 0xFD, 0x80, 0x00}, 0, nil},
		{"after junk", FormatMPEGAudio, []byte{0x00, 0x01, 0xFF, 0xFD, 0x80, 0x00}, 2, nil},
		// A repeated 0xFF passes the MPEG second-byte mask, so the match is at 0.
		{"repeated first byte", FormatMPEGAudio, []byte{0xFF, 0xFF, 0xFD, 0x80, 0x00}, 0, nil},
		{"false first byte", FormatAC3, []byte{0x0B, 0x0B, 0x77, 0, 0, 0x14, 0x40, 0x40}, 1, nil},
		{"broken candidate retried", FormatAC3, []byte{0x0B, 0x00, 0x0B, 0x77, 0, 0, 0x14, 0x40, 0x40}, 2, nil},
		{"masked second byte", FormatAAC, []byte{0xFF, 0xF9, 0x4C, 0x80, 0x25, 0x9F, 0xFC}, 0, nil},
		{"partial header", FormatAAC, []byte{0x00, 0xFF, 0xF1, 0x4C}, 1, ErrIncompleteHeader},
		{"first byte at end", FormatMPEGAudio, []byte{0x00, 0x00, 0xFF}, 2, ErrIncompleteHeader},
		{"none", FormatAC3, []byte{0x00, 0x77, 0x0B, 0x00}, 4, ErrNoSync},
		{"empty", FormatAAC, nil, 0, ErrNoSync},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			at, err := FindSync(tt.window, tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if at != tt.wantAt {
				t.Errorf("offset = %d, want %d", at, tt.wantAt)
			}
		})
	}
}

func TestFindSyncUnknownFormat(t *testing.T) {
	t.Parallel()
	if _, err := FindSync([]byte{0xFF, 0xFF}, FormatLPCM); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := map[string]Format{
		"MPEG":  FormatMPEGAudio,
		"mpeg2": FormatMPEGAudio,
		"AC3":   FormatAC3,
		"aac":   FormatAAC,
		"LPCM":  FormatLPCM,
		"opus":  FormatUnknown,
	}
	for name, want := range tests {
		if got := ParseFormat(name); got != want {
			t.Errorf("ParseFormat(%q) = %v, want %v", name, got, want)
		}
	}
	if FormatLPCM.Supported() {
		t.Error("LPCM should not be supported")
	}
	if FormatAC3.MinHeaderBytes() != 7 {
		t.Errorf("AC3 min header = %d, want 7", FormatAC3.MinHeaderBytes())
	}
}
