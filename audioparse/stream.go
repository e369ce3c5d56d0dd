package audioparse

import (
	"errors"
	"fmt"
	"log/slog"
)

// carrySize bounds the bytes held back while a sync word straddles chunks.
const carrySize = 20

// Status summarizes the outcome of one [Stream.Parse] call.
type Status int

const (
	// StatusOK means the chunk was consumed and ended on a frame boundary.
	StatusOK Status = iota
	// StatusNeedMoreData means the chunk was consumed and a partial frame or
	// header is waiting for the next chunk.
	StatusNeedMoreData
	// StatusFatal means the stream lost synchronization and was reset.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNeedMoreData:
		return "need-more-data"
	case StatusFatal:
		return "fatal"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Config configures a [Stream]. Buffer is owned by the caller and must stay
// valid for the lifetime of the Stream; its length is the fixed capacity of
// the main buffer and bounds the largest frame the Stream accepts.
type Config struct {
	Format Format
	Buffer []byte

	// OnFrame receives each confirmed frame as Buffer[start:start+length].
	// The bytes are only valid until OnFrame returns.
	OnFrame func(start, length int, pts PTS)

	// OnConfig is called when stream parameters first become known, and
	// again if synchronization is re-acquired with different parameters.
	// A non-nil error aborts the synchronization attempt.
	OnConfig func(h Header) error

	// OnError is called on every fatal outcome with the number of buffered
	// bytes that were dropped.
	OnError func(err error, dropped int)

	Logger *slog.Logger
}

// Stream is the persistent parsing context for one elementary stream.
type Stream struct {
	log      *slog.Logger
	format   Format
	codec    codec
	buf      []byte
	onFrame  func(start, length int, pts PTS)
	onConfig func(h Header) error
	onError  func(err error, dropped int)

	synced     bool
	configured bool
	checked    bool // header at frameStart has been confirmed
	hdr        Header

	carry    [carrySize]byte
	carryLen int

	writePos   int
	frameStart int

	lastPTS    PTS
	nextPTS    PTS
	pendingPTS PTS // external timestamp for the frame after the current one
	frames     uint64
}

// NewStream validates cfg and returns an unsynchronized Stream.
func NewStream(cfg Config) (*Stream, error) {
	c := cfg.Format.codec()
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, cfg.Format)
	}
	if cfg.OnFrame == nil {
		return nil, ErrMissingFrameCallback
	}
	if len(cfg.Buffer) < carrySize {
		return nil, fmt.Errorf("%w: %d byte buffer", ErrBufferCapacity, len(cfg.Buffer))
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Stream{
		log:        log.With("component", "audioparse", "format", cfg.Format.String()),
		format:     cfg.Format,
		codec:      c,
		buf:        cfg.Buffer,
		onFrame:    cfg.OnFrame,
		onConfig:   cfg.OnConfig,
		onError:    cfg.OnError,
		lastPTS:    NoPTS,
		nextPTS:    NoPTS,
		pendingPTS: NoPTS,
	}, nil
}

// Synchronized reports whether a valid frame header has been established.
func (s *Stream) Synchronized() bool { return s.synced }

// Header returns the parameters of the current frame. It is zero until the
// stream first synchronizes.
func (s *Stream) Header() Header { return s.hdr }

// LastPTS returns the timestamp of the most recently emitted frame.
func (s *Stream) LastPTS() PTS { return s.lastPTS }

// NextPTS returns the timestamp the next emitted frame will carry.
func (s *Stream) NextPTS() PTS { return s.nextPTS }

// Frames returns the number of frames emitted so far.
func (s *Stream) Frames() uint64 { return s.frames }

// Buffered returns the number of bytes held for the frame in progress.
func (s *Stream) Buffered() int {
	if !s.synced {
		return s.carryLen
	}
	return s.writePos - s.frameStart
}

// Reset drops synchronization and any buffered bytes. The timestamp
// estimate is kept so that a re-acquired stream continues from it unless a
// new external timestamp arrives.
func (s *Stream) Reset() {
	s.synced = false
	s.checked = false
	s.frameStart = 0
	s.writePos = 0
	s.carryLen = 0
	if s.pendingPTS.Valid() {
		s.nextPTS = s.pendingPTS
		s.pendingPTS = NoPTS
	}
}

// Parse consumes the next chunk of the elementary stream. pts is the
// timestamp delivered with the chunk, or NoPTS; it applies to the first
// frame that starts after the chunk arrives.
//
// Frames completed by the chunk are reported through OnFrame before Parse
// returns. A fatal outcome returns StatusFatal with a [*ParseError]; the
// Stream has then been reset and resynchronizes on later chunks.
func (s *Stream) Parse(chunk []byte, pts PTS) (Status, error) {
	if pts.Valid() {
		s.applyPTS(pts & MaxPTS)
	}
	if len(chunk) == 0 {
		return s.status(), nil
	}

	if !s.synced {
		n, err := s.acquire(chunk)
		if err != nil {
			if errors.Is(err, ErrIncompleteHeader) {
				return StatusNeedMoreData, nil
			}
			return StatusFatal, err
		}
		chunk = chunk[n:]
	}
	return s.run(chunk)
}

func (s *Stream) applyPTS(pts PTS) {
	if !s.synced || s.writePos == s.frameStart {
		s.nextPTS = pts
		s.pendingPTS = NoPTS
		return
	}
	s.pendingPTS = pts
}

func (s *Stream) status() Status {
	if s.Buffered() == 0 {
		return StatusOK
	}
	return StatusNeedMoreData
}

// acquire searches for the first valid header, continuing from any bytes
// held in the carry buffer. It returns how much of chunk was consumed; the
// rest of chunk directly follows the bytes now in the main buffer.
func (s *Stream) acquire(chunk []byte) (int, error) {
	p, minHeader := s.codec.sync(), s.codec.minHeader()
	off := 0
	var cause error

	if s.carryLen > 0 {
		off = s.topUpCarry(chunk)
		for s.carryLen > 0 {
			window := s.carry[:s.carryLen]
			at, err := scan(window, p, minHeader)
			switch {
			case errors.Is(err, ErrNoSync):
				s.carryLen = 0
			case errors.Is(err, ErrIncompleteHeader):
				s.shiftCarry(at)
				if off == len(chunk) {
					return off, ErrIncompleteHeader
				}
				off += s.topUpCarry(chunk[off:])
			default:
				h, err := s.codec.decode(window[at:])
				if err != nil {
					cause = err
					s.shiftCarry(at + 1)
					continue
				}
				if err := s.establish(h); err != nil {
					return off, err
				}
				s.writePos = copy(s.buf, window[at:])
				s.carryLen = 0
				return off, nil
			}
		}
	}

	for off < len(chunk) {
		at, err := scan(chunk[off:], p, minHeader)
		if errors.Is(err, ErrNoSync) {
			break
		}
		if errors.Is(err, ErrIncompleteHeader) {
			s.carryLen = copy(s.carry[:], chunk[off+at:])
			return len(chunk), ErrIncompleteHeader
		}
		h, err := s.codec.decode(chunk[off+at:])
		if err != nil {
			s.log.Debug("rejected candidate header", "error", err)
			cause = err
			off += at + 1
			continue
		}
		if err := s.establish(h); err != nil {
			return off + at, err
		}
		s.writePos = 0
		return off + at, nil
	}
	return len(chunk), s.fatal(ErrNoSync, 0, cause)
}

func (s *Stream) topUpCarry(in []byte) int {
	n := copy(s.carry[s.carryLen:], in)
	s.carryLen += n
	return n
}

func (s *Stream) shiftCarry(n int) {
	s.carryLen = copy(s.carry[:], s.carry[n:s.carryLen])
}

func (s *Stream) establish(h Header) error {
	if h.FrameSize > len(s.buf) {
		return s.fatal(ErrBufferCapacity, 0,
			fmt.Errorf("frame of %d bytes, buffer holds %d", h.FrameSize, len(s.buf)))
	}
	if s.onConfig != nil && (!s.configured || !s.sameStream(h)) {
		if err := s.onConfig(h); err != nil {
			return s.fatal(ErrConfigRejected, 0, err)
		}
	}
	s.configured = true
	s.hdr = h
	s.synced = true
	s.checked = true
	s.frameStart = 0
	s.carryLen = 0
	if !s.nextPTS.Valid() {
		s.nextPTS = 0
	}
	s.log.Debug("synchronized",
		"sample_rate", h.SampleRate,
		"bit_rate", h.BitRate,
		"channels", h.Channels,
		"frame_size", h.FrameSize,
	)
	return nil
}

func (s *Stream) sameStream(h Header) bool {
	return s.codec.revalidate(s.hdr, h) == nil &&
		s.hdr.SampleRate == h.SampleRate &&
		s.hdr.Channels == h.Channels
}

// run drives the synchronized state over in until it is exhausted.
func (s *Stream) run(in []byte) (Status, error) {
	minHeader := s.codec.minHeader()
	for {
		if !s.checked {
			if have := s.writePos - s.frameStart; have < minHeader {
				if len(in) == 0 {
					return s.status(), nil
				}
				n, err := s.fill(in, minHeader-have)
				if err != nil {
					return StatusFatal, err
				}
				in = in[n:]
				continue
			}

			at, err := Revalidate(s.buf[s.frameStart:s.writePos], &s.hdr)
			switch {
			case err == nil && at > 0:
				s.log.Debug("skipping bytes before frame header", "bytes", at, "offset", s.frameStart)
				s.frameStart += at
				continue
			case err == nil:
				s.checked = true
			case errors.Is(err, ErrIncompleteHeader):
				if len(in) == 0 {
					return StatusNeedMoreData, nil
				}
				n, err := s.fill(in, minHeader)
				if err != nil {
					return StatusFatal, err
				}
				in = in[n:]
				continue
			case errors.Is(err, ErrNoSync):
				return StatusFatal, s.fatal(ErrNoSync, s.frameStart, nil)
			default:
				return StatusFatal, s.fatal(ErrHeaderMismatch, s.frameStart, err)
			}
		}

		if s.frameStart+s.hdr.FrameSize > len(s.buf) {
			s.compact()
			if s.hdr.FrameSize > len(s.buf) {
				return StatusFatal, s.fatal(ErrBufferCapacity, s.frameStart,
					fmt.Errorf("frame of %d bytes, buffer holds %d", s.hdr.FrameSize, len(s.buf)))
			}
		}
		if need := s.frameStart + s.hdr.FrameSize - s.writePos; need > 0 {
			if len(in) == 0 {
				return StatusNeedMoreData, nil
			}
			n, err := s.fill(in, need)
			if err != nil {
				return StatusFatal, err
			}
			in = in[n:]
			if n < need {
				return StatusNeedMoreData, nil
			}
		}
		s.emit()
	}
}

// fill copies up to want bytes of in to the write position, compacting the
// main buffer first if the bytes would not fit.
func (s *Stream) fill(in []byte, want int) (int, error) {
	want = min(want, len(in))
	if s.writePos+want > len(s.buf) {
		s.compact()
		if s.writePos+want > len(s.buf) {
			return 0, s.fatal(ErrBufferCapacity, s.frameStart,
				fmt.Errorf("%d bytes pending, buffer holds %d", s.writePos+want, len(s.buf)))
		}
	}
	n := copy(s.buf[s.writePos:], in[:want])
	s.writePos += n
	return n, nil
}

func (s *Stream) emit() {
	pts := s.nextPTS
	s.onFrame(s.frameStart, s.hdr.FrameSize, pts)
	s.frames++
	s.lastPTS = pts
	if s.pendingPTS.Valid() {
		s.nextPTS = s.pendingPTS
		s.pendingPTS = NoPTS
	} else {
		s.nextPTS = pts.Add(s.duration())
	}

	s.frameStart += s.hdr.FrameSize
	s.checked = false
	if len(s.buf)-s.frameStart < s.hdr.FrameSize {
		s.compact()
	}
}

func (s *Stream) duration() int64 {
	if s.hdr.SampleRate <= 0 {
		s.log.Warn("sample rate is zero, assuming 48 kHz")
		s.hdr.SampleRate = defaultSampleRate
	}
	return s.hdr.Duration()
}

// compact moves the unconsumed tail of the main buffer to offset 0.
func (s *Stream) compact() {
	if s.frameStart == 0 {
		return
	}
	s.writePos = copy(s.buf, s.buf[s.frameStart:s.writePos])
	s.frameStart = 0
}

func (s *Stream) fatal(kind error, offset int, cause error) error {
	err := &ParseError{Kind: kind, Format: s.format, Offset: offset, Err: cause}
	dropped := s.Buffered()
	if s.synced {
		s.log.Warn("lost synchronization", "error", err, "frames", s.frames, "dropped", dropped)
	} else {
		s.log.Debug("synchronization failed", "error", err)
	}
	s.Reset()
	if s.onError != nil {
		s.onError(err, dropped)
	}
	return err
}
