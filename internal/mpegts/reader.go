package mpegts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/zsiec/esaudio/audioparse"
)

// pidState tracks continuity for one elementary stream.
type pidState struct {
	info   StreamInfo
	lastCC uint8
	seen   bool
	lost   bool // packets dropped since the last chunk
}

// Reader pulls transport packets from an io.Reader and yields the payload
// of every selected audio PID as a [Chunk].
type Reader struct {
	ctx    context.Context
	src    io.Reader
	log    *slog.Logger
	buf    [packetSize]byte
	pinned bool // PIDs were named by the caller; PMT discovery only fills in formats

	streams  map[uint16]*pidState
	pmtPIDs  map[uint16]bool
	sections map[uint16]*sectionAssembler

	packets uint64
	skipped uint64
}

// ReaderOpt configures a [Reader].
type ReaderOpt func(*Reader)

// WithPIDs restricts the Reader to the given PIDs. Without it, audio PIDs
// are taken from the PMT.
func WithPIDs(pids ...uint16) ReaderOpt {
	return func(r *Reader) {
		r.pinned = true
		for _, pid := range pids {
			r.streams[pid] = &pidState{info: StreamInfo{PID: pid}}
		}
	}
}

// WithLogger sets the logger. If log is nil, slog.Default() is used.
func WithLogger(log *slog.Logger) ReaderOpt {
	return func(r *Reader) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReader creates a Reader over src.
func NewReader(ctx context.Context, src io.Reader, opts ...ReaderOpt) *Reader {
	r := &Reader{
		ctx:      ctx,
		src:      src,
		log:      slog.Default(),
		streams:  make(map[uint16]*pidState),
		pmtPIDs:  make(map[uint16]bool),
		sections: make(map[uint16]*sectionAssembler),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "mpegts")
	return r
}

// Streams returns the elementary streams currently selected.
func (r *Reader) Streams() []StreamInfo {
	out := make([]StreamInfo, 0, len(r.streams))
	for _, st := range r.streams {
		out = append(out, st.info)
	}
	return out
}

// Stats returns the number of packets read and bytes skipped while
// resynchronizing.
func (r *Reader) Stats() (packets, skipped uint64) {
	return r.packets, r.skipped
}

// Next returns the next chunk of a selected stream. It returns io.EOF once
// the source is exhausted; a trailing partial packet is discarded.
func (r *Reader) Next() (Chunk, error) {
	for {
		if err := r.ctx.Err(); err != nil {
			return Chunk{}, err
		}
		if err := r.readPacket(); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			return Chunk{}, err
		}
		r.packets++

		pkt, err := parsePacket(r.buf[:])
		if err != nil {
			r.log.Debug("dropping malformed packet", "error", err)
			continue
		}
		if pkt.Header.TransportErrorIndicator {
			continue
		}

		pid := pkt.Header.PID
		if pid == pidPAT || r.pmtPIDs[pid] {
			r.handlePSI(pkt)
			continue
		}

		st, ok := r.streams[pid]
		if !ok || !pkt.Header.HasPayload {
			continue
		}
		if dup := r.checkContinuity(st, pkt.Header); dup {
			continue
		}

		data, pts := pkt.Payload, audioparse.NoPTS
		if pkt.Header.PayloadUnitStartIndicator {
			data, pts, err = stripPES(data)
			if err != nil {
				r.log.Debug("dropping PES start", "pid", pid, "error", err)
				st.lost = true
				continue
			}
		}
		if len(data) == 0 && !pts.Valid() {
			continue
		}

		c := Chunk{
			PID:           pid,
			Format:        st.info.Format,
			Data:          bytes.Clone(data),
			PTS:           pts,
			Discontinuity: st.lost,
		}
		st.lost = false
		return c, nil
	}
}

// readPacket fills r.buf with the next packet, skipping bytes until a sync
// byte is found at the packet start.
func (r *Reader) readPacket() error {
	if _, err := io.ReadFull(r.src, r.buf[:]); err != nil {
		return err
	}
	for r.buf[0] != syncByte {
		n := 0
		if i := bytes.IndexByte(r.buf[1:], syncByte); i >= 0 {
			n = copy(r.buf[:], r.buf[i+1:])
			r.skipped += uint64(i + 1)
		} else {
			r.skipped += packetSize
		}
		if _, err := io.ReadFull(r.src, r.buf[n:]); err != nil {
			return err
		}
		r.log.Debug("resynchronizing transport stream", "skipped", r.skipped)
	}
	return nil
}

// checkContinuity updates the counter for st and reports whether the
// packet repeats the previous one. An unsignaled gap marks the stream as
// lost so the next chunk carries Discontinuity.
func (r *Reader) checkContinuity(st *pidState, h PacketHeader) bool {
	defer func() {
		st.lastCC = h.ContinuityCounter
		st.seen = true
	}()
	if !st.seen || h.DiscontinuityIndicator {
		return false
	}
	if h.ContinuityCounter == st.lastCC {
		return true
	}
	if h.ContinuityCounter != (st.lastCC+1)&0x0F {
		r.log.Debug("continuity error", "pid", h.PID, "expected", (st.lastCC+1)&0x0F, "got", h.ContinuityCounter)
		st.lost = true
	}
	return false
}

func (r *Reader) handlePSI(pkt Packet) {
	pid := pkt.Header.PID
	a, ok := r.sections[pid]
	if !ok {
		a = &sectionAssembler{}
		r.sections[pid] = a
	}
	payload := a.add(pkt)
	if payload == nil {
		return
	}
	err := forEachSection(payload, func(tableID byte, section []byte) error {
		switch {
		case tableID == tableIDPAT && pid == pidPAT:
			programs, err := parsePATSection(section)
			if err != nil {
				return err
			}
			for _, p := range programs {
				r.pmtPIDs[p.PMTPID] = true
			}
		case tableID == tableIDPMT:
			streams, err := parsePMTSection(section)
			if err != nil {
				return err
			}
			r.applyPMT(streams)
		}
		return nil
	})
	if err != nil {
		a.reset()
		r.log.Debug("dropping PSI section", "pid", pid, "error", err)
	}
}

func (r *Reader) applyPMT(streams []pmtStream) {
	for _, s := range streams {
		st, ok := r.streams[s.PID]
		switch {
		case ok:
			if st.info.StreamType != s.StreamType {
				st.info.StreamType = s.StreamType
				st.info.Format = s.Format
			}
		case !r.pinned && s.Format != audioparse.FormatNone && s.PID != pidNull:
			r.streams[s.PID] = &pidState{info: StreamInfo{
				PID:        s.PID,
				StreamType: s.StreamType,
				Format:     s.Format,
			}}
			r.log.Debug("audio stream discovered", "pid", s.PID, "stream_type", s.StreamType, "format", s.Format.String())
		}
	}
}
