package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/extract"
	"github.com/zsiec/esaudio/internal/framing"
	"github.com/zsiec/esaudio/media"
)

// output opens the destinations for extracted streams. Raw frames go to one
// file per PID; records from every PID share one file.
type output struct {
	path    string
	records bool
	single  bool // exactly one stream can appear; no PID suffix
	create  func(name string) (io.WriteCloser, error)
	log     *slog.Logger

	mu      sync.Mutex
	files   []io.WriteCloser
	bufs    []*bufio.Writer
	framed  *framing.Writer
	streams int
}

func newOutput(opts options, log *slog.Logger) *output {
	if log == nil {
		log = slog.Default()
	}
	return &output{
		log:     log.With("component", "output"),
		path:    opts.output,
		records: opts.records,
		single:  opts.raw || len(opts.pids) == 1,
		create: func(name string) (io.WriteCloser, error) {
			return os.Create(name)
		},
	}
}

// sink is a pipeline.SinkFactory.
func (o *output) sink(pid uint16, format audioparse.Format) (extract.Sink, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streams++

	if o.records {
		if o.framed == nil {
			w, err := o.dest(o.path)
			if err != nil {
				return nil, err
			}
			o.framed = framing.NewWriter(w)
		}
		return o.framed, nil
	}

	name := o.path
	if !o.single && o.path != "-" {
		name = pidPath(o.path, pid, format)
	} else if o.streams > 1 {
		// One raw destination holds one stream; frames of later ones are dropped.
		o.log.Warn("raw output already holds a stream, discarding",
			"pid", fmt.Sprintf("0x%X", pid), "format", format, "output", o.path)
		return discard, nil
	}
	bw, err := o.open(name)
	if err != nil {
		return nil, err
	}
	return extract.NewRawSink(bw), nil
}

var discard = extract.SinkFunc(func(*media.AudioFrame) error { return nil })

// dest returns stdout for "-" or a new file that Close will close.
func (o *output) dest(name string) (io.Writer, error) {
	if name == "-" {
		return os.Stdout, nil
	}
	f, err := o.create(name)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	o.files = append(o.files, f)
	return f, nil
}

// open is dest behind a buffer that Close flushes.
func (o *output) open(name string) (io.Writer, error) {
	w, err := o.dest(name)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(w)
	o.bufs = append(o.bufs, bw)
	return bw, nil
}

// Close flushes and closes every destination.
func (o *output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var errs []error
	if o.framed != nil {
		errs = append(errs, o.framed.Flush())
	}
	for _, bw := range o.bufs {
		errs = append(errs, bw.Flush())
	}
	for _, f := range o.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// pidPath inserts the PID before the extension: out.ac3 -> out.0101.ac3.
// A path without an extension gets one from the format.
func pidPath(path string, pid uint16, format audioparse.Format) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = extension(format)
	}
	return fmt.Sprintf("%s.%04x%s", stem, pid, ext)
}

func extension(format audioparse.Format) string {
	switch format {
	case audioparse.FormatMPEGAudio:
		return ".mpa"
	case audioparse.FormatAC3:
		return ".ac3"
	case audioparse.FormatAAC:
		return ".aac"
	}
	return ".es"
}
