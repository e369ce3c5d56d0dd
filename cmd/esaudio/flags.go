package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/zsiec/esaudio/audioparse"
	"github.com/zsiec/esaudio/internal/extract"
)

type options struct {
	format    audioparse.Format // FormatNone: take it from the PMT
	output    string
	pids      []uint16
	raw       bool
	records   bool
	srtURL    string
	srtListen string
	bufSize   int
	input     string
}

func (o options) inputName() string {
	switch {
	case o.srtURL != "":
		return o.srtURL
	case o.srtListen != "":
		return "srt-listen " + o.srtListen
	case o.input == "":
		return "-"
	}
	return o.input
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("esaudio", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: esaudio [flags] [input.ts | -]\n")
		fs.PrintDefaults()
	}

	var opts options
	typ := fs.String("t", envOr("ESAUDIO_TYPE", ""), "audio type MPEG|AC3|AAC (default: from the PMT)")
	pids := fs.String("p", "", "comma-separated PIDs to extract, decimal or 0x hex (default: all audio)")
	buf := fs.String("buf", envOr("ESAUDIO_BUF", strconv.Itoa(extract.DefaultBufferSize)), "main buffer size in bytes")
	fs.StringVar(&opts.output, "o", "-", "output file, - for stdout")
	fs.BoolVar(&opts.raw, "r", false, "input is a raw elementary stream (requires -t)")
	fs.BoolVar(&opts.records, "records", false, "write framed records instead of raw frames")
	fs.StringVar(&opts.srtURL, "srt", "", "pull input from srt://host:port?streamid=...")
	fs.StringVar(&opts.srtListen, "srt-listen", "", "accept one SRT publisher on this address")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 1 {
		return options{}, errors.New("at most one input file")
	}
	opts.input = fs.Arg(0)

	if *typ != "" {
		opts.format = audioparse.ParseFormat(*typ)
		if !opts.format.Supported() {
			return options{}, fmt.Errorf("unsupported audio type %q", *typ)
		}
	}

	var err error
	if opts.pids, err = parsePIDs(*pids); err != nil {
		return options{}, err
	}

	if opts.bufSize, err = strconv.Atoi(*buf); err != nil || opts.bufSize <= 0 {
		return options{}, fmt.Errorf("invalid buffer size %q", *buf)
	}

	sources := 0
	for _, set := range []bool{opts.srtURL != "", opts.srtListen != "", opts.input != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return options{}, errors.New("choose one of an input file, -srt and -srt-listen")
	}
	if opts.raw {
		if opts.format == audioparse.FormatNone {
			return options{}, errors.New("raw input requires -t")
		}
		if len(opts.pids) > 0 {
			return options{}, errors.New("-p does not apply to raw input")
		}
		if opts.srtURL != "" || opts.srtListen != "" {
			return options{}, errors.New("SRT input carries a transport stream, not raw audio")
		}
	}
	return opts, nil
}

// parsePIDs parses "0x101,258". An empty string selects no PIDs.
func parsePIDs(s string) ([]uint16, error) {
	if s == "" {
		return nil, nil
	}
	var out []uint16
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		v, err := strconv.ParseUint(f, 0, 16)
		if err != nil || v > 0x1FFE {
			return nil, fmt.Errorf("invalid PID %q", f)
		}
		out = append(out, uint16(v))
	}
	return out, nil
}
