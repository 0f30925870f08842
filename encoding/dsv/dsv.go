// Package dsv implements spec §4.D/§4.E for delimiter-separated values
// (CSV/TSV/PSV/SSV): an RFC 4180 state machine, delimiter and header
// auto-detection, ragged-row handling, and a writer with Excel-protection
// quoting. No teacher file implements a DSV/CSV reader; the state-machine
// shape (one rune at a time, explicit field/row accumulation, size guards
// against unbounded memory growth) is grounded on the retrieval pack's
// simdcsv reference file's encoding/csv-compatible Reader, scaled down
// from its SIMD batch-processing design to a single-byte scanner that can
// share the compress/quality packages' streaming idiom.
package dsv

import (
	"bufio"
	"context"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/nrminor/genotype/compress"
	"github.com/nrminor/genotype/internal/gterr"
	"github.com/nrminor/genotype/record"
)

const (
	maxFieldSize = 100 * 1024 * 1024
	maxRowSize   = 500 * 1024 * 1024
	sniffLines   = 100
)

// RaggedMode controls how rows with a column count different from the
// header are handled (spec §4.D).
type RaggedMode int

const (
	RaggedError RaggedMode = iota
	RaggedPadEmpty
	RaggedTruncate
	RaggedIgnore
)

// Options configures a Reader.
type Options struct {
	Delimiter  byte // 0 triggers auto-detection
	HasHeader  *bool // nil triggers auto-detection
	Ragged     RaggedMode
	Context    context.Context
}

func (o *Options) fill() {
	if o.Context == nil {
		o.Context = context.Background()
	}
}

// Opt mutates Options.
type Opt func(*Options)

// OptDelimiter fixes the field delimiter, disabling auto-detection.
func OptDelimiter(b byte) Opt { return func(o *Options) { o.Delimiter = b } }

// OptHasHeader fixes whether the first row is a header, disabling
// auto-detection.
func OptHasHeader(v bool) Opt { return func(o *Options) { o.HasHeader = &v } }

// OptRagged sets the ragged-row handling mode.
func OptRagged(m RaggedMode) Opt { return func(o *Options) { o.Ragged = m } }

// OptContext installs a cancellation context.
func OptContext(ctx context.Context) Opt { return func(o *Options) { o.Context = ctx } }

func makeOptions(opts ...Opt) Options {
	var o Options
	for _, apply := range opts {
		apply(&o)
	}
	o.fill()
	return o
}

// Detection describes the outcome of delimiter/header auto-detection.
type Detection struct {
	Delimiter  byte
	HasHeader  bool
	Confidence float64
}

// candidateDelimiters are scored by DetectDelimiter (spec §4.D).
var candidateDelimiters = []byte{',', '\t', '|', ';'}

// DetectDelimiter scores each candidate in candidateDelimiters on the
// first up to sniffLines lines of sample by (consistency * mean-count /
// (1+variance)); ties defer to comma.
func DetectDelimiter(sample string) (byte, float64) {
	lines := strings.Split(sample, "\n")
	if len(lines) > sniffLines {
		lines = lines[:sniffLines]
	}
	var nonEmpty []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) == 0 {
		return ',', 0
	}

	bestDelim := byte(',')
	bestScore := -1.0
	for _, d := range candidateDelimiters {
		counts := make([]float64, len(nonEmpty))
		for i, l := range nonEmpty {
			counts[i] = float64(strings.Count(l, string(d)) + 1)
		}
		mean := 0.0
		for _, c := range counts {
			mean += c
		}
		mean /= float64(len(counts))

		variance := 0.0
		for _, c := range counts {
			variance += (c - mean) * (c - mean)
		}
		variance /= float64(len(counts))

		consistency := 1.0
		if mean <= 1 {
			consistency = 0
		}
		score := consistency * mean / (1 + variance)
		if score > bestScore || (score == bestScore && d == ',') {
			bestScore = score
			bestDelim = d
		}
	}
	return bestDelim, bestScore
}

var headerKeywords = map[string]bool{
	"id": true, "gene": true, "chr": true, "chrom": true, "chromosome": true,
	"pos": true, "position": true, "name": true, "start": true, "end": true,
	"strand": true, "score": true, "sample": true, "value": true, "count": true,
}

var numericRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// DetectHeader compares the non-numeric density and keyword membership of
// row1 against row2 (spec §4.D): a header is present iff row1 looks like
// headers AND row2 has at least as many numeric fields as row1.
func DetectHeader(row1, row2 []string) bool {
	if len(row1) == 0 {
		return false
	}
	nonNumeric1, numeric2, keywordHits := 0, 0, 0
	for _, f := range row1 {
		if !numericRe.MatchString(strings.TrimSpace(f)) {
			nonNumeric1++
		}
		if headerKeywords[strings.ToLower(strings.TrimSpace(f))] {
			keywordHits++
		}
	}
	for _, f := range row2 {
		if numericRe.MatchString(strings.TrimSpace(f)) {
			numeric2++
		}
	}
	looksLikeHeader := nonNumeric1 == len(row1) || keywordHits > 0
	return looksLikeHeader && numeric2 >= len(row1)-nonNumeric1
}

// stripBOM removes a UTF-8 or UTF-16 byte-order-mark prefix, if present.
func stripBOM(s string) string {
	switch {
	case strings.HasPrefix(s, "﻿"):
		return strings.TrimPrefix(s, "﻿")
	case len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF:
		return s[3:]
	case len(s) >= 2 && s[0] == 0xFF && s[1] == 0xFE:
		return s[2:]
	case len(s) >= 2 && s[0] == 0xFE && s[1] == 0xFF:
		return s[2:]
	default:
		return s
	}
}

type scanState int

const (
	fieldStart scanState = iota
	unquotedField
	quotedField
	quoteInQuoted
)

// Reader is a single-pass, lazy DSV row scanner.
type Reader struct {
	br   *bufio.Reader
	opts Options
	line int64
	cur  *record.Dsv
	err  error
	done bool

	header     []string
	hasHeader  bool
	delimiter  byte
	Detection  Detection
	initialized bool
}

// NewReader constructs a Reader over r. Delimiter/header detection (when
// not fixed via options) samples up to sniffLines lines, buffering them
// for replay.
func NewReader(r io.Reader, opts ...Opt) *Reader {
	o := makeOptions(opts...)
	return &Reader{br: bufio.NewReaderSize(r, 64*1024), opts: o}
}

// ParseString constructs a Reader over an in-memory string.
func ParseString(s string, opts ...Opt) *Reader {
	return NewReader(strings.NewReader(s), opts...)
}

// ParseFile opens path, transparently decompressing it, and constructs a
// Reader over it. The returned io.Closer must be closed once scanning
// finishes.
func ParseFile(path string, opts ...Opt) (*Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, gterr.New(gterr.File, nil, "open %s: %v", path, err)
	}
	wrapped, _, err := compress.Wrap(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return NewReader(wrapped, opts...), f, nil
}

func (r *Reader) fail(err error) bool {
	r.err = err
	r.done = true
	return false
}

// readRawLine reads one \n-terminated (or EOF-terminated) line, stripping
// a trailing \r, WITHOUT consuming quoted-field embedded newlines -- those
// are handled by readRow directly against the buffered reader.
func (r *Reader) readRawLine() (string, bool, error) {
	line, err := r.br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, err
	}
	if err == io.EOF && line == "" {
		return "", false, nil
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true, nil
}

func (r *Reader) init() error {
	r.initialized = true
	if r.opts.Delimiter != 0 {
		r.delimiter = r.opts.Delimiter
		r.Detection.Delimiter = r.opts.Delimiter
		r.Detection.Confidence = 1.0
	}

	peeked, _ := r.br.Peek(64 * 1024)
	sample := stripBOM(string(peeked))

	if r.opts.Delimiter == 0 {
		delim, score := DetectDelimiter(sample)
		r.delimiter = delim
		r.Detection.Delimiter = delim
		r.Detection.Confidence = score
		if score == 0 {
			r.Detection.Confidence = 0.5 // spec §9: fallback-to-comma ambiguous confidence
		}
	}

	// strip the BOM for real, by consuming the equivalent prefix bytes.
	if bomLen := len(string(peeked)) - len(sample); bomLen > 0 {
		_, _ = r.br.Discard(bomLen)
	}

	if r.opts.HasHeader != nil {
		r.hasHeader = *r.opts.HasHeader
		return nil
	}

	lines := strings.SplitN(sample, "\n", 3)
	var row1, row2 []string
	if len(lines) > 0 {
		row1 = r.splitRow(lines[0])
	}
	if len(lines) > 1 {
		row2 = r.splitRow(lines[1])
	}
	r.hasHeader = DetectHeader(row1, row2)
	return nil
}

func (r *Reader) splitRow(line string) []string {
	return strings.Split(line, string(r.delimiter))
}

// Scan advances to the next row.
func (r *Reader) Scan() bool {
	if r.done {
		return false
	}
	select {
	case <-r.opts.Context.Done():
		return r.fail(r.opts.Context.Err())
	default:
	}
	if !r.initialized {
		if err := r.init(); err != nil {
			return r.fail(err)
		}
		if r.hasHeader {
			fields, ok, err := r.readRow()
			if err != nil {
				return r.fail(err)
			}
			if !ok {
				r.done = true
				return false
			}
			r.header = fields
		}
	}

	fields, ok, err := r.readRow()
	if err != nil {
		return r.fail(err)
	}
	if !ok {
		r.done = true
		return false
	}

	if r.header == nil && !r.hasHeader {
		r.header = syntheticHeader(len(fields))
	}

	if r.header != nil && len(fields) != len(r.header) {
		fields, err = r.reconcileRagged(fields)
		if err != nil {
			return r.fail(err)
		}
	}

	r.cur = &record.Dsv{Header: r.header, Values: fields, SourceLineNumber: r.line}
	return true
}

// syntheticHeader builds the numeric-index header ("0","1",...) that a
// headerless DSV stream uses in place of named columns, so Dsv.Get can
// still address a column by position (spec §3: indices synthesized when
// no header row is present).
func syntheticHeader(n int) []string {
	h := make([]string, n)
	for i := range h {
		h[i] = strconv.Itoa(i)
	}
	return h
}

func (r *Reader) reconcileRagged(fields []string) ([]string, error) {
	switch r.opts.Ragged {
	case RaggedPadEmpty:
		for len(fields) < len(r.header) {
			fields = append(fields, "")
		}
		return fields, nil
	case RaggedTruncate:
		if len(fields) > len(r.header) {
			return fields[:len(r.header)], nil
		}
		return fields, nil
	case RaggedIgnore:
		return fields, nil
	default:
		return nil, gterr.New(gterr.Dsv, []gterr.Option{gterr.Line(r.line)},
			"row has %d fields, header has %d", len(fields), len(r.header))
	}
}

// readRow implements the RFC 4180 state machine: FIELD_START ->
// UNQUOTED_FIELD | QUOTED_FIELD -> QUOTE_IN_QUOTED, with doubled quotes
// inside a quoted field escaping to a single literal quote, delimiters
// inside quoted fields treated as literal, and fields spanning lines only
// when inside a quoted field.
func (r *Reader) readRow() ([]string, bool, error) {
	var fields []string
	var field strings.Builder
	state := fieldStart
	rowSize := 0
	sawAny := false

	for {
		b, err := r.br.ReadByte()
		if err != nil {
			if err != io.EOF {
				return nil, false, err
			}
			if !sawAny && field.Len() == 0 && len(fields) == 0 {
				return nil, false, nil
			}
			fields = append(fields, field.String())
			r.line++
			return fields, true, nil
		}
		sawAny = true
		rowSize++
		if rowSize > maxRowSize {
			return nil, false, gterr.New(gterr.Dsv, []gterr.Option{gterr.Line(r.line)}, "row exceeds %d byte limit", maxRowSize)
		}

		switch state {
		case fieldStart:
			switch {
			case b == '"':
				state = quotedField
			case b == r.delimiter:
				fields = append(fields, "")
			case b == '\n':
				fields = append(fields, "")
				r.line++
				return fields, true, nil
			case b == '\r':
				// ignore; \n follows
			default:
				field.WriteByte(b)
				state = unquotedField
			}
		case unquotedField:
			switch {
			case b == r.delimiter:
				fields = append(fields, field.String())
				field.Reset()
				state = fieldStart
			case b == '\n':
				fields = append(fields, field.String())
				field.Reset()
				r.line++
				return fields, true, nil
			case b == '\r':
				// ignore; \n follows
			default:
				if field.Len() >= maxFieldSize {
					return nil, false, gterr.New(gterr.Dsv, []gterr.Option{gterr.Line(r.line)}, "field exceeds %d byte limit", maxFieldSize)
				}
				field.WriteByte(b)
			}
		case quotedField:
			switch b {
			case '"':
				state = quoteInQuoted
			default:
				if b == '\n' {
					r.line++
				}
				if field.Len() >= maxFieldSize {
					return nil, false, gterr.New(gterr.Dsv, []gterr.Option{gterr.Line(r.line)}, "field exceeds %d byte limit", maxFieldSize)
				}
				field.WriteByte(b)
			}
		case quoteInQuoted:
			switch {
			case b == '"':
				field.WriteByte('"')
				state = quotedField
			case b == r.delimiter:
				fields = append(fields, field.String())
				field.Reset()
				state = fieldStart
			case b == '\n':
				fields = append(fields, field.String())
				field.Reset()
				r.line++
				return fields, true, nil
			case b == '\r':
				// ignore; \n follows
			default:
				return nil, false, gterr.New(gterr.Dsv, []gterr.Option{gterr.Line(r.line)}, "unexpected byte after closing quote")
			}
		}
	}
}

// Record returns the row produced by the most recent successful Scan.
func (r *Reader) Record() *record.Dsv { return r.cur }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Header returns the header row, if one was present or configured.
func (r *Reader) Header() []string { return r.header }

// Collect drains the Reader into a slice; intended for tests and small
// inputs.
func Collect(r *Reader) ([]*record.Dsv, error) {
	var out []*record.Dsv
	for r.Scan() {
		rec := *r.Record()
		out = append(out, &rec)
	}
	return out, r.Err()
}
