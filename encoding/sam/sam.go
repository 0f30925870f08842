// Package sam implements spec §4.D/§4.E for SAM: header and alignment
// parsing with a strictly-typed field projection, and a writer that
// revalidates in strict mode. The teacher delegates SAM parsing entirely
// to grailbio/hts/sam (github.com/biogo/hts/sam), an out-of-pack binary
// BAM-oriented library; per spec §4.D's "own state machine" requirement
// this package implements its own line-oriented parser instead, grounded
// on the field-by-field tab-split projection shown in the retrieval
// pack's bebop-poly io/sam reference file (values[i] -> typed struct
// field, one strconv.Parse per numeric column).
package sam

import (
	"bufio"
	"context"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nrminor/genotype/compress"
	"github.com/nrminor/genotype/internal/gterr"
	"github.com/nrminor/genotype/record"
)

var cigarElemRe = regexp.MustCompile(`\d+[MIDNSHPX=]`)

// Options configures a Reader.
type Options struct {
	Strict  bool
	Context context.Context
}

func (o *Options) fill() {
	if o.Context == nil {
		o.Context = context.Background()
	}
}

// Opt mutates Options.
type Opt func(*Options)

// OptStrict rejects alignments whose SEQ and QUAL lengths differ (when
// neither is "*"). CIGAR length is not checked against SEQ in either mode.
func OptStrict() Opt { return func(o *Options) { o.Strict = true } }

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

// Reader is a single-pass SAM scanner: it consumes the header block on
// construction, then yields one SamAlignment per Scan.
type Reader struct {
	sc     *bufio.Scanner
	opts   Options
	line   int64
	header []record.SamHeader
	cur    *record.SamAlignment
	err    error
	done   bool

	pending     string
	havePending bool
}

// NewReader constructs a Reader over r, consuming and parsing the leading
// `@`-prefixed header block before returning.
func NewReader(r io.Reader, opts ...Opt) (*Reader, error) {
	o := makeOptions(opts...)
	rd := &Reader{sc: bufio.NewScanner(r), opts: o}
	rd.sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if err := rd.readHeader(); err != nil {
		return nil, err
	}
	return rd, nil
}

// ParseString constructs a Reader over an in-memory string.
func ParseString(s string, opts ...Opt) (*Reader, error) {
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
	rd, err := NewReader(wrapped, opts...)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return rd, f, nil
}

// Header returns the parsed header lines.
func (r *Reader) Header() []record.SamHeader { return r.header }

func (r *Reader) readHeader() error {
	for r.sc.Scan() {
		r.line++
		line := r.sc.Text()
		if line == "" {
			continue
		}
		if line[0] != '@' {
			r.pending = line
			r.havePending = true
			return nil
		}
		h, err := parseHeaderLine(line, r.line)
		if err != nil {
			return err
		}
		r.header = append(r.header, *h)
	}
	return r.sc.Err()
}

func parseHeaderLine(line string, lineNo int64) (*record.SamHeader, error) {
	fields := strings.Split(line, "\t")
	if len(fields) == 0 {
		return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo)}, "empty header line")
	}
	kind := record.SamHeaderKind(strings.TrimPrefix(fields[0], "@"))
	if kind == record.SamHeaderCO {
		comment := strings.TrimPrefix(line, "@CO\t")
		return &record.SamHeader{Kind: kind, Comment: comment}, nil
	}
	var hfs []record.SamHeaderField
	for _, tok := range fields[1:] {
		k, v, ok := strings.Cut(tok, ":")
		if !ok {
			return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo)}, "malformed header token %q", tok)
		}
		hfs = append(hfs, record.SamHeaderField{Key: k, Value: v})
	}
	return &record.SamHeader{Kind: kind, Fields: hfs}, nil
}

func (r *Reader) fail(err error) bool {
	r.err = err
	r.done = true
	return false
}

// Scan advances to the next alignment record. pending/havePending carry
// the first non-header line discovered while consuming the header block,
// since that line is already the first alignment record.
func (r *Reader) Scan() bool {
	if r.done {
		return false
	}
	select {
	case <-r.opts.Context.Done():
		return r.fail(r.opts.Context.Err())
	default:
	}

	var line string
	if r.havePending {
		line = r.pending
		r.havePending = false
	} else {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return r.fail(errors.Wrap(err, "sam: scan"))
			}
			r.done = true
			return false
		}
		r.line++
		line = r.sc.Text()
	}

	aln, err := parseAlignment(line, r.line, r.opts.Strict)
	if err != nil {
		return r.fail(err)
	}
	r.cur = aln
	return true
}

func parseAlignment(line string, lineNo int64, strict bool) (*record.SamAlignment, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 11 {
		return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo)},
			"alignment has %d fields, need at least 11", len(fields))
	}

	flag64, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo), gterr.Field("FLAG")}, "invalid FLAG %q", fields[1])
	}
	pos, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo), gterr.Field("POS")}, "invalid POS %q", fields[3])
	}
	mapq64, err := strconv.ParseUint(fields[4], 10, 8)
	if err != nil {
		return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo), gterr.Field("MAPQ")}, "invalid MAPQ %q", fields[4])
	}
	cigar, err := ParseCigar(fields[5])
	if err != nil {
		return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo), gterr.Field("CIGAR")}, "%v", err)
	}
	pnext, err := strconv.ParseInt(fields[7], 10, 64)
	if err != nil {
		return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo), gterr.Field("PNEXT")}, "invalid PNEXT %q", fields[7])
	}
	tlen, err := strconv.ParseInt(fields[8], 10, 64)
	if err != nil {
		return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo), gterr.Field("TLEN")}, "invalid TLEN %q", fields[8])
	}

	aln := &record.SamAlignment{
		QName: fields[0],
		Flag:  record.SamFlag(flag64),
		RName: fields[2],
		Pos:   pos,
		MapQ:  uint8(mapq64),
		Cigar: cigar,
		RNext: fields[6],
		PNext: pnext,
		TLen:  tlen,
		Seq:   fields[9],
		Qual:  fields[10],
	}

	for _, tok := range fields[11:] {
		tag, err := parseTag(tok)
		if err != nil {
			return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo), gterr.Field(aln.QName)}, "%v", err)
		}
		aln.Tags = append(aln.Tags, tag)
	}

	if strict && aln.Seq != "*" && aln.Qual != "*" && len(aln.Seq) != len(aln.Qual) {
		return nil, gterr.New(gterr.Sam, []gterr.Option{gterr.Line(lineNo), gterr.Field(aln.QName)},
			"SEQ length %d does not match QUAL length %d", len(aln.Seq), len(aln.Qual))
	}
	return aln, nil
}

// ParseCigar validates and parses a CIGAR string against
// `(\d+[MIDNSHPX=])+` or the literal "*" for unmapped reads.
func ParseCigar(s string) (record.Cigar, error) {
	if s == "*" {
		return record.Cigar{Unmapped: true}, nil
	}
	matches := cigarElemRe.FindAllString(s, -1)
	if matches == nil || len(strings.Join(matches, "")) != len(s) {
		return record.Cigar{}, errors.Errorf("invalid CIGAR string %q", s)
	}
	elems := make([]record.CigarElem, 0, len(matches))
	for _, m := range matches {
		opByte := m[len(m)-1]
		n, err := strconv.Atoi(m[:len(m)-1])
		if err != nil {
			return record.Cigar{}, errors.Errorf("invalid CIGAR length in %q", m)
		}
		elems = append(elems, record.CigarElem{Op: record.CigarOp(opByte), Length: n})
	}
	return record.Cigar{Elems: elems}, nil
}

func parseTag(tok string) (record.SamTag, error) {
	parts := strings.SplitN(tok, ":", 3)
	if len(parts) != 3 || len(parts[0]) != 2 {
		return record.SamTag{}, errors.Errorf("malformed optional tag %q", tok)
	}
	tag := record.SamTag{Tag: [2]byte{parts[0][0], parts[0][1]}, Type: record.SamTagType(parts[1][0])}
	raw := parts[2]
	switch tag.Type {
	case record.TagChar:
		if len(raw) != 1 {
			return tag, errors.Errorf("tag %s: type A value must be 1 character, got %q", parts[0], raw)
		}
		tag.Value = raw[0]
	case record.TagInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return tag, errors.Errorf("tag %s: invalid integer %q", parts[0], raw)
		}
		tag.Value = v
	case record.TagFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return tag, errors.Errorf("tag %s: invalid float %q", parts[0], raw)
		}
		tag.Value = v
	case record.TagString:
		tag.Value = raw
	case record.TagHex:
		tag.Value = raw
	case record.TagArray:
		tag.Value = raw
	default:
		return tag, errors.Errorf("tag %s: unsupported type %q", parts[0], string(tag.Type))
	}
	return tag, nil
}

// Record returns the alignment produced by the most recent successful Scan.
func (r *Reader) Record() *record.SamAlignment { return r.cur }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Collect drains the Reader into a slice; intended for tests and small
// inputs.
func Collect(r *Reader) ([]*record.SamAlignment, error) {
	var out []*record.SamAlignment
	for r.Scan() {
		rec := *r.Record()
		out = append(out, &rec)
	}
	return out, r.Err()
}
