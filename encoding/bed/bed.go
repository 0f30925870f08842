// Package bed implements spec §4.D/§4.E for BED: a streaming reader over
// the variable 3-12 column BED shapes, and a writer that is its inverse.
// The whitespace-token-scanning idiom (getTokens, scanning runs of bytes
// above/below ' ' rather than calling strings.Fields or a CSV reader) is
// adapted from interval/bedunion.go, generalized from BED's first three
// columns to all twelve.
package bed

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nrminor/genotype/compress"
	"github.com/nrminor/genotype/internal/gterr"
	"github.com/nrminor/genotype/record"
)

const maxCoordinate = 300_000_000

// Options configures a Reader (spec §4.D).
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

// OptStrict enforces coordinate bounds and strand/score validity.
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

// Reader is a single-pass, lazy BED feature scanner.
type Reader struct {
	sc   *bufio.Scanner
	opts Options
	line int64
	cur  *record.BedInterval
	err  error
	done bool
}

// NewReader constructs a Reader over r.
func NewReader(r io.Reader, opts ...Opt) *Reader {
	return &Reader{sc: bufio.NewScanner(r), opts: makeOptions(opts...)}
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

// getTokens splits line on runs of bytes <= ' ', the same scan interval.bedunion.go
// uses for its first three BED columns, generalized here to every column.
func getTokens(line string) []string {
	var tokens []string
	n := len(line)
	pos := 0
	for pos < n {
		for pos < n && line[pos] <= ' ' {
			pos++
		}
		if pos >= n {
			break
		}
		start := pos
		for pos < n && line[pos] > ' ' {
			pos++
		}
		tokens = append(tokens, line[start:pos])
	}
	return tokens
}

func skippable(line string) bool {
	if line == "" {
		return true
	}
	switch {
	case strings.HasPrefix(line, "#"):
		return true
	case strings.HasPrefix(line, "track"):
		return true
	case strings.HasPrefix(line, "browser"):
		return true
	}
	return false
}

// Scan advances to the next record (spec §4.D).
func (r *Reader) Scan() bool {
	if r.done {
		return false
	}
	select {
	case <-r.opts.Context.Done():
		return r.fail(r.opts.Context.Err())
	default:
	}
	for r.sc.Scan() {
		r.line++
		line := r.sc.Text()
		if skippable(line) {
			continue
		}
		rec, err := parseLine(line, r.line, r.opts.Strict)
		if err != nil {
			return r.fail(err)
		}
		r.cur = rec
		return true
	}
	if err := r.sc.Err(); err != nil {
		return r.fail(errors.Wrap(err, "bed: scan"))
	}
	r.done = true
	return false
}

func parseLine(line string, lineNo int64, strict bool) (*record.BedInterval, error) {
	tokens := getTokens(line)
	if len(tokens) < 3 {
		return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo)},
			"BED line has %d columns, need at least 3", len(tokens))
	}

	start, err := strconv.ParseInt(tokens[1], 10, 64)
	if err != nil {
		return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo), gterr.Field("chromStart")},
			"invalid chromStart %q", tokens[1])
	}
	end, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo), gterr.Field("chromEnd")},
			"invalid chromEnd %q", tokens[2])
	}
	if start > end {
		return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo)},
			"chromEnd %d is before chromStart %d", end, start)
	}
	if strict && (start < 0 || end > maxCoordinate) {
		return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo)},
			"coordinates [%d, %d) out of bounds", start, end)
	}

	rec := &record.BedInterval{
		Chromosome: tokens[0],
		Start:      start,
		End:        end,
		Variant:    variantForColumnCount(len(tokens)),
	}

	if len(tokens) >= 4 {
		rec.Name = tokens[3]
		rec.HasName = true
	}
	if len(tokens) >= 5 {
		score, err := strconv.ParseInt(tokens[4], 10, 64)
		if err != nil {
			return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo), gterr.Field("score")},
				"invalid score %q", tokens[4])
		}
		if strict && (score < 0 || score > 1000) {
			return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo), gterr.Field("score")},
				"score %d out of [0,1000]", score)
		}
		rec.Score = score
		rec.HasScore = true
	}
	if len(tokens) >= 6 {
		strand, err := record.ParseStrand(tokens[5])
		if err != nil {
			return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo), gterr.Field("strand")}, "%v", err)
		}
		rec.Strand = strand
		rec.HasStrand = true
	}
	if len(tokens) >= 8 {
		thickStart, err1 := strconv.ParseInt(tokens[6], 10, 64)
		thickEnd, err2 := strconv.ParseInt(tokens[7], 10, 64)
		if err1 != nil || err2 != nil {
			return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo)}, "invalid thickStart/thickEnd")
		}
		rec.ThickStart = thickStart
		rec.ThickEnd = thickEnd
		rec.HasThick = true
	}
	if len(tokens) >= 9 {
		rgb, err := parseRGB(tokens[8])
		if err != nil {
			return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo), gterr.Field("itemRgb")}, "%v", err)
		}
		rec.ItemRGB = rgb
		rec.HasItemRGB = true
	}
	if len(tokens) >= 12 {
		count, err := strconv.Atoi(tokens[9])
		if err != nil {
			return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo), gterr.Field("blockCount")}, "invalid blockCount")
		}
		sizes, err := parseIntList(tokens[10])
		if err != nil {
			return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo), gterr.Field("blockSizes")}, "%v", err)
		}
		starts, err := parseIntList(tokens[11])
		if err != nil {
			return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo), gterr.Field("blockStarts")}, "%v", err)
		}
		if strict && (len(sizes) != count || len(starts) != count) {
			return nil, gterr.New(gterr.Bed, []gterr.Option{gterr.Line(lineNo)},
				"blockCount %d does not match block list lengths (%d, %d)", count, len(sizes), len(starts))
		}
		rec.BlockCount = count
		rec.BlockSizes = sizes
		rec.BlockStarts = starts
		rec.HasBlocks = true
	}
	return rec, nil
}

func variantForColumnCount(n int) record.BedVariant {
	switch {
	case n >= 12:
		return record.BED12
	case n >= 9:
		return record.BED9
	case n >= 6:
		return record.BED6
	case n >= 5:
		return record.BED5
	case n >= 4:
		return record.BED4
	case n >= 3:
		return record.BED3
	default:
		return record.BedExtended
	}
}

func parseRGB(s string) ([3]uint8, error) {
	var rgb [3]uint8
	if s == "0" {
		return rgb, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return rgb, errors.Errorf("itemRgb %q must be R,G,B or 0", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return rgb, errors.Errorf("invalid RGB component %q", p)
		}
		rgb[i] = uint8(v)
	}
	return rgb, nil
}

func parseIntList(s string) ([]int64, error) {
	s = strings.TrimSuffix(s, ",")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, errors.Errorf("invalid integer %q in list", p)
		}
		out[i] = v
	}
	return out, nil
}

// Record returns the record produced by the most recent successful Scan.
func (r *Reader) Record() *record.BedInterval { return r.cur }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Collect drains the Reader into a slice; intended for tests and small
// inputs.
func Collect(r *Reader) ([]*record.BedInterval, error) {
	var out []*record.BedInterval
	for r.Scan() {
		rec := *r.Record()
		out = append(out, &rec)
	}
	return out, r.Err()
}
