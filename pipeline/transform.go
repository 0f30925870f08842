package pipeline

import (
	"strings"

	"github.com/nrminor/genotype/record"
	"github.com/nrminor/genotype/seq"
)

// TransformOptions configures the transform stage (spec §4.F `transform`).
// ReverseComplement is equivalent to reverse then complement; when it is
// set, Reverse and Complement are ignored. The other fields apply
// independently, after the strand step.
type TransformOptions struct {
	Reverse           bool
	Complement        bool
	ReverseComplement bool
	Upper             bool
	Lower             bool
	ToRNA             bool
	ToDNA             bool
	Strict            bool // rejects non-IUPAC bytes in Complement/ReverseComplement
}

// Transform rewrites each record's sequence according to opts (spec §4.F).
func (o *Ops[T]) Transform(opts TransformOptions) *Ops[T] {
	if o.acc.WithSequence == nil {
		return o
	}
	return o.chain(func(item T) (T, bool, error) {
		s := o.acc.Sequence(item)
		var err error
		switch {
		case opts.ReverseComplement:
			s, err = seq.ReverseComplement(s, opts.Strict)
		default:
			if opts.Reverse {
				s = seq.Reverse(s)
			}
			if opts.Complement {
				s, err = seq.Complement(s, opts.Strict)
			}
		}
		if err != nil {
			return item, false, err
		}
		if opts.Upper {
			s = strings.ToUpper(s)
		}
		if opts.Lower {
			s = strings.ToLower(s)
		}
		if opts.ToRNA {
			s = seq.ToRNA(s)
		}
		if opts.ToDNA {
			s = seq.ToDNA(s)
		}
		return o.acc.WithSequence(item, s), true, nil
	})
}

// CleanOptions configures the clean stage (spec §4.F `clean`).
type CleanOptions struct {
	RemoveGaps       bool
	ReplaceAmbiguous bool
	ReplaceChar      byte // defaults to 'N'
	TrimWhitespace   bool
}

// Clean applies each enabled option (spec §4.F): TrimWhitespace trims
// surrounding whitespace, RemoveGaps strips gap characters ('-', '.'), and
// ReplaceAmbiguous replaces ambiguous (non-ACGTU) bases.
func (o *Ops[T]) Clean(opts CleanOptions) *Ops[T] {
	if o.acc.WithSequence == nil {
		return o
	}
	replaceChar := opts.ReplaceChar
	if replaceChar == 0 {
		replaceChar = 'N'
	}
	return o.chain(func(item T) (T, bool, error) {
		s := o.acc.Sequence(item)
		if opts.TrimWhitespace {
			s = strings.TrimSpace(s)
		}
		if opts.RemoveGaps {
			s = seq.StripGaps(s)
		}
		if opts.ReplaceAmbiguous {
			s = seq.ReplaceAmbiguous(s, replaceChar)
		}
		return o.acc.WithSequence(item, s), true, nil
	})
}

// Subseq extracts the half-open interval [start, end) of each record's
// sequence (and quality, for quality-bearing record kinds), rejecting
// records shorter than end (spec §4.F `subseq`, implied by §4.C range
// extraction semantics).
func (o *Ops[T]) Subseq(start, end int) *Ops[T] {
	if o.acc.WithSequence == nil {
		return o
	}
	return o.chain(func(item T) (T, bool, error) {
		s := o.acc.Sequence(item)
		if start < 0 || end > len(s) || start > end {
			return item, false, nil
		}
		item = o.acc.WithSequence(item, s[start:end])
		if o.acc.HasQuality && o.acc.WithQuality != nil {
			q := o.acc.Quality(item)
			if len(q) >= end {
				item = o.acc.WithQuality(item, q[start:end])
			}
		}
		return item, true, nil
	})
}

// TranslateOptions configures the translate stage (spec §4.F `translate`).
type TranslateOptions struct {
	GeneticCode            int
	Frames                 []seq.Frame
	AllFrames              bool
	ConvertStartCodons     bool
	RemoveStopCodons       bool
	TrimAtFirstStop        bool
	OrfsOnly               bool
	MinOrfLength           int
	AllowAlternativeStarts bool
	StopCodonChar          byte
	UnknownCodonChar       byte
	IncludeFrameInID       bool
}

// Translate is a flatMap stage (spec §4.F): it replaces each input record
// with one output record per requested frame, the sequence replaced by
// the translated protein and, if IncludeFrameInID, the id suffixed with
// the frame marker. Because flatMap changes cardinality, Translate is a
// terminal-like collect-then-reopen operation here: it materializes every
// expansion into a slice rather than staying lazy mid-chain, documented
// as an Open Question resolution (favoring a simple, correct
// implementation over threading flatMap through the lazy Ops chain).
func Translate[T any](o *Ops[T], opts TranslateOptions) ([]T, error) {
	frames := opts.Frames
	if opts.AllFrames || len(frames) == 0 {
		frames = []seq.Frame{seq.Frame1, seq.Frame2, seq.Frame3, seq.FrameM1, seq.FrameM2, seq.FrameM3}
	}
	topt := seq.TranslateOptions{
		GeneticCode:            opts.GeneticCode,
		ConvertStartCodons:     opts.ConvertStartCodons,
		RemoveStopCodons:       opts.RemoveStopCodons,
		TrimAtFirstStop:        opts.TrimAtFirstStop,
		OrfsOnly:               opts.OrfsOnly,
		MinOrfLength:           opts.MinOrfLength,
		AllowAlternativeStarts: opts.AllowAlternativeStarts,
		StopCodonChar:          opts.StopCodonChar,
		UnknownCodonChar:       opts.UnknownCodonChar,
	}

	var out []T
	err := o.drain(func(item T) error {
		nucSeq := o.acc.Sequence(item)
		fs, proteins, terr := seq.TranslateAllFrames(nucSeq, frames, topt)
		if terr != nil {
			return terr
		}
		for i, p := range proteins {
			if opts.OrfsOnly {
				for _, orf := range seq.FindORFs(p, opts.MinOrfLength) {
					out = append(out, withTranslated(o, item, orf, fs[i], opts.IncludeFrameInID))
				}
				continue
			}
			out = append(out, withTranslated(o, item, p, fs[i], opts.IncludeFrameInID))
		}
		return nil
	})
	return out, err
}

func withTranslated[T any](o *Ops[T], item T, protein string, frame seq.Frame, includeFrame bool) T {
	next := item
	if o.acc.WithSequence != nil {
		next = o.acc.WithSequence(next, protein)
	}
	if includeFrame && o.acc.WithID != nil {
		next = o.acc.WithID(next, o.acc.ID(item)+frame.Suffix())
	}
	return next
}

// LocateOptions configures the locate stage (spec §4.F `locate`).
type LocateOptions struct {
	Pattern           string
	AllowMismatches   int
	SearchBothStrands bool
	AllowOverlaps     bool
	MaxMatches        int
}

// Locate is a flatMap stage yielding record.MotifLocation hits rather
// than sequence records (spec §4.F: "Yields MotifLocation records, not
// sequence records"), so like Translate it materializes eagerly rather
// than staying in the lazy Ops[T] chain.
func Locate[T any](o *Ops[T], opts LocateOptions) ([]record.MotifLocation, error) {
	var out []record.MotifLocation
	err := o.drain(func(item T) error {
		id := o.acc.ID(item)
		s := o.acc.Sequence(item)
		matches := findMatches(s, opts)
		for _, m := range matches {
			if opts.MaxMatches > 0 && countForID(out, id) >= opts.MaxMatches {
				break
			}
			out = append(out, record.MotifLocation{
				SequenceID: id,
				Position:   int64(m.Position),
				Length:     m.Length,
				Strand:     m.Strand,
				Mismatches: m.Mismatches,
			})
		}
		if opts.SearchBothStrands {
			rc, rerr := seq.ReverseComplement(s, false)
			if rerr == nil {
				for _, m := range findMatches(rc, opts) {
					if opts.MaxMatches > 0 && countForID(out, id) >= opts.MaxMatches {
						break
					}
					out = append(out, record.MotifLocation{
						SequenceID: id,
						Position:   int64(len(s) - m.Position - m.Length),
						Length:     m.Length,
						Strand:     record.StrandReverse,
						Mismatches: m.Mismatches,
					})
				}
			}
		}
		return nil
	})
	return out, err
}

func findMatches(s string, opts LocateOptions) []seq.Match {
	if opts.AllowMismatches > 0 {
		return seq.FindFuzzy(s, opts.Pattern, opts.AllowMismatches, false)
	}
	return seq.FindExact(s, opts.Pattern, opts.AllowOverlaps)
}

func countForID(locs []record.MotifLocation, id string) int {
	n := 0
	for _, l := range locs {
		if l.SequenceID == id {
			n++
		}
	}
	return n
}
