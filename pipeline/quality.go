package pipeline

import (
	"github.com/nrminor/genotype/quality"
	"github.com/nrminor/genotype/record"
)

// QualityOptions configures the FASTQ-only quality stage (spec §4.F
// `quality`): a sliding-window trim, then an optional mean-score reject.
type QualityOptions struct {
	MinScore      float64
	HasMinScore   bool
	Trim          bool
	TrimThreshold float64 // defaults to 20
	TrimWindow    int     // defaults to 4
}

func (o *QualityOptions) fill() {
	if o.TrimThreshold == 0 {
		o.TrimThreshold = 20
	}
	if o.TrimWindow == 0 {
		o.TrimWindow = 4
	}
}

// QualityStage is the FASTQ-only quality stage (spec §4.F notes
// "FASTQ-only"); it is a top-level function rather than an Ops[T] method
// because only *record.Fastq carries quality data, and Go's generics
// cannot restrict a method to one instantiation of T.
func QualityStage(o *Ops[*record.Fastq], opts QualityOptions) *Ops[*record.Fastq] {
	opts.fill()
	return o.chain(func(item *record.Fastq) (*record.Fastq, bool, error) {
		seqStr, qual := item.Sequence, item.Quality
		if opts.Trim {
			start, err := quality.TrimStart(qual, opts.TrimThreshold, opts.TrimWindow, item.QualityEncoding)
			if err != nil {
				return item, false, err
			}
			end, err := quality.TrimEnd(qual, opts.TrimThreshold, opts.TrimWindow, item.QualityEncoding)
			if err != nil {
				return item, false, err
			}
			if start >= end {
				return item, false, nil
			}
			seqStr = seqStr[start:end]
			qual = qual[start:end]
		}
		if opts.HasMinScore {
			scores, err := quality.ToNumbers(qual, item.QualityEncoding)
			if err != nil {
				return item, false, err
			}
			var sum float64
			for _, s := range scores {
				sum += s
			}
			if len(scores) == 0 || sum/float64(len(scores)) < opts.MinScore {
				return item, false, nil
			}
		}
		out := *item
		out.Sequence = seqStr
		out.Quality = qual
		return &out, true, nil
	})
}
