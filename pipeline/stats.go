package pipeline

import (
	"github.com/nrminor/genotype/quality"
	"github.com/nrminor/genotype/statsacc"
)

// StatsOptions configures the stats terminal stage (spec §4.F `stats`).
type StatsOptions struct {
	Detailed       bool
	IncludeQuality bool
	CalculateN50   bool
	CalculateGC    bool
	CountGaps      bool
}

// Stats is a terminal stage: a single pass accumulating length
// statistics, N50/N90/L50/L90, GC%, gap%, and (for quality-bearing record
// kinds) Q20/Q30 fractions (spec §4.F `stats`).
func (o *Ops[T]) Stats(opts StatsOptions) (statsacc.Summary, error) {
	acc := statsacc.New(statsacc.Options{
		Detailed:       opts.Detailed,
		IncludeQuality: opts.IncludeQuality && o.acc.HasQuality,
		CalculateN50:   opts.CalculateN50,
		CalculateGC:    opts.CalculateGC,
		CountGaps:      opts.CountGaps,
	})
	err := o.drain(func(item T) error {
		var scores []float64
		if opts.IncludeQuality && o.acc.HasQuality {
			qualStr := o.acc.Quality(item)
			enc := o.acc.QualityEncoding(item)
			s, qerr := quality.ToNumbers(qualStr, enc)
			if qerr != nil {
				return qerr
			}
			scores = s
		}
		acc.Add(o.acc.Sequence(item), scores)
		return nil
	})
	if err != nil {
		return statsacc.Summary{}, err
	}
	return acc.Finalize()
}
