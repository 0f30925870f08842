// Package statsacc implements spec §4.F/§4.G's stats terminal stage: a
// single-pass online accumulator for sum/sumSq/min/max plus a reservoir
// sample of lengths for quantile estimation, and N50/N90/L50 computed at
// Finalize from the full sorted length vector. Quantile math reuses
// gonum/stat, as in the quality package's Summarize -- the
// same dependency the retrieval pack's kortschak-ins repo uses for
// statistics -- rather than hand-rolling percentile interpolation.
package statsacc

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/nrminor/genotype/internal/gterr"
	"github.com/nrminor/genotype/seq"
)

// Options configures an Accumulator (spec §4.F `stats` parameters).
type Options struct {
	Detailed       bool
	IncludeQuality bool
	CalculateN50   bool
	CalculateGC    bool
	CountGaps      bool
	ReservoirSize  int
	Seed           int64
}

func (o *Options) fill() {
	if o.ReservoirSize <= 0 {
		o.ReservoirSize = 10_000
	}
}

// Accumulator collects summary statistics over a stream of sequences
// without retaining the sequences themselves. It keeps a bounded
// reservoir of lengths for quantile estimation and, when CalculateN50 is
// set, the full length vector.
type Accumulator struct {
	opts Options

	n         int64
	sumLen    float64
	sumLenSq  float64
	minLen    int64
	maxLen    int64
	gcTotal   float64
	gapTotal  int64
	baseTotal int64

	q20, q30     int64
	qualityTotal int64

	lengths   []int64 // full vector, needed for exact N50/L50
	reservoir []int64
	seen      int64
	rngState  uint64
}

// New constructs an empty Accumulator.
func New(opts Options) *Accumulator {
	opts.fill()
	seed := uint64(opts.Seed)
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	return &Accumulator{opts: opts, minLen: -1, rngState: seed}
}

// nextRand is a splitmix64 step: a fast, deterministic PRNG used only for reservoir
// index selection here; determinism under a fixed seed matches the
// sample package's requirement that identical seeds reproduce identical
// output.
func (a *Accumulator) nextRand() uint64 {
	a.rngState += 0x9e3779b97f4a7c15
	z := a.rngState
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Add folds one sequence (and, if IncludeQuality, its numeric quality
// scores) into the running statistics.
func (a *Accumulator) Add(sequence string, qualityScores []float64) {
	length := int64(len(sequence))
	a.n++
	a.sumLen += float64(length)
	a.sumLenSq += float64(length) * float64(length)
	if a.minLen < 0 || length < a.minLen {
		a.minLen = length
	}
	if length > a.maxLen {
		a.maxLen = length
	}

	if a.opts.CalculateGC {
		a.gcTotal += seq.GCContent(sequence) / 100 * float64(length)
		a.baseTotal += length
	}
	if a.opts.CountGaps {
		for i := 0; i < len(sequence); i++ {
			c := sequence[i]
			if c == '-' || c == '.' {
				a.gapTotal++
			}
		}
	}

	if a.opts.CalculateN50 {
		a.lengths = append(a.lengths, length)
	}
	a.reservoirAdd(length)

	if a.opts.IncludeQuality {
		for _, s := range qualityScores {
			a.qualityTotal++
			if s >= 20 {
				a.q20++
			}
			if s >= 30 {
				a.q30++
			}
		}
	}
}

func (a *Accumulator) reservoirAdd(length int64) {
	a.seen++
	if len(a.reservoir) < a.opts.ReservoirSize {
		a.reservoir = append(a.reservoir, length)
		return
	}
	j := a.nextRand() % uint64(a.seen)
	if int(j) < a.opts.ReservoirSize {
		a.reservoir[j] = length
	}
}

// Summary is the finalized result of a stats stage (spec §4.F).
type Summary struct {
	N                        int64
	TotalLength              int64
	MinLength, MaxLength     int64
	MeanLength               float64
	Q25Length, Q75Length     float64
	N50, N90                 int64
	L50, L90                 int64
	GCPercent                float64
	GapPercent               float64
	FractionQ20, FractionQ30 float64
}

// Finalize computes the closed-form summary, including N50/N90/L50/L90
// which require the sorted length vector (spec §4.G: "streaming N50
// requires the sorted length vector at finalize").
func (a *Accumulator) Finalize() (Summary, error) {
	if a.n == 0 {
		return Summary{}, gterr.Validationf("cannot finalize statistics over zero records")
	}
	s := Summary{
		N:           a.n,
		TotalLength: int64(a.sumLen),
		MinLength:   a.minLen,
		MaxLength:   a.maxLen,
		MeanLength:  a.sumLen / float64(a.n),
	}

	quantileSource := a.reservoir
	if a.opts.CalculateN50 {
		quantileSource = a.lengths
	}
	if len(quantileSource) > 0 {
		sorted := make([]float64, len(quantileSource))
		for i, v := range quantileSource {
			sorted[i] = float64(v)
		}
		sort.Float64s(sorted)
		s.Q25Length = stat.Quantile(0.25, stat.Empirical, sorted, nil)
		s.Q75Length = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	}

	if a.opts.CalculateN50 && len(a.lengths) > 0 {
		n50, l50 := nXlX(a.lengths, 0.5)
		n90, l90 := nXlX(a.lengths, 0.9)
		s.N50, s.L50 = n50, l50
		s.N90, s.L90 = n90, l90
	}

	if a.opts.CalculateGC && a.baseTotal > 0 {
		s.GCPercent = a.gcTotal / float64(a.baseTotal) * 100
	}
	if a.opts.CountGaps && a.sumLen > 0 {
		s.GapPercent = float64(a.gapTotal) / a.sumLen * 100
	}
	if a.opts.IncludeQuality && a.qualityTotal > 0 {
		s.FractionQ20 = float64(a.q20) / float64(a.qualityTotal)
		s.FractionQ30 = float64(a.q30) / float64(a.qualityTotal)
	}
	return s, nil
}

// nXlX computes the NX/LX statistic for fraction in (0,1]: sort lengths
// descending, accumulate until the running sum reaches fraction of the
// total, and report the length and count of sequences consumed so far.
func nXlX(lengths []int64, fraction float64) (nx int64, lx int64) {
	sorted := append([]int64(nil), lengths...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	var total int64
	for _, l := range sorted {
		total += l
	}
	threshold := float64(total) * fraction

	var running float64
	for i, l := range sorted {
		running += float64(l)
		if running >= threshold {
			return l, int64(i + 1)
		}
	}
	if len(sorted) == 0 {
		return 0, 0
	}
	return sorted[len(sorted)-1], int64(len(sorted))
}
