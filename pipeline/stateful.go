package pipeline

import (
	"github.com/nrminor/genotype/dedup"
	"github.com/nrminor/genotype/extsort"
	"github.com/nrminor/genotype/sample"
	"github.com/nrminor/genotype/seq"
)

// SampleStrategy names a sampling algorithm (spec §4.F `sample`).
type SampleStrategy int

const (
	SampleReservoir SampleStrategy = iota
	SampleSystematic
	SampleBernoulli
	SampleWeighted
)

// SampleOptions configures the sample stage. N and Fraction are mutually
// exclusive (spec §4.F); Total is required for SampleSystematic, and
// WeightFunc is required for SampleWeighted.
type SampleOptions struct {
	N           int
	Fraction    float64
	HasFraction bool
	Strategy    SampleStrategy
	Seed        int64
	Total       int
	WeightFunc  func(sequence string) float64
}

// Sample is a stateful stage: it pulls the entire upstream, applies the
// configured strategy, and re-exposes the result as a new lazy source
// (spec §4.F "stateful-sink-then-source"; reservoir sampling reorders
// relative to input per §4.F's composition rules).
func (o *Ops[T]) Sample(opts SampleOptions) *Ops[T] {
	pull := func() (T, bool, error) { return o.pull() }
	next := func() ([]T, error) {
		if opts.HasFraction {
			return sample.Bernoulli(pull, opts.Fraction, opts.Seed)
		}
		switch opts.Strategy {
		case SampleSystematic:
			return sample.Systematic(pull, opts.N, opts.Total)
		case SampleBernoulli:
			return sample.Bernoulli(pull, float64(opts.N)/float64(maxInt(opts.Total, 1)), opts.Seed)
		case SampleWeighted:
			weightFn := func(item T) float64 { return opts.WeightFunc(o.acc.Sequence(item)) }
			return sample.Weighted(pull, opts.N, weightFn, opts.Seed)
		default:
			return sample.Reservoir(pull, opts.N, opts.Seed)
		}
	}
	return o.materialize(next)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// materialize runs producer once (lazily, on first pull) and re-exposes
// its result as a Next[T] over a fixed slice, implementing the
// stateful-sink-then-source stage kind shared by Sample and Sort.
func (o *Ops[T]) materialize(producer func() ([]T, error)) *Ops[T] {
	var items []T
	var err error
	var started bool
	idx := 0
	next := func() (T, bool, error) {
		var zero T
		if !started {
			started = true
			items, err = producer()
		}
		if err != nil {
			return zero, false, err
		}
		if idx >= len(items) {
			return zero, false, nil
		}
		v := items[idx]
		idx++
		return v, true, nil
	}
	n := *o
	n.next = next
	return &n
}

// SortBy names the sort-key projection (spec §4.F `sort`).
type SortBy int

const (
	SortByLength SortBy = iota
	SortByID
	SortByGC
	SortByQuality
)

// SortOrder selects ascending or descending order.
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// SortOptions configures the sort stage.
type SortOptions struct {
	By                SortBy
	Order             SortOrder
	InMemoryThreshold int
	QualityScore      func(item interface{}) float64 // used only when By == SortByQuality
}

// Sort is a stateful-sink-then-source stage: in-memory quicksort below
// InMemoryThreshold, external k-way merge above it (spec §4.F `sort`,
// §4.G "External sorter").
func (o *Ops[T]) Sort(opts SortOptions) *Ops[T] {
	less := o.sortLess(opts)
	producer := func() ([]T, error) {
		threshold := opts.InMemoryThreshold
		if threshold <= 0 {
			threshold = 100_000
		}
		sorter := extsort.New(less, extsort.Options{InMemoryThreshold: threshold})
		for {
			item, ok, err := o.pull()
			if err != nil {
				sorter.Cleanup()
				return nil, err
			}
			if !ok {
				break
			}
			if err := sorter.Add(item); err != nil {
				sorter.Cleanup()
				return nil, err
			}
		}
		return sorter.Finish()
	}
	return o.materialize(producer)
}

func (o *Ops[T]) sortLess(opts SortOptions) extsort.Less[T] {
	key := func(item T) float64 {
		switch opts.By {
		case SortByID:
			return 0 // handled separately below
		case SortByGC:
			return seq.GCContent(o.acc.Sequence(item))
		case SortByQuality:
			if opts.QualityScore != nil {
				return opts.QualityScore(item)
			}
			return 0
		default:
			return float64(len(o.acc.Sequence(item)))
		}
	}
	return func(a, b T) bool {
		if opts.By == SortByID {
			ida, idb := o.acc.ID(a), o.acc.ID(b)
			if opts.Order == SortDescending {
				return ida > idb
			}
			return ida < idb
		}
		ka, kb := key(a), key(b)
		if opts.Order == SortDescending {
			return ka > kb
		}
		return ka < kb
	}
}

// RmDupOptions configures the rmdup stage (spec §4.F `rmdup`).
type RmDupOptions struct {
	By            dedup.Key
	CaseSensitive bool
	Approximate   bool // uses a scalable Bloom filter instead of exact hashing
	ExpectedCount int
	FalsePositive float64
}

// RmDup drops records whose fingerprint has been seen before, preserving
// first-seen order (spec §4.F `rmdup`, §4.F composition rules).
func (o *Ops[T]) RmDup(opts RmDupOptions) *Ops[T] {
	var exact *dedup.Exact
	var approx *dedup.ScalableBloom
	if opts.Approximate {
		approx = dedup.NewScalableBloom(opts.ExpectedCount, opts.FalsePositive)
	} else {
		exact = dedup.NewExact()
	}
	return o.chain(func(item T) (T, bool, error) {
		key := dedup.FingerprintKey(opts.By, o.acc.ID(item), o.acc.Sequence(item), opts.CaseSensitive)
		var seen bool
		if opts.Approximate {
			seen = approx.SeenBefore(key)
		} else {
			seen = exact.SeenBefore(key)
		}
		return item, !seen, nil
	})
}
