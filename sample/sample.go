// Package sample implements spec §4.F/§4.G's sampling strategies:
// reservoir (Vitter's Algorithm R), systematic, Bernoulli, and weighted
// (Efraimidis-Spirakis keys) sampling over a single pass of a record
// stream. The
// deterministic, explicitly-seeded math/rand.Rand is the same idiom the
// teacher's encoding/fastq.Downsample uses (rand.New(rand.NewSource(seed))
// rather than the unseeded global source), generalized from Downsample's
// fixed Bernoulli-only strategy to the full stage catalogue spec §4.F
// requires.
package sample

import (
	"container/heap"
	"math"
	"math/rand"

	"github.com/nrminor/genotype/internal/gterr"
)

// Next pulls the next item from a single-pass source, returning ok=false
// at end of stream.
type Next[T any] func() (item T, ok bool, err error)

// Reservoir implements Vitter's Algorithm R: an n-element array is filled
// with the first n items; thereafter the k-th item (k>n) replaces a
// uniformly random existing slot with probability n/k, otherwise it is
// discarded. The result is a uniform random sample of the whole stream,
// not reordering-free -- the sample is emitted in reservoir-slot order,
// which spec §4.F notes as "reservoir sample reorders relative to input".
func Reservoir[T any](next Next[T], n int, seed int64) ([]T, error) {
	if n <= 0 {
		return nil, gterr.Validationf("reservoir sample size must be > 0, got %d", n)
	}
	rng := rand.New(rand.NewSource(seed))
	reservoir := make([]T, 0, n)
	k := 0
	for {
		item, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return reservoir, nil
		}
		k++
		if len(reservoir) < n {
			reservoir = append(reservoir, item)
			continue
		}
		j := rng.Intn(k)
		if j < n {
			reservoir[j] = item
		}
	}
}

// Systematic selects every floor(total/n)-th item, given the total stream
// length up front (spec §4.F: "every ⌊N/n⌋-th"). Systematic sampling is
// inherently a two-pass or total-count-aware strategy; callers that do not
// know total in advance should use Reservoir or Bernoulli instead.
func Systematic[T any](next Next[T], n int, total int) ([]T, error) {
	if n <= 0 || total <= 0 {
		return nil, gterr.Validationf("systematic sample requires n>0 and total>0, got n=%d total=%d", n, total)
	}
	step := total / n
	if step < 1 {
		step = 1
	}
	var out []T
	k := 0
	for {
		item, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		if k%step == 0 && len(out) < n {
			out = append(out, item)
		}
		k++
	}
}

// Bernoulli independently keeps each item with probability p (spec §4.F:
// "independent p=n/N").
func Bernoulli[T any](next Next[T], p float64, seed int64) ([]T, error) {
	if p < 0 || p > 1 {
		return nil, gterr.Validationf("bernoulli probability must be in [0,1], got %v", p)
	}
	rng := rand.New(rand.NewSource(seed))
	var out []T
	for {
		item, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		if rng.Float64() < p {
			out = append(out, item)
		}
	}
}

type weightedItem[T any] struct {
	item T
	key  float64 // U^(1/w) key, smaller sorts "more likely to be evicted"
}

type weightedHeap[T any] []weightedItem[T]

func (h weightedHeap[T]) Len() int            { return len(h) }
func (h weightedHeap[T]) Less(i, j int) bool  { return h[i].key < h[j].key }
func (h weightedHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *weightedHeap[T]) Push(x interface{}) { *h = append(*h, x.(weightedItem[T])) }
func (h *weightedHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Weighted implements Efraimidis-Spirakis weighted reservoir sampling in
// its A-Res form: every item with positive weight draws its own key
// U^(1/w), and the n largest keys are kept using a min-heap so that
// streaming additions cost O(log n). No exponential jumps (A-ExpJ) are
// taken; one random number is drawn per item.
func Weighted[T any](next Next[T], n int, weightFn func(T) float64, seed int64) ([]T, error) {
	if n <= 0 {
		return nil, gterr.Validationf("weighted sample size must be > 0, got %d", n)
	}
	rng := rand.New(rand.NewSource(seed))
	h := &weightedHeap[T]{}
	heap.Init(h)
	for {
		item, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		w := weightFn(item)
		if w <= 0 {
			continue
		}
		u := rng.Float64()
		key := math.Pow(u, 1/w)
		if h.Len() < n {
			heap.Push(h, weightedItem[T]{item: item, key: key})
			continue
		}
		if key > (*h)[0].key {
			heap.Pop(h)
			heap.Push(h, weightedItem[T]{item: item, key: key})
		}
	}
	out := make([]T, h.Len())
	for i := range out {
		out[i] = (*h)[i].item
	}
	return out, nil
}
