package dedup

import (
	"hash"
	"math"

	"github.com/bits-and-blooms/bitset"
	farm "github.com/dgryski/go-farm"
	"github.com/minio/highwayhash"
)

var highwayKey = [32]byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
	0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17,
	0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f,
}

// singleFilter is one fixed-size Bloom filter layer: m bits, k hash
// functions derived by Kirsch-Mitzenmacher double hashing from two
// independent base hashes (farm.Hash64 and highwayhash), avoiding the
// need for k independent hash function implementations.
type singleFilter struct {
	bits *bitset.BitSet
	m    uint
	k    uint
	n    uint // items added
	cap  uint // item count the layer was sized for
	hw   hash.Hash64
}

func optimalParams(expectedN int, fpr float64) (m uint, k uint) {
	n := float64(expectedN)
	if n < 1 {
		n = 1
	}
	mf := -n * math.Log(fpr) / (math.Ln2 * math.Ln2)
	kf := mf / n * math.Ln2
	if kf < 1 {
		kf = 1
	}
	return uint(math.Ceil(mf)), uint(math.Round(kf))
}

func newSingleFilter(expectedN int, fpr float64) *singleFilter {
	m, k := optimalParams(expectedN, fpr)
	hw, err := highwayhash.New64(highwayKey[:])
	if err != nil {
		panic(err) // only fails if the key length is wrong, which is a constant here
	}
	capacity := uint(expectedN)
	if capacity < 1 {
		capacity = 1
	}
	return &singleFilter{bits: bitset.New(m), m: m, k: k, cap: capacity, hw: hw}
}

func (f *singleFilter) hashes(key []byte) (h1, h2 uint64) {
	h1 = farm.Hash64(key)
	f.hw.Reset()
	_, _ = f.hw.Write(key)
	h2 = f.hw.Sum64()
	return
}

func (f *singleFilter) add(key []byte) {
	h1, h2 := f.hashes(key)
	for i := uint(0); i < f.k; i++ {
		idx := (h1 + uint64(i)*h2) % uint64(f.m)
		f.bits.Set(uint(idx))
	}
	f.n++
}

func (f *singleFilter) mayContain(key []byte) bool {
	h1, h2 := f.hashes(key)
	for i := uint(0); i < f.k; i++ {
		idx := (h1 + uint64(i)*h2) % uint64(f.m)
		if !f.bits.Test(uint(idx)) {
			return false
		}
	}
	return true
}

func (f *singleFilter) loadFactor() float64 {
	return float64(f.n) / float64(f.cap)
}

// ScalableBloom is a scalable Bloom filter (spec §4.G): it starts with
// capacity sized for expectedUnique at falsePositiveRate, and when load
// exceeds a threshold, adds a new layer tuned for a tighter FPR so that
// overall FPR remains bounded. Membership is the disjunction over layers.
type ScalableBloom struct {
	layers          []*singleFilter
	baseFPR         float64
	expectedUnique  int
	tighteningRatio float64
}

// NewScalableBloom constructs a ScalableBloom sized for expectedUnique
// items at falsePositiveRate.
func NewScalableBloom(expectedUnique int, falsePositiveRate float64) *ScalableBloom {
	if expectedUnique <= 0 {
		expectedUnique = 1
	}
	if falsePositiveRate <= 0 {
		falsePositiveRate = 1e-3
	}
	return &ScalableBloom{
		layers:          []*singleFilter{newSingleFilter(expectedUnique, falsePositiveRate)},
		baseFPR:         falsePositiveRate,
		expectedUnique:  expectedUnique,
		tighteningRatio: 0.5,
	}
}

const loadThreshold = 0.75

// SeenBefore reports whether key may already be present (the Bloom
// filter's one-sided false-positive error applies), and records it as
// present regardless of the answer.
func (b *ScalableBloom) SeenBefore(key []byte) bool {
	for _, layer := range b.layers {
		if layer.mayContain(key) {
			return true
		}
	}
	last := b.layers[len(b.layers)-1]
	if last.loadFactor() >= loadThreshold {
		nextFPR := b.baseFPR * math.Pow(b.tighteningRatio, float64(len(b.layers)))
		last = newSingleFilter(b.expectedUnique, nextFPR)
		b.layers = append(b.layers, last)
	}
	last.add(key)
	return false
}
