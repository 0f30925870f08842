// Package quality implements spec §4.B: Phred+33/Phred+64/Solexa score
// conversion, encoding detection, sliding-window trimming, and quality
// statistics. The Phred/Solexa conversions follow vmikk-phredsort's
// qualitymetrics.go; quantile math is done with gonum/stat, the
// statistics package the retrieval pack's kortschak-ins repo depends on.
package quality

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/nrminor/genotype/internal/gterr"
	"github.com/nrminor/genotype/record"
)

const (
	offsetPhred33 = 33
	offsetPhred64 = 64
)

// ToNumbers converts an ASCII quality string to numeric Phred-equivalent
// scores under the given encoding (spec §4.B). Solexa scores convert to
// Phred via P = 10*log10(10^(S/10)+1) as specified.
func ToNumbers(qual string, enc record.QualityEncoding) ([]float64, error) {
	if len(qual) == 0 {
		return nil, gterr.Qualityf("empty quality string")
	}
	out := make([]float64, len(qual))
	for i := 0; i < len(qual); i++ {
		b := qual[i]
		switch enc {
		case record.Phred33:
			out[i] = float64(int(b) - offsetPhred33)
		case record.Phred64:
			out[i] = float64(int(b) - offsetPhred64)
		case record.Solexa:
			s := float64(int(b) - offsetPhred64)
			out[i] = 10 * math.Log10(math.Pow(10, s/10)+1)
		default:
			return nil, gterr.Qualityf("unknown quality encoding %v", enc)
		}
	}
	return out, nil
}

// ToString is the inverse of ToNumbers; round-tripping a valid quality
// string through ToNumbers then ToString under the same encoding must
// reproduce the original string (spec §8 invariant 5), except for Solexa
// where the forward transform is lossy by specification (negative scores
// below the representable range saturate), so ToString always re-derives
// ASCII directly from the encoding's offset rather than re-inverting the
// Solexa log-odds formula.
func ToString(scores []float64, enc record.QualityEncoding) (string, error) {
	out := make([]byte, len(scores))
	offset := offsetPhred33
	if enc == record.Phred64 || enc == record.Solexa {
		offset = offsetPhred64
	}
	for i, s := range scores {
		v := int(math.Round(s)) + offset
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		out[i] = byte(v)
	}
	return string(out), nil
}

// Detection is the outcome of encoding sniffing, paired with a warning
// message when the call is ambiguous (spec §4.B).
type Detection struct {
	Encoding   record.QualityEncoding
	Confidence float64
	Warning    string
}

// Detect scans the min/max ASCII values of qual and guesses the encoding
// using the ranges from spec §4.B.
func Detect(qual string) Detection {
	if len(qual) == 0 {
		return Detection{Encoding: record.Phred33, Confidence: 0, Warning: "empty quality string"}
	}
	lo, hi := byte(255), byte(0)
	for i := 0; i < len(qual); i++ {
		b := qual[i]
		if b < lo {
			lo = b
		}
		if b > hi {
			hi = b
		}
	}
	switch {
	case lo >= 33 && hi <= 73:
		return Detection{Encoding: record.Phred33, Confidence: 1.0}
	case lo >= 59 && lo <= 63:
		return Detection{Encoding: record.Solexa, Confidence: 0.9}
	case lo >= 64 && hi <= 104:
		return Detection{Encoding: record.Phred64, Confidence: 1.0}
	case lo >= 33 && hi <= 126:
		return Detection{
			Encoding:   record.Phred33,
			Confidence: 0.4,
			Warning:    "quality range overlaps multiple encodings; defaulting to Phred+33",
		}
	default:
		return Detection{
			Encoding:   record.Phred33,
			Confidence: 0.2,
			Warning:    "quality byte range is outside all known encodings; defaulting to Phred+33",
		}
	}
}

// Stats summarizes a numeric score vector (spec §4.B).
type Stats struct {
	N           int
	Mean        float64
	Median      float64
	Min, Max    float64
	Q25, Q75    float64
	FractionQ20 float64
	FractionQ30 float64
}

// Summarize computes Stats over a non-empty numeric score vector.
func Summarize(scores []float64) (Stats, error) {
	n := len(scores)
	if n == 0 {
		return Stats{}, gterr.Qualityf("cannot summarize an empty quality vector")
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	s := Stats{
		N:    n,
		Min:  sorted[0],
		Max:  sorted[n-1],
		Mean: stat.Mean(sorted, nil),
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.Q25 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	s.Q75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)

	var n20, n30 int
	for _, v := range scores {
		if v >= 20 {
			n20++
		}
		if v >= 30 {
			n30++
		}
	}
	s.FractionQ20 = float64(n20) / float64(n)
	s.FractionQ30 = float64(n30) / float64(n)
	return s, nil
}

// windowAverage returns the mean of scores[i:i+window], clamped to the
// slice bounds (used by TrimStart/TrimEnd when fewer than window bases
// remain).
func windowAverage(scores []float64, i, window int) float64 {
	end := i + window
	if end > len(scores) {
		end = len(scores)
	}
	if end <= i {
		return 0
	}
	sum := 0.0
	for _, v := range scores[i:end] {
		sum += v
	}
	return sum / float64(end-i)
}

// TrimStart returns the smallest i such that the average of q[i:i+window]
// is >= threshold, given ASCII quality string q and the encoding it's in.
// If no such i exists, it returns len(q) (spec §4.B).
func TrimStart(q string, threshold float64, window int, enc record.QualityEncoding) (int, error) {
	scores, err := ToNumbers(q, enc)
	if err != nil {
		return len(q), err
	}
	for i := 0; i < len(scores); i++ {
		if windowAverage(scores, i, window) >= threshold {
			return i, nil
		}
	}
	return len(q), nil
}

// TrimEnd is the symmetric right-scan of TrimStart: it returns the largest
// j such that the average of q[j-window:j] is >= threshold, scanning from
// the end. If no such j exists, it returns 0.
func TrimEnd(q string, threshold float64, window int, enc record.QualityEncoding) (int, error) {
	scores, err := ToNumbers(q, enc)
	if err != nil {
		return 0, err
	}
	for j := len(scores); j > 0; j-- {
		start := j - window
		if start < 0 {
			start = 0
		}
		if windowAverage(scores, start, j-start) >= threshold {
			return j, nil
		}
	}
	return 0, nil
}
