package seq

import (
	"regexp"

	"github.com/antzucaro/matchr"

	"github.com/nrminor/genotype/record"
)

// Match is one location where a pattern was found in a sequence.
type Match struct {
	Position   int // 0-based
	Length     int
	Mismatches int
	Strand     record.Strand
}

// FindExact locates every occurrence of pattern in text (non-overlapping
// unless allowOverlaps is set) using the Boyer-Moore-Horspool
// bad-character heuristic (spec §4.C:
// "Boyer-Moore for literal").
func FindExact(text, pattern string, allowOverlaps bool) []Match {
	if len(pattern) == 0 || len(pattern) > len(text) {
		return nil
	}
	badChar := buildBadCharTable(pattern)
	var matches []Match
	m := len(pattern)
	n := len(text)
	i := 0
	for i <= n-m {
		j := m - 1
		for j >= 0 && pattern[j] == text[i+j] {
			j--
		}
		if j < 0 {
			matches = append(matches, Match{Position: i, Length: m})
			if allowOverlaps {
				i++
			} else {
				i += m
			}
			continue
		}
		shift := badChar[text[i+m-1]]
		if shift < 1 {
			shift = 1
		}
		i++
		if shift > 1 {
			i += shift - 1
		}
	}
	return matches
}

func buildBadCharTable(pattern string) [256]int {
	var table [256]int
	m := len(pattern)
	for i := 0; i < m; i++ {
		table[pattern[i]] = m - 1 - i
	}
	return table
}

// FindStreaming implements KMP, which only needs O(1) extra state beyond
// its failure table and can therefore be driven incrementally over a
// streamed sequence (spec §4.C: "KMP for streaming").
type FindStreaming struct {
	pattern string
	fail    []int
	state   int
	pos     int
}

// NewFindStreaming builds a KMP matcher for pattern.
func NewFindStreaming(pattern string) *FindStreaming {
	f := &FindStreaming{pattern: pattern, fail: kmpFailure(pattern)}
	return f
}

func kmpFailure(pattern string) []int {
	fail := make([]int, len(pattern))
	k := 0
	for i := 1; i < len(pattern); i++ {
		for k > 0 && pattern[i] != pattern[k] {
			k = fail[k-1]
		}
		if pattern[i] == pattern[k] {
			k++
		}
		fail[i] = k
	}
	return fail
}

// Feed advances the matcher by one byte, returning the 0-based start
// position of a match ending at this byte, or -1 if none.
func (f *FindStreaming) Feed(b byte) int {
	defer func() { f.pos++ }()
	for f.state > 0 && (f.state >= len(f.pattern) || f.pattern[f.state] != b) {
		f.state = f.fail[f.state-1]
	}
	if f.pattern[f.state] == b {
		f.state++
	}
	if f.state == len(f.pattern) {
		start := f.pos - len(f.pattern) + 1
		f.state = f.fail[f.state-1]
		return start
	}
	return -1
}

// FindMultiple locates occurrences of any of several literal patterns in
// text in a single pass, using Rabin-Karp rolling hashes (spec §4.C:
// "Rabin-Karp for multiple patterns").
func FindMultiple(text string, patterns []string) map[string][]Match {
	results := make(map[string][]Match, len(patterns))
	byLen := map[int][]string{}
	for _, p := range patterns {
		if len(p) == 0 || len(p) > len(text) {
			continue
		}
		byLen[len(p)] = append(byLen[len(p)], p)
	}
	const base = 257
	const modulus = 1_000_000_007
	for length, pats := range byLen {
		hashToPats := map[int64][]string{}
		for _, p := range pats {
			hashToPats[rollingHash(p, base, modulus)] = append(hashToPats[rollingHash(p, base, modulus)], p)
		}
		var pow int64 = 1
		for i := 0; i < length-1; i++ {
			pow = (pow * base) % modulus
		}
		windowHash := rollingHash(text[:length], base, modulus)
		checkWindow := func(start int, h int64) {
			for _, p := range hashToPats[h] {
				if text[start:start+length] == p {
					results[p] = append(results[p], Match{Position: start, Length: length})
				}
			}
		}
		checkWindow(0, windowHash)
		for i := 1; i <= len(text)-length; i++ {
			windowHash = (windowHash - int64(text[i-1])*pow%modulus + modulus*base) % modulus
			windowHash = (windowHash*base + int64(text[i+length-1])) % modulus
			checkWindow(i, windowHash)
		}
	}
	return results
}

func rollingHash(s string, base, modulus int64) int64 {
	var h int64
	for i := 0; i < len(s); i++ {
		h = (h*base + int64(s[i])) % modulus
	}
	return h
}

// iupacMatches reports whether the ambiguity code p (pattern byte) is
// compatible with the concrete base t (text byte), case-insensitively.
func iupacMatches(p, t byte) bool {
	up := func(b byte) byte {
		if b >= 'a' && b <= 'z' {
			return b - ('a' - 'A')
		}
		return b
	}
	p, t = up(p), up(t)
	if p == t || p == 'N' {
		return true
	}
	set, ok := iupacExpansion[p]
	if !ok {
		return p == t
	}
	for i := 0; i < len(set); i++ {
		if set[i] == t {
			return true
		}
	}
	return false
}

// FindAmbiguous locates every occurrence of an IUPAC-ambiguous pattern in
// text using bit-parallel Shift-And matching (spec §4.C: "bit-parallel for
// IUPAC-aware"). Patterns up to 64 bytes are supported, covering every
// realistic motif/primer length; longer patterns fall back to a direct
// scan.
func FindAmbiguous(text, pattern string) []Match {
	m := len(pattern)
	if m == 0 || m > len(text) {
		return nil
	}
	if m > 64 {
		return findAmbiguousScan(text, pattern)
	}
	var charMask [256]uint64
	for i := 0; i < m; i++ {
		for b := 0; b < 256; b++ {
			if iupacMatches(pattern[i], byte(b)) {
				charMask[b] |= 1 << uint(i)
			}
		}
	}
	var state uint64
	highBit := uint64(1) << uint(m-1)
	var matches []Match
	for i := 0; i < len(text); i++ {
		state = ((state << 1) | 1) & charMask[text[i]]
		if state&highBit != 0 {
			matches = append(matches, Match{Position: i - m + 1, Length: m})
		}
	}
	return matches
}

func findAmbiguousScan(text, pattern string) []Match {
	var matches []Match
	m := len(pattern)
	for i := 0; i <= len(text)-m; i++ {
		ok := true
		for j := 0; j < m; j++ {
			if !iupacMatches(pattern[j], text[i+j]) {
				ok = false
				break
			}
		}
		if ok {
			matches = append(matches, Match{Position: i, Length: m})
		}
	}
	return matches
}

// FindFuzzy locates every window of text, of the same length as pattern,
// within maxMismatches of pattern. By default the distance is a bounded
// Hamming count (hammingBounded); when allowIndels is set it is the
// github.com/antzucaro/matchr Levenshtein distance between the window and
// pattern. Windows always have the pattern's length, so matches that would
// need a longer or shorter stretch of text are not reported.
func FindFuzzy(text, pattern string, maxMismatches int, allowIndels bool) []Match {
	m := len(pattern)
	if m == 0 || m > len(text) {
		return nil
	}
	var matches []Match
	for i := 0; i <= len(text)-m; i++ {
		window := text[i : i+m]
		var dist int
		if allowIndels {
			dist = matchr.Levenshtein(window, pattern)
		} else {
			dist = hammingBounded(window, pattern, maxMismatches)
		}
		if dist <= maxMismatches {
			matches = append(matches, Match{Position: i, Length: m, Mismatches: dist})
		}
	}
	return matches
}

// hammingBounded computes the Hamming distance between equal-length a, b,
// but returns early once the running count exceeds bound, avoiding a
// full scan for windows that are obviously too divergent.
func hammingBounded(a, b string, bound int) int {
	mismatches := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			mismatches++
			if mismatches > bound {
				return mismatches
			}
		}
	}
	return mismatches
}

// FindRegex locates every non-overlapping match of a compiled regular
// expression in text. The pipeline's grep stage does not call it; Grep
// tests its Regex with MatchString.
func FindRegex(text string, re *regexp.Regexp) []Match {
	locs := re.FindAllStringIndex(text, -1)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{Position: loc[0], Length: loc[1] - loc[0]})
	}
	return matches
}

// FindPalindromes slides an even-length window w in [minWindow, maxWindow]
// across seq and reports positions where the window equals its own
// reverse complement (spec §4.C).
func FindPalindromes(seq string, minWindow, maxWindow int) ([]record.MotifLocation, error) {
	if minWindow < 4 {
		minWindow = 4
	}
	if minWindow%2 != 0 {
		minWindow++
	}
	if maxWindow > 20 {
		maxWindow = 20
	}
	var hits []record.MotifLocation
	for w := minWindow; w <= maxWindow; w += 2 {
		if w > len(seq) {
			break
		}
		for i := 0; i <= len(seq)-w; i++ {
			window := seq[i : i+w]
			rc, err := ReverseComplement(window, false)
			if err != nil {
				return nil, err
			}
			if window == rc {
				hits = append(hits, record.MotifLocation{
					Position: int64(i),
					Length:   w,
					Strand:   record.StrandNone,
					Score:    1.0,
				})
			}
		}
	}
	return hits, nil
}
