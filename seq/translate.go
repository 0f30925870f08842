package seq

import (
	"strconv"
	"strings"

	"github.com/nrminor/genotype/internal/gterr"
)

// geneticCode is one NCBI genetic code table: a map from upper-case codon
// to single-letter amino acid, plus which codons are starts.
type geneticCode struct {
	id     int
	name   string
	codons map[string]byte
	starts map[string]bool
}

// codeTables holds the NCBI genetic code tables this module ships with.
// Every table is built as a codon-diff against standardCode, following the
// NCBI "Genetic Codes" reference tables. IDs outside this map are rejected
// by resolveCode rather than silently mistranslated against the standard
// code (see DESIGN.md's genetic-code Open Question resolution).
var codeTables = map[int]*geneticCode{
	1:  standardCode(),
	2:  vertebrateMitoCode(),
	3:  yeastMitoCode(),
	4:  moldProtozoanMitoCode(),
	5:  invertebrateMitoCode(),
	6:  ciliateNuclearCode(),
	9:  echinodermMitoCode(),
	10: euplotidNuclearCode(),
	11: bacterialCode(),
	12: altYeastNuclearCode(),
	13: ascidianMitoCode(),
	14: altFlatwormMitoCode(),
	16: chlorophyceanMitoCode(),
}

func standardCode() *geneticCode {
	const table = `
TTT F TTC F TTA L TTG L CTT L CTC L CTA L CTG L
ATT I ATC I ATA I ATG M GTT V GTC V GTA V GTG V
TCT S TCC S TCA S TCG S CCT P CCC P CCA P CCG P
ACT T ACC T ACA T ACG T GCT A GCC A GCA A GCG A
TAT Y TAC Y TAA * TAG * CAT H CAC H CAA Q CAG Q
AAT N AAC N AAA K AAG K GAT D GAC D GAA E GAG E
TGT C TGC C TGA * TGG W CGT R CGC R CGA R CGG R
AGT S AGC S AGA R AGG R GGT G GGC G GGA G GGG G
`
	return &geneticCode{
		id:     1,
		name:   "Standard",
		codons: parseCodonTable(table),
		starts: map[string]bool{"ATG": true, "TTG": true, "CTG": true, "GTG": true},
	}
}

func vertebrateMitoCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 2, "Vertebrate Mitochondrial"
	c.codons = cloneCodons(c.codons)
	c.codons["AGA"] = '*'
	c.codons["AGG"] = '*'
	c.codons["ATA"] = 'M'
	c.codons["TGA"] = 'W'
	c.starts = map[string]bool{"ATT": true, "ATC": true, "ATA": true, "ATG": true, "GTG": true}
	return c
}

func bacterialCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 11, "Bacterial, Archaeal and Plant Plastid"
	c.codons = cloneCodons(c.codons)
	c.starts = map[string]bool{"ATG": true, "GTG": true, "TTG": true, "ATT": true, "ATC": true, "CTG": true}
	return c
}

func yeastMitoCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 3, "Yeast Mitochondrial"
	c.codons = cloneCodons(c.codons)
	for _, codon := range []string{"CTT", "CTC", "CTA", "CTG"} {
		c.codons[codon] = 'T'
	}
	c.codons["ATA"] = 'M'
	c.codons["TGA"] = 'W'
	c.starts = map[string]bool{"ATA": true, "ATG": true, "GTG": true}
	return c
}

func moldProtozoanMitoCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 4, "Mold, Protozoan, Coelenterate Mitochondrial; Mycoplasma/Spiroplasma"
	c.codons = cloneCodons(c.codons)
	c.codons["TGA"] = 'W'
	c.starts = map[string]bool{
		"TTA": true, "TTG": true, "CTG": true,
		"ATT": true, "ATC": true, "ATA": true, "ATG": true, "GTG": true,
	}
	return c
}

func invertebrateMitoCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 5, "Invertebrate Mitochondrial"
	c.codons = cloneCodons(c.codons)
	c.codons["AGA"] = 'S'
	c.codons["AGG"] = 'S'
	c.codons["ATA"] = 'M'
	c.codons["TGA"] = 'W'
	c.starts = map[string]bool{
		"TTG": true, "ATT": true, "ATC": true, "ATA": true, "ATG": true, "GTG": true,
	}
	return c
}

func ciliateNuclearCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 6, "Ciliate, Dasycladacean and Hexamita Nuclear"
	c.codons = cloneCodons(c.codons)
	c.codons["TAA"] = 'Q'
	c.codons["TAG"] = 'Q'
	c.starts = map[string]bool{"ATG": true}
	return c
}

func echinodermMitoCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 9, "Echinoderm and Flatworm Mitochondrial"
	c.codons = cloneCodons(c.codons)
	c.codons["AAA"] = 'N'
	c.codons["AGA"] = 'S'
	c.codons["AGG"] = 'S'
	c.codons["TGA"] = 'W'
	c.starts = map[string]bool{"ATG": true, "GTG": true}
	return c
}

func euplotidNuclearCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 10, "Euplotid Nuclear"
	c.codons = cloneCodons(c.codons)
	c.codons["TGA"] = 'C'
	c.starts = map[string]bool{"ATG": true}
	return c
}

func altYeastNuclearCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 12, "Alternative Yeast Nuclear"
	c.codons = cloneCodons(c.codons)
	c.codons["CTG"] = 'S'
	c.starts = map[string]bool{"CTG": true, "ATG": true}
	return c
}

func ascidianMitoCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 13, "Ascidian Mitochondrial"
	c.codons = cloneCodons(c.codons)
	c.codons["AGA"] = 'G'
	c.codons["AGG"] = 'G'
	c.codons["ATA"] = 'M'
	c.codons["TGA"] = 'W'
	c.starts = map[string]bool{"TTG": true, "ATA": true, "ATG": true, "GTG": true}
	return c
}

func altFlatwormMitoCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 14, "Alternative Flatworm Mitochondrial"
	c.codons = cloneCodons(c.codons)
	c.codons["AAA"] = 'N'
	c.codons["AGA"] = 'S'
	c.codons["AGG"] = 'S'
	c.codons["TAA"] = 'Y'
	c.codons["TGA"] = 'W'
	c.starts = map[string]bool{"ATG": true}
	return c
}

func chlorophyceanMitoCode() *geneticCode {
	c := standardCode()
	c.id, c.name = 16, "Chlorophycean Mitochondrial"
	c.codons = cloneCodons(c.codons)
	c.codons["TAG"] = 'L'
	c.starts = map[string]bool{"ATG": true}
	return c
}

func cloneCodons(m map[string]byte) map[string]byte {
	out := make(map[string]byte, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func parseCodonTable(table string) map[string]byte {
	fields := strings.Fields(table)
	m := make(map[string]byte, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		m[fields[i]] = fields[i+1][0]
	}
	return m
}

// CodeTable reports the name of an NCBI genetic code ID this module carries
// concrete data for (ok=false if unsupported).
func CodeTable(id int) (name string, ok bool) {
	if c, present := codeTables[id]; present {
		return c.name, true
	}
	return "", false
}

// resolveCode resolves a genetic code ID to its table, treating 0 as the
// caller's way of asking for the standard code (spec §4.C default). Any
// other unsupported ID is a ValidationError rather than a silent fallback
// to the standard code, since that would mistranslate proteins without
// signaling it.
func resolveCode(id int) (*geneticCode, error) {
	if id == 0 {
		id = 1
	}
	if c, ok := codeTables[id]; ok {
		return c, nil
	}
	return nil, gterr.Validationf("genetic code %d is not implemented by this module", id)
}

var iupacExpansion = map[byte]string{
	'A': "A", 'C': "C", 'G': "G", 'T': "T", 'U': "T",
	'R': "AG", 'Y': "CT", 'S': "GC", 'W': "AT", 'K': "GT", 'M': "AC",
	'B': "CGT", 'D': "AGT", 'H': "ACT", 'V': "ACG", 'N': "ACGT",
}

// translateCodon resolves a single upper-case codon, expanding IUPAC
// ambiguity into the cartesian product of possible bases. If every
// expansion yields the same amino acid, that amino acid is returned;
// otherwise unknownChar is returned (spec §4.C).
func translateCodon(code *geneticCode, codon string, unknownChar byte) byte {
	if aa, ok := code.codons[codon]; ok {
		return aa
	}
	options := [][]byte{}
	for i := 0; i < 3; i++ {
		exp, ok := iupacExpansion[codon[i]]
		if !ok {
			return unknownChar
		}
		options = append(options, []byte(exp))
	}
	var result byte
	first := true
	for _, b0 := range options[0] {
		for _, b1 := range options[1] {
			for _, b2 := range options[2] {
				concrete := string([]byte{b0, b1, b2})
				aa, ok := code.codons[concrete]
				if !ok {
					return unknownChar
				}
				if first {
					result = aa
					first = false
				} else if aa != result {
					return unknownChar
				}
			}
		}
	}
	if first {
		return unknownChar
	}
	return result
}

// TranslateOptions configures Translate (spec §4.F translate stage, §4.C).
type TranslateOptions struct {
	GeneticCode            int
	ConvertStartCodons     bool
	RemoveStopCodons       bool
	TrimAtFirstStop        bool
	OrfsOnly               bool
	MinOrfLength           int
	AllowAlternativeStarts bool
	StopCodonChar          byte // defaults to '*'
	UnknownCodonChar       byte // defaults to 'X'
}

var defaultAltStarts = map[string]bool{"CTG": true, "TTG": true, "GTG": true}

// Translate converts a nucleotide sequence (in a single reading frame,
// already oriented 5'->3') into a protein sequence under the given
// options.
func Translate(seq string, opt TranslateOptions) (string, error) {
	if len(seq) < 3 {
		return "", nil
	}
	code, err := resolveCode(opt.GeneticCode)
	if err != nil {
		return "", err
	}
	stopChar := opt.StopCodonChar
	if stopChar == 0 {
		stopChar = '*'
	}
	unknownChar := opt.UnknownCodonChar
	if unknownChar == 0 {
		unknownChar = 'X'
	}

	var out strings.Builder
	nCodons := len(seq) / 3
	for i := 0; i < nCodons; i++ {
		codon := strings.ToUpper(seq[i*3 : i*3+3])
		aa := translateCodon(code, codon, unknownChar)
		isStart := i == 0 && (code.starts[codon] || (opt.AllowAlternativeStarts && defaultAltStarts[codon]))
		if isStart && opt.ConvertStartCodons {
			aa = 'M'
		}
		if aa == '*' {
			if opt.TrimAtFirstStop {
				break
			}
			if opt.RemoveStopCodons {
				continue
			}
			out.WriteByte(stopChar)
			continue
		}
		out.WriteByte(aa)
	}
	return out.String(), nil
}

// Frame names one of the six reading frames: +1,+2,+3 on the forward
// strand, -1,-2,-3 on the reverse complement.
type Frame int

const (
	Frame1  Frame = 1
	Frame2  Frame = 2
	Frame3  Frame = 3
	FrameM1 Frame = -1
	FrameM2 Frame = -2
	FrameM3 Frame = -3
)

func (f Frame) Suffix() string {
	if f > 0 {
		return "_frame_+" + strconv.Itoa(int(f))
	}
	return "_frame_" + strconv.Itoa(int(f))
}

// FrameSequence returns seq (or its reverse complement for negative
// frames) offset to begin at the given frame's first base.
func FrameSequence(seq string, f Frame) (string, error) {
	offset := 0
	body := seq
	if f < 0 {
		rc, err := ReverseComplement(seq, false)
		if err != nil {
			return "", err
		}
		body = rc
		offset = int(-f) - 1
	} else {
		offset = int(f) - 1
	}
	if offset >= len(body) {
		return "", nil
	}
	return body[offset:], nil
}

// TranslateAllFrames translates seq in the requested frames, returning a
// parallel slice of (frame, protein) results. If frames is empty, all six
// frames are used (allFrames=true in spec §4.F).
func TranslateAllFrames(seq string, frames []Frame, opt TranslateOptions) ([]Frame, []string, error) {
	if len(frames) == 0 {
		frames = []Frame{Frame1, Frame2, Frame3, FrameM1, FrameM2, FrameM3}
	}
	proteins := make([]string, len(frames))
	for i, f := range frames {
		framed, err := FrameSequence(seq, f)
		if err != nil {
			return nil, nil, err
		}
		p, err := Translate(framed, opt)
		if err != nil {
			return nil, nil, err
		}
		proteins[i] = p
	}
	return frames, proteins, nil
}

// FindORFs scans protein (already translated without stop-trimming, i.e.
// opt.TrimAtFirstStop=false and opt.RemoveStopCodons=false so '*' markers
// remain visible) for start->stop open reading frames at least minLen
// amino acids long, excluding the trailing stop codon itself. A start with
// no stop after it yields an ORF running to the end of protein.
func FindORFs(protein string, minLen int) []string {
	var orfs []string
	start := -1
	for i := 0; i < len(protein); i++ {
		switch {
		case protein[i] == 'M' && start == -1:
			start = i
		case protein[i] == '*' && start != -1:
			if i-start >= minLen {
				orfs = append(orfs, protein[start:i])
			}
			start = -1
		}
	}
	if start != -1 && len(protein)-start >= minLen {
		orfs = append(orfs, protein[start:])
	}
	return orfs
}

// ValidateFrame returns a ValidationError unless f is one of the six legal
// frame values (±1, ±2, ±3).
func ValidateFrame(f int) error {
	switch f {
	case 1, 2, 3, -1, -2, -3:
		return nil
	default:
		return gterr.Validationf("invalid translation frame %d", f)
	}
}
