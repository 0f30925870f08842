package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrminor/genotype/encoding/fasta"
	"github.com/nrminor/genotype/record"
)

func fastaNext(recs []*record.Fasta) Next[*record.Fasta] {
	i := 0
	return func() (*record.Fasta, bool, error) {
		if i >= len(recs) {
			return nil, false, nil
		}
		r := recs[i]
		i++
		return r, true, nil
	}
}

func fastqNext(recs []*record.Fastq) Next[*record.Fastq] {
	i := 0
	return func() (*record.Fastq, bool, error) {
		if i >= len(recs) {
			return nil, false, nil
		}
		r := recs[i]
		i++
		return r, true, nil
	}
}

func sampleFasta() []*record.Fasta {
	return []*record.Fasta{
		{ID: "s1", Description: "short", Sequence: "ACGT"},
		{ID: "s2", Description: "long one", Sequence: "ACGTACGTACGT"},
		{ID: "s3", Description: "gc rich", Sequence: "GCGCGCGC"},
	}
}

func TestFilterByLength(t *testing.T) {
	out, err := NewFasta(fastaNext(sampleFasta())).Filter(FilterOptions{MinLen: 8}).Collect()
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestFilterByGC(t *testing.T) {
	out, err := NewFasta(fastaNext(sampleFasta())).
		Filter(FilterOptions{HasGCBound: true, MinGC: 90, MaxGC: 100}).Collect()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s3", out[0].ID)
}

func TestTransformReverseComplement(t *testing.T) {
	recs := []*record.Fasta{{ID: "s1", Sequence: "ACGT"}}
	out, err := NewFasta(fastaNext(recs)).Transform(TransformOptions{ReverseComplement: true}).Collect()
	require.NoError(t, err)
	assert.Equal(t, "ACGT", out[0].Sequence, "ACGT is palindromic under reverse-complement")
}

func TestCleanRemovesGaps(t *testing.T) {
	recs := []*record.Fasta{{ID: "s1", Sequence: "AC--GT.."}}
	out, err := NewFasta(fastaNext(recs)).Clean(CleanOptions{RemoveGaps: true}).Collect()
	require.NoError(t, err)
	assert.Equal(t, "ACGT", out[0].Sequence)
}

func TestGrepByID(t *testing.T) {
	out, err := NewFasta(fastaNext(sampleFasta())).
		Grep(GrepOptions{Pattern: "s2", Target: GrepID}).Collect()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s2", out[0].ID)
}

func TestHeadLimitsOutput(t *testing.T) {
	out, err := NewFasta(fastaNext(sampleFasta())).Head(2).Collect()
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestSubseq(t *testing.T) {
	recs := []*record.Fasta{{ID: "s1", Sequence: "ACGTACGT"}}
	out, err := NewFasta(fastaNext(recs)).Subseq(2, 6).Collect()
	require.NoError(t, err)
	assert.Equal(t, "GTAC", out[0].Sequence)
}

func TestOnErrorCollectAccumulatesAcrossChain(t *testing.T) {
	recs := []*record.Fasta{
		{ID: "good", Sequence: "ACGT"},
		{ID: "bad1", Sequence: "ACGX"},
		{ID: "bad2", Sequence: "ACXT"},
	}
	ops := NewFasta(fastaNext(recs)).
		WithOnError(OnErrorCollect).
		Transform(TransformOptions{Complement: true, Strict: true}).
		Filter(FilterOptions{MinLen: 1})
	out, err := ops.Collect()
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "good", out[0].ID)
	assert.Len(t, ops.Errors(), 2)
}

func TestRmDupExact(t *testing.T) {
	recs := []*record.Fasta{
		{ID: "a", Sequence: "ACGT"},
		{ID: "b", Sequence: "ACGT"},
		{ID: "c", Sequence: "TTTT"},
	}
	out, err := NewFasta(fastaNext(recs)).RmDup(RmDupOptions{}).Collect()
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestSortByLength(t *testing.T) {
	out, err := NewFasta(fastaNext(sampleFasta())).Sort(SortOptions{By: SortByLength}).Collect()
	require.NoError(t, err)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, len(out[i].Sequence), len(out[i-1].Sequence), "not sorted ascending by length")
	}
}

func TestSortByIDDescending(t *testing.T) {
	out, err := NewFasta(fastaNext(sampleFasta())).
		Sort(SortOptions{By: SortByID, Order: SortDescending}).Collect()
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "s3", out[0].ID)
	assert.Equal(t, "s1", out[2].ID)
}

func TestSampleReservoirSize(t *testing.T) {
	recs := sampleFasta()
	out, err := NewFasta(fastaNext(recs)).Sample(SampleOptions{N: 2, Seed: 1}).Collect()
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestStatsBasic(t *testing.T) {
	summary, err := NewFasta(fastaNext(sampleFasta())).Stats(StatsOptions{CalculateGC: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, summary.N)
}

func TestQualityStageTrims(t *testing.T) {
	recs := []*record.Fastq{
		{ID: "r1", Sequence: "ACGTACGT", Quality: "!!!!IIII", QualityEncoding: record.Phred33},
	}
	out, err := QualityStage(NewFastq(fastqNext(recs)), QualityOptions{Trim: true, TrimThreshold: 20, TrimWindow: 2}).Collect()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Less(t, len(out[0].Sequence), 8, "expected trimming to shorten the sequence")
}

func TestTranslateAllFrames(t *testing.T) {
	recs := []*record.Fasta{{ID: "s1", Sequence: "ATGGCCTAA"}}
	out, err := Translate(NewFasta(fastaNext(recs)), TranslateOptions{IncludeFrameInID: true})
	require.NoError(t, err)
	assert.Len(t, out, 6)
}

func TestLocateExactMatch(t *testing.T) {
	recs := []*record.Fasta{{ID: "s1", Sequence: "ACGTACGTTTT"}}
	locs, err := Locate(NewFasta(fastaNext(recs)), LocateOptions{Pattern: "ACGT"})
	require.NoError(t, err)
	assert.Len(t, locs, 2)
}

func TestWriteFastaRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.fasta")
	recs := sampleFasta()
	require.NoError(t, WriteFasta(NewFasta(fastaNext(recs)), path, fasta.WriterOptions{}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestSplitBySize(t *testing.T) {
	dir := t.TempDir()
	recs := sampleFasta()
	summary, err := NewFasta(fastaNext(recs)).Split(SplitOptions{Mode: SplitBySize, Value: 2, OutputDir: dir, FileExtension: ".fasta"},
		func(f *os.File, item *record.Fasta) error {
			_, werr := f.WriteString(">" + item.ID + "\n" + item.Sequence + "\n")
			return werr
		})
	require.NoError(t, err)
	assert.EqualValues(t, 3, summary.TotalSequences)
	assert.Len(t, summary.Files, 2)
}
