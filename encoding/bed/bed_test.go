package bed

import (
	"bytes"
	"testing"

	"github.com/nrminor/genotype/record"
)

func TestReaderBED3(t *testing.T) {
	recs, err := Collect(ParseString("chr1\t100\t200\nchr2\t300\t400\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Variant != record.BED3 || recs[0].Chromosome != "chr1" || recs[0].Start != 100 || recs[0].End != 200 {
		t.Errorf("got %+v", recs[0])
	}
}

func TestReaderSkipsComments(t *testing.T) {
	const in = "track name=foo\n#comment\nbrowser position chr1\nchr1\t1\t2\n"
	recs, err := Collect(ParseString(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
}

func TestReaderBED6(t *testing.T) {
	recs, err := Collect(ParseString("chr1\t100\t200\tfeat1\t500\t+\n"))
	if err != nil {
		t.Fatal(err)
	}
	r := recs[0]
	if r.Variant != record.BED6 || r.Name != "feat1" || r.Score != 500 || r.Strand != record.StrandForward {
		t.Errorf("got %+v", r)
	}
}

func TestReaderRejectsShortLine(t *testing.T) {
	_, err := Collect(ParseString("chr1\t100\n"))
	if err == nil {
		t.Fatal("expected an error for a BED line with fewer than 3 columns")
	}
}

func TestReaderStrictRejectsBadCoordinates(t *testing.T) {
	_, err := Collect(ParseString("chr1\t200\t100\n", OptStrict()))
	if err == nil {
		t.Fatal("expected an error for start > end under strict mode")
	}
}

func TestWriterRoundTrip(t *testing.T) {
	const in = "chr1\t100\t200\tfeat1\t500\t+\n"
	recs, err := Collect(ParseString(in))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatal(err)
		}
	}
	_ = w.Flush()
	if buf.String() != in {
		t.Errorf("got %q, want %q", buf.String(), in)
	}
}
