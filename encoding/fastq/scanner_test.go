package fastq

import (
	"bytes"
	"testing"

	"github.com/nrminor/genotype/record"
)

const fq = `@NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG
ATACAGGCCTGANCCACTGTGCCCAGNCTANNTNATTANTGAANANAGAATNGTTNTAAATANANNNNNTNTNNNC
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E
@NB500956:89:HW2FHBGX2:1:11101:13871:1070 1:N:0:ATCACG
CTCAACTCTGAGNCAGACAGAAATACNTTTNNTNTGAGTTACANCNTTCTTTTTCNACATATNCNNNNNTNGNNNT
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEEEE#A#####E#A###E
`

func TestScannerBasic(t *testing.T) {
	recs, err := Collect(ParseString(fq))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	first := recs[0]
	if first.ID != "NB500956:89:HW2FHBGX2:1:11101:25648:1069" {
		t.Errorf("got id %q", first.ID)
	}
	if first.Description != "1:N:0:ATCACG" {
		t.Errorf("got description %q", first.Description)
	}
	if len(first.Sequence) != len(first.Quality) {
		t.Errorf("sequence/quality length mismatch: %d vs %d", len(first.Sequence), len(first.Quality))
	}
	if first.QualityEncoding != record.Phred33 {
		t.Errorf("got encoding %v, want Phred33", first.QualityEncoding)
	}
}

func TestScannerMissingAt(t *testing.T) {
	_, err := Collect(ParseString("NOTAHEADER\nACGT\n+\nIIII\n"))
	if err == nil {
		t.Fatal("expected an error for a header missing '@'")
	}
}

func TestScannerMissingPlus(t *testing.T) {
	_, err := Collect(ParseString("@r1\nACGT\nNOTAPLUS\nIIII\n"))
	if err == nil {
		t.Fatal("expected an error for a separator missing '+'")
	}
}

func TestScannerTruncated(t *testing.T) {
	_, err := Collect(ParseString("@r1\nACGT\n+\n"))
	if err == nil {
		t.Fatal("expected an error for a truncated record")
	}
}

func TestScannerLengthMismatch(t *testing.T) {
	_, err := Collect(ParseString("@r1\nACGT\n+\nIII\n"))
	if err == nil {
		t.Fatal("expected a QualityError for mismatched sequence/quality length")
	}
}

func TestScannerMultiLine(t *testing.T) {
	const in = "@r1\nACGT\nACGT\n+\nIIII\nIIII\n"
	recs, err := Collect(ParseString(in, OptMultiLine()))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Sequence != "ACGTACGT" || recs[0].Quality != "IIIIIIII" {
		t.Errorf("got %+v", recs[0])
	}
}

func TestScannerForceEncoding(t *testing.T) {
	recs, err := Collect(ParseString(fq, OptForceEncoding(record.Phred64)))
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].QualityEncoding != record.Phred64 {
		t.Errorf("got %v, want Phred64", recs[0].QualityEncoding)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	recs, err := Collect(ParseString(fq))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	w := NewWriter(&buf, WriterOptions{})
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != fq {
		t.Errorf("got %q, want %q", buf.String(), fq)
	}
}

func TestWriterRecodesEncoding(t *testing.T) {
	recs, err := Collect(ParseString("@r1\nACGT\n+\nIIII\n"))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	target := record.Phred64
	w := NewWriter(&buf, WriterOptions{TargetEncoding: &target})
	if err := w.Write(recs[0]); err != nil {
		t.Fatal(err)
	}
	_ = w.Flush()
	if buf.String() == "@r1\nACGT\n+\nIIII\n" {
		t.Errorf("expected quality bytes to change after re-encoding, got unchanged output")
	}
}
