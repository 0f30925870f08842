package fasta

import (
	"bytes"
	"testing"

	"github.com/nrminor/genotype/record"
)

func TestReaderBasic(t *testing.T) {
	const in = ">s1 first sequence\nAACC\nGGTT\n>s2\nACGT\n"
	recs, err := Collect(ParseString(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	want := []*record.Fasta{
		{ID: "s1", Description: "first sequence", Sequence: "AACCGGTT"},
		{ID: "s2", Sequence: "ACGT"},
	}
	for i, r := range recs {
		if *r != *want[i] {
			t.Errorf("record %d: got %+v, want %+v", i, *r, *want[i])
		}
	}
}

func TestReaderRejectsMissingHeader(t *testing.T) {
	_, err := Collect(ParseString("ACGT\n"))
	if err == nil {
		t.Fatal("expected an error for input with no '>' header")
	}
}

func TestReaderEmptySequenceRejectedByDefault(t *testing.T) {
	_, err := Collect(ParseString(">s1\n>s2\nACGT\n"))
	if err == nil {
		t.Fatal("expected an error for an empty sequence")
	}
}

func TestReaderAllowEmpty(t *testing.T) {
	recs, err := Collect(ParseString(">s1\n>s2\nACGT\n", OptAllowEmpty()))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Sequence != "" {
		t.Fatalf("got %+v", recs)
	}
}

func TestReaderStrictRejectsNonIUPAC(t *testing.T) {
	_, err := Collect(ParseString(">s1\nACGTZ\n", OptStrict()))
	if err == nil {
		t.Fatal("expected a SequenceError for a non-IUPAC byte")
	}
}

func TestWriterRoundTrip(t *testing.T) {
	const in = ">s1\nAACCGGTT\n"
	recs, err := Collect(ParseString(in))
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
	if buf.String() != in {
		t.Errorf("got %q, want %q", buf.String(), in)
	}
}

func TestWriterWraps(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WriterOptions{Width: 4})
	if err := w.Write(&record.Fasta{ID: "s1", Sequence: "AACCGGTT"}); err != nil {
		t.Fatal(err)
	}
	_ = w.Flush()
	if want := ">s1\nAACC\nGGTT\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
