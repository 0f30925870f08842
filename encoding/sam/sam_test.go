package sam

import (
	"bytes"
	"testing"

	"github.com/nrminor/genotype/record"
)

const samIn = "@HD\tVN:1.6\tSO:coordinate\n" +
	"@SQ\tSN:chr1\tLN:1000\n" +
	"r1\t0\tchr1\t1\t60\t4M\t*\t0\t0\tACGT\tIIII\tNM:i:0\n"

func TestReaderHeaderAndAlignment(t *testing.T) {
	r, err := ParseString(samIn)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Header()) != 2 {
		t.Fatalf("got %d header lines, want 2", len(r.Header()))
	}
	if r.Header()[0].Kind != record.SamHeaderHD {
		t.Errorf("got kind %v", r.Header()[0].Kind)
	}
	if v, ok := r.Header()[1].Get("SN"); !ok || v != "chr1" {
		t.Errorf("got SN=%q ok=%v", v, ok)
	}

	recs, err := Collect(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d alignments, want 1", len(recs))
	}
	a := recs[0]
	if a.QName != "r1" || a.Pos != 1 || a.MapQ != 60 {
		t.Errorf("got %+v", a)
	}
	if len(a.Cigar.Elems) != 1 || a.Cigar.Elems[0].Op != record.CigarMatch || a.Cigar.Elems[0].Length != 4 {
		t.Errorf("got cigar %+v", a.Cigar)
	}
	if len(a.Tags) != 1 || a.Tags[0].Name() != "NM" || a.Tags[0].Value.(int64) != 0 {
		t.Errorf("got tags %+v", a.Tags)
	}
}

func TestParseCigarUnmapped(t *testing.T) {
	c, err := ParseCigar("*")
	if err != nil || !c.Unmapped {
		t.Fatalf("got %+v, %v", c, err)
	}
}

func TestParseCigarInvalid(t *testing.T) {
	if _, err := ParseCigar("4Q"); err == nil {
		t.Fatal("expected an error for an invalid CIGAR op")
	}
}

func TestReaderRejectsShortLine(t *testing.T) {
	r, err := ParseString("@HD\tVN:1.6\nr1\t0\tchr1\t1\t60\n")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Collect(r); err == nil {
		t.Fatal("expected an error for an alignment with fewer than 11 fields")
	}
}

func TestWriterRoundTrip(t *testing.T) {
	r, err := ParseString(samIn)
	if err != nil {
		t.Fatal(err)
	}
	header := r.Header()
	recs, err := Collect(r)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	w := NewWriter(&buf, WriterOptions{Strict: true})
	if err := w.WriteHeader(header); err != nil {
		t.Fatal(err)
	}
	for _, a := range recs {
		if err := w.Write(a); err != nil {
			t.Fatal(err)
		}
	}
	_ = w.Flush()
	if buf.String() != samIn {
		t.Errorf("got %q, want %q", buf.String(), samIn)
	}
}
