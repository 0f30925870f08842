package dsv

import (
	"bytes"
	"testing"
)

func TestAutoDetectCommaAndHeader(t *testing.T) {
	const in = "gene,expression\nBRCA1,5.2\nTP53,7.1\n"
	r := ParseString(in)
	recs, err := Collect(r)
	if err != nil {
		t.Fatal(err)
	}
	if r.Detection.Delimiter != ',' {
		t.Errorf("got delimiter %q, want ','", r.Detection.Delimiter)
	}
	if !r.hasHeader {
		t.Error("expected header to be detected")
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if v, ok := recs[0].Get("gene"); !ok || v != "BRCA1" {
		t.Errorf("got gene=%q ok=%v", v, ok)
	}
	if v, ok := recs[1].Get("expression"); !ok || v != "7.1" {
		t.Errorf("got expression=%q ok=%v", v, ok)
	}
}

func TestQuotedFieldsWithEmbeddedDelimiterAndNewline(t *testing.T) {
	const in = "a,b\n\"hello, world\",\"multi\nline\"\n"
	recs, err := Collect(ParseString(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Values[0] != "hello, world" || recs[0].Values[1] != "multi\nline" {
		t.Errorf("got %+v", recs[0].Values)
	}
}

func TestDoubledQuoteEscapesToLiteralQuote(t *testing.T) {
	const in = "a\n\"she said \"\"hi\"\"\"\n"
	recs, err := Collect(ParseString(in, OptHasHeader(true)))
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].Values[0] != `she said "hi"` {
		t.Errorf("got %q", recs[0].Values[0])
	}
}

func TestTSVDelimiterDetection(t *testing.T) {
	const in = "id\tvalue\n1\t2\n3\t4\n"
	r := ParseString(in)
	if _, err := Collect(r); err != nil {
		t.Fatal(err)
	}
	if r.Detection.Delimiter != '\t' {
		t.Errorf("got delimiter %q, want tab", r.Detection.Delimiter)
	}
}

func TestRaggedRowError(t *testing.T) {
	const in = "a,b,c\n1,2\n"
	_, err := Collect(ParseString(in, OptHasHeader(true)))
	if err == nil {
		t.Fatal("expected a DsvParseError for a ragged row")
	}
}

func TestRaggedPadEmpty(t *testing.T) {
	const in = "a,b,c\n1,2\n"
	recs, err := Collect(ParseString(in, OptHasHeader(true), OptRagged(RaggedPadEmpty)))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs[0].Values) != 3 || recs[0].Values[2] != "" {
		t.Errorf("got %+v", recs[0].Values)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	const in = "gene,expression\nBRCA1,5.2\n"
	recs, err := Collect(ParseString(in))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	w := NewWriter(&buf, WriterOptions{})
	if err := w.WriteHeader([]string{"gene", "expression"}); err != nil {
		t.Fatal(err)
	}
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

func TestWriterExcelProtection(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WriterOptions{ExcelProtect: true})
	if err := w.WriteHeader([]string{"007", "=SUM(A1)"}); err != nil {
		t.Fatal(err)
	}
	_ = w.Flush()
	if buf.String() != "\"007\",\"=SUM(A1)\"\n" {
		t.Errorf("got %q", buf.String())
	}
}
