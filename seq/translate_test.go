package seq

import "testing"

func TestTranslateStandardCode(t *testing.T) {
	protein, err := Translate("ATGGCATAA", TranslateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if protein != "MA*" {
		t.Errorf("got %q, want MA*", protein)
	}
}

func TestTranslateVertebrateMitoRecodesAGA(t *testing.T) {
	protein, err := Translate("AGA", TranslateOptions{GeneticCode: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if protein != "*" {
		t.Errorf("vertebrate mitochondrial AGA should be a stop, got %q", protein)
	}
}

func TestTranslateYeastMitoRecodesCTG(t *testing.T) {
	protein, err := Translate("CTG", TranslateOptions{GeneticCode: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if protein != "T" {
		t.Errorf("yeast mitochondrial CTG should be Thr, got %q", protein)
	}
}

func TestTranslateUnsupportedCodeErrors(t *testing.T) {
	if _, err := Translate("ATGGCATAA", TranslateOptions{GeneticCode: 7}); err == nil {
		t.Error("expected an error for an unimplemented genetic code, got nil")
	}
}

func TestTranslateZeroCodeDefaultsToStandard(t *testing.T) {
	protein, err := Translate("ATGGCATAA", TranslateOptions{GeneticCode: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if protein != "MA*" {
		t.Errorf("got %q, want MA*", protein)
	}
}

func TestFrameSuffix(t *testing.T) {
	cases := map[Frame]string{
		Frame1:  "_frame_+1",
		Frame2:  "_frame_+2",
		FrameM1: "_frame_-1",
		FrameM3: "_frame_-3",
	}
	for f, want := range cases {
		if got := f.Suffix(); got != want {
			t.Errorf("frame %d: got %q, want %q", f, got, want)
		}
	}
}

func TestCodeTableReportsSupportedIDs(t *testing.T) {
	if _, ok := CodeTable(1); !ok {
		t.Error("table 1 should be supported")
	}
	if _, ok := CodeTable(999); ok {
		t.Error("table 999 should not be supported")
	}
}
