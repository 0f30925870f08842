package statsacc

import "testing"

func TestBasicLengthStats(t *testing.T) {
	a := New(Options{})
	for _, s := range []string{"ACGT", "ACGTACGT", "AC"} {
		a.Add(s, nil)
	}
	sum, err := a.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if sum.N != 3 {
		t.Errorf("got N=%d, want 3", sum.N)
	}
	if sum.TotalLength != 14 {
		t.Errorf("got total length %d, want 14", sum.TotalLength)
	}
	if sum.MinLength != 2 || sum.MaxLength != 8 {
		t.Errorf("got min=%d max=%d, want 2/8", sum.MinLength, sum.MaxLength)
	}
}

func TestFinalizeOnEmptyRejects(t *testing.T) {
	a := New(Options{})
	if _, err := a.Finalize(); err == nil {
		t.Fatal("expected an error finalizing with zero records")
	}
}

func TestN50L50(t *testing.T) {
	a := New(Options{CalculateN50: true})
	lengths := []int64{100, 90, 80, 70, 60, 50, 40, 30, 20, 10}
	for _, l := range lengths {
		seqStr := make([]byte, l)
		for i := range seqStr {
			seqStr[i] = 'A'
		}
		a.Add(string(seqStr), nil)
	}
	sum, err := a.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if sum.N50 == 0 {
		t.Error("expected a nonzero N50")
	}
	if sum.L50 == 0 || sum.L50 > sum.N {
		t.Errorf("got L50=%d, expected in (0, %d]", sum.L50, sum.N)
	}
}

func TestGCPercent(t *testing.T) {
	a := New(Options{CalculateGC: true})
	a.Add("GGGGCCCC", nil) // 100% GC
	a.Add("AAAATTTT", nil) // 0% GC
	sum, err := a.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if sum.GCPercent < 49 || sum.GCPercent > 51 {
		t.Errorf("got GC%%=%v, want ~50", sum.GCPercent)
	}
}

func TestQualityFractions(t *testing.T) {
	a := New(Options{IncludeQuality: true})
	a.Add("ACGT", []float64{10, 20, 30, 40})
	sum, err := a.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if sum.FractionQ20 != 0.75 {
		t.Errorf("got FractionQ20=%v, want 0.75", sum.FractionQ20)
	}
	if sum.FractionQ30 != 0.5 {
		t.Errorf("got FractionQ30=%v, want 0.5", sum.FractionQ30)
	}
}

func TestReservoirBoundsMemory(t *testing.T) {
	a := New(Options{ReservoirSize: 5})
	for i := 0; i < 1000; i++ {
		a.Add("ACGT", nil)
	}
	if len(a.reservoir) != 5 {
		t.Errorf("got reservoir size %d, want 5", len(a.reservoir))
	}
}
