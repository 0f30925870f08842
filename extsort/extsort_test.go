package extsort

import "testing"

func byInt(a, b int) bool { return a < b }

func TestSorterInMemoryNoSpill(t *testing.T) {
	s := New(byInt, Options{InMemoryThreshold: 100})
	for _, v := range []int{5, 3, 4, 1, 2} {
		if err := s.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	out, err := s.Finish()
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 3, 4, 5}
	for i, v := range want {
		if out[i] != v {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestSorterSpillsAndMerges(t *testing.T) {
	s := New(byInt, Options{InMemoryThreshold: 4})
	input := []int{9, 7, 5, 3, 1, 8, 6, 4, 2, 0}
	for _, v := range input {
		if err := s.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	out, err := s.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(input) {
		t.Fatalf("got %d records, want %d", len(out), len(input))
	}
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("output not sorted: %v", out)
		}
	}
	if len(s.runs) != 0 {
		t.Error("Finish should have cleaned up run files")
	}
}

func TestSorterDescendingProjection(t *testing.T) {
	s := New(func(a, b int) bool { return a > b }, Options{InMemoryThreshold: 2})
	for _, v := range []int{1, 2, 3, 4, 5} {
		_ = s.Add(v)
	}
	out, err := s.Finish()
	if err != nil {
		t.Fatal(err)
	}
	want := []int{5, 4, 3, 2, 1}
	for i, v := range want {
		if out[i] != v {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestCleanupRemovesRunsWithoutFinish(t *testing.T) {
	s := New(byInt, Options{InMemoryThreshold: 2})
	for _, v := range []int{3, 1, 2, 9, 8} {
		_ = s.Add(v)
	}
	s.Cleanup()
	if len(s.runs) != 0 {
		t.Error("Cleanup should clear tracked run files")
	}
}
