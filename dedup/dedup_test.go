package dedup

import "testing"

func TestExactSeenBefore(t *testing.T) {
	e := NewExact()
	keys := [][]byte{[]byte("ACG"), []byte("CGA"), []byte("ACG"), []byte("TTT")}
	want := []bool{false, false, true, false}
	for i, k := range keys {
		if got := e.SeenBefore(k); got != want[i] {
			t.Errorf("key %d: got seenBefore=%v, want %v", i, got, want[i])
		}
	}
	if e.Len() != 3 {
		t.Errorf("got %d distinct fingerprints, want 3", e.Len())
	}
}

func TestFingerprintKeyModes(t *testing.T) {
	if string(FingerprintKey(KeySequence, "r1", "ACGT", true)) != "ACGT" {
		t.Error("KeySequence should use the sequence only")
	}
	if string(FingerprintKey(KeyID, "r1", "ACGT", true)) != "r1" {
		t.Error("KeyID should use the id only")
	}
	if string(FingerprintKey(KeyBoth, "r1", "ACGT", true)) != "r1\x00ACGT" {
		t.Error("KeyBoth should combine id and sequence")
	}
}

func TestFingerprintKeyCaseInsensitive(t *testing.T) {
	a := FingerprintKey(KeySequence, "", "ACGT", false)
	b := FingerprintKey(KeySequence, "", "acgt", false)
	if string(a) != string(b) {
		t.Errorf("case-insensitive keys should match: %q vs %q", a, b)
	}
}

func TestScalableBloomMembership(t *testing.T) {
	b := NewScalableBloom(100, 1e-3)
	if b.SeenBefore([]byte("A")) {
		t.Error("first insertion should not be seen before")
	}
	if !b.SeenBefore([]byte("A")) {
		t.Error("repeat insertion should be reported seen before")
	}
}

func TestScalableBloomGrowsLayers(t *testing.T) {
	b := NewScalableBloom(4, 1e-2)
	for i := 0; i < 200; i++ {
		b.SeenBefore([]byte{byte(i), byte(i >> 8)})
	}
	if len(b.layers) < 2 {
		t.Errorf("expected the filter to have scaled to multiple layers, got %d", len(b.layers))
	}
}
