package core

import "testing"

func TestKeySetIdempotent(t *testing.T) {
	in := NewInputState()

	in.SetKey(KeyA, true)
	in.SetKey(KeyA, true)
	in.SetKey(KeyA, true)
	if in.Keys.Len() != 1 {
		t.Errorf("Len() = %d after repeated presses, expected 1", in.Keys.Len())
	}

	in.SetKey(KeyA, false)
	if in.Keys.Has(KeyA) {
		t.Error("key should be released after a single up")
	}

	// Releasing an unheld key is a no-op.
	in.SetKey(KeyB, false)
	if in.Keys.Len() != 0 {
		t.Errorf("Len() = %d, expected 0", in.Keys.Len())
	}
}

func TestKeySetSorted(t *testing.T) {
	s := make(KeySet)
	s.Add(KeyStart)
	s.Add(KeyLeft)
	s.Add(KeyA)

	got := s.Sorted()
	want := []string{KeyLeft, KeyStart, KeyA}
	if len(got) != len(want) {
		t.Fatalf("Sorted() = %v, expected %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sorted()[%d] = %q, expected %q", i, got[i], want[i])
		}
	}
}

func TestColorHex(t *testing.T) {
	if ColorDefault.Hex() != "" {
		t.Errorf("default color Hex() = %q, expected empty", ColorDefault.Hex())
	}
	if got := RGB(0x4a, 0xde, 0x80).Hex(); got != "#4ade80" {
		t.Errorf("Hex() = %q, expected #4ade80", got)
	}
	if RGB(0, 0, 0).IsDefault() {
		t.Error("black must not be the default color")
	}
}
