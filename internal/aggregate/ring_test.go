package aggregate

import "testing"

func TestRingBasic(t *testing.T) {
	r := newRing[int](3)

	if r.len() != 0 {
		t.Fatalf("expected len 0, got %d", r.len())
	}
	if r.copyOut() != nil {
		t.Fatal("expected nil copyOut on empty ring")
	}

	r.append(1)
	r.append(2)
	r.append(3)

	out := r.copyOut()
	expected := []int{1, 2, 3}
	if len(out) != len(expected) {
		t.Fatalf("expected %d items, got %d", len(expected), len(out))
	}
	for i, v := range out {
		if v != expected[i] {
			t.Errorf("at index %d: expected %d, got %d", i, expected[i], v)
		}
	}
}

func TestRingWrapping(t *testing.T) {
	r := newRing[int](3)

	for i := 1; i <= 5; i++ {
		r.append(i)
	}

	out := r.copyOut()
	expected := []int{3, 4, 5}
	if len(out) != 3 {
		t.Fatalf("expected 3 items after wrap, got %d", len(out))
	}
	for i, v := range out {
		if v != expected[i] {
			t.Errorf("at index %d: expected %d, got %d", i, expected[i], v)
		}
	}
}

func TestRingCopyOutIsACopy(t *testing.T) {
	r := newRing[int](3)
	r.append(1)

	out := r.copyOut()
	out[0] = 99

	if r.copyOut()[0] != 1 {
		t.Fatal("mutating a copied-out slice must not affect the ring")
	}
}

func TestRingZeroCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero capacity")
		}
	}()
	newRing[int](0)
}
