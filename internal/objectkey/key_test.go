package objectkey

import "testing"

func TestEqualRequiresSameTypeTag(t *testing.T) {
	a := New("ns", "pn-counter-ob", "c")
	b := New("ns", "aw-set", "c")

	if a.Equal(b) {
		t.Error("keys differing only in type-tag must not be equal")
	}
}

func TestCompareTotalOrder(t *testing.T) {
	a := New("ns", "aw-set", "alpha")
	b := New("ns", "aw-set", "beta")

	if Compare(a, b) >= 0 {
		t.Errorf("expected alpha before beta, got %d", Compare(a, b))
	}
	if Compare(b, a) <= 0 {
		t.Errorf("expected beta after alpha, got %d", Compare(b, a))
	}
	if Compare(a, a) != 0 {
		t.Errorf("expected equal key to compare 0")
	}
}

func TestSortIsStableTotalOrder(t *testing.T) {
	keys := []Key{
		New("ns", "aw-set", "c"),
		New("ns", "aw-set", "a"),
		New("ns", "aw-set", "b"),
	}
	Sort(keys)

	want := []string{"a", "b", "c"}
	for i, k := range keys {
		if string(k.ID) != want[i] {
			t.Errorf("index %d: got %s, want %s", i, k.ID, want[i])
		}
	}
}
