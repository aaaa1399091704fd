package bump

import "testing"

func TestAllocAdvancesOffset(t *testing.T) {
	a := New(make([]byte, 16))

	b1, err := a.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := a.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}

	if a.Used() != 8 {
		t.Fatalf("expected 8 bytes used; got %d", a.Used())
	}
	if &b1[0] == &b2[0] {
		t.Fatal("expected distinct, non-overlapping allocations")
	}
}

func TestAllocOutOfSpace(t *testing.T) {
	a := New(make([]byte, 4))

	if _, err := a.Alloc(5); err == nil {
		t.Fatal("expected an error allocating more bytes than the arena holds")
	}
}

func TestAllocStringIsStable(t *testing.T) {
	a := New(make([]byte, 64))

	s, err := a.AllocString("compatible")
	if err != nil {
		t.Fatal(err)
	}
	if s != "compatible" {
		t.Fatalf("expected %q; got %q", "compatible", s)
	}

	// A further allocation must not disturb the bytes backing s.
	if _, err := a.Alloc(8); err != nil {
		t.Fatal(err)
	}
	if s != "compatible" {
		t.Fatalf("expected s to remain %q after a further allocation; got %q", "compatible", s)
	}
}

func TestAllocCopyDistinctFromSource(t *testing.T) {
	a := New(make([]byte, 16))

	src := []byte{1, 2, 3, 4}
	dst, err := a.AllocCopy(src)
	if err != nil {
		t.Fatal(err)
	}

	src[0] = 0xff
	if dst[0] == 0xff {
		t.Fatal("expected AllocCopy to copy src, not alias it")
	}
}
