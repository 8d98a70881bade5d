package bitset

import "testing"

func TestSetAndTest(t *testing.T) {
	s := New(130)
	s.Set(0)
	s.Set(64)
	s.Set(129)

	tests := []struct {
		bit  int
		want bool
	}{
		{0, true}, {1, false}, {64, true}, {65, false}, {129, true}, {128, false},
	}
	for _, tt := range tests {
		if got := s.Test(tt.bit); got != tt.want {
			t.Errorf("Test(%d) = %v, want %v", tt.bit, got, tt.want)
		}
	}
	if got := s.Popcount(); got != 3 {
		t.Errorf("Popcount() = %d, want 3", got)
	}
}

func TestEqualAndKey(t *testing.T) {
	a := New(10)
	a.Set(3)
	a.Set(7)

	b := New(10)
	b.Set(7)
	b.Set(3)

	if !a.Equal(b) {
		t.Fatalf("expected a and b to be equal")
	}
	if a.Key() != b.Key() {
		t.Fatalf("expected identical keys for equal sets")
	}

	b.Set(1)
	if a.Equal(b) {
		t.Fatalf("expected a and b to differ after mutating b")
	}
}

func TestJaccardSimilarity(t *testing.T) {
	a := New(8)
	a.Set(0)
	a.Set(1)
	a.Set(2)

	b := New(8)
	b.Set(1)
	b.Set(2)
	b.Set(3)

	got := a.JaccardSimilarity(b)
	want := 2.0 / 4.0
	if got != want {
		t.Errorf("JaccardSimilarity() = %f, want %f", got, want)
	}
}

func TestHexString(t *testing.T) {
	s := New(8)
	s.Set(0)
	s.Set(3)
	if got, want := s.HexString(), "0x9"; got != want {
		t.Errorf("HexString() = %q, want %q", got, want)
	}

	empty := New(8)
	if got, want := empty.HexString(), "0x0"; got != want {
		t.Errorf("HexString() = %q, want %q", got, want)
	}
}
