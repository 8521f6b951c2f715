package arch

import "testing"

func TestBits(t *testing.T) {
	cases := []struct {
		w    Word
		bits int
	}{
		{Amd64, 64},
		{Arm32, 32},
	}
	for _, c := range cases {
		if got := c.w.Bits(); got != c.bits {
			t.Errorf("Bits() = %d, want %d", got, c.bits)
		}
	}
}

func TestSmiRange(t *testing.T) {
	cases := []struct {
		w    Word
		bits int
	}{
		{Amd64, 62},
		{Arm32, 30},
	}
	for _, c := range cases {
		if got := c.w.SmiBits(); got != c.bits {
			t.Errorf("SmiBits() = %d, want %d", got, c.bits)
		}
		max := c.w.MaxSmi()
		min := c.w.MinSmi()
		if max <= 0 || min >= 0 {
			t.Errorf("MaxSmi/MinSmi = %d/%d, want positive/negative", max, min)
		}
		if max != -(min + 1) {
			t.Errorf("MaxSmi %d should be -(MinSmi+1) = %d", max, -(min + 1))
		}
	}
}

func TestHostIsAmd64(t *testing.T) {
	if Host != Amd64 {
		t.Errorf("Host = %+v, want Amd64", Host)
	}
}
