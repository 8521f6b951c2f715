package value

import (
	"testing"

	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
)

func TestSmiRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 42, -42, arch.Amd64.MaxSmi(), arch.Amd64.MinSmi()}
	for _, n := range cases {
		v := FromSmi(n)
		if !v.IsSmi() {
			t.Errorf("FromSmi(%d).IsSmi() = false, want true", n)
		}
		if v.IsHeapObject() {
			t.Errorf("FromSmi(%d).IsHeapObject() = true, want false", n)
		}
		if got := v.Smi(); got != n {
			t.Errorf("FromSmi(%d).Smi() = %d, want %d", n, got, n)
		}
	}
}

func TestHeapObjectRoundTrip(t *testing.T) {
	addrs := []core.Address{0, 8, 1 << 20, 0xdeadbee0}
	for _, a := range addrs {
		v := FromHeapObject(a)
		if !v.IsHeapObject() {
			t.Errorf("FromHeapObject(%v).IsHeapObject() = false, want true", a)
		}
		if v.IsSmi() {
			t.Errorf("FromHeapObject(%v).IsSmi() = true, want false", a)
		}
		if got := v.HeapAddress(); got != a {
			t.Errorf("FromHeapObject(%v).HeapAddress() = %v, want %v", a, got, a)
		}
	}
}

func TestFromWordPreservesTag(t *testing.T) {
	smi := FromSmi(7)
	if got := FromWord(smi.Word()); got != smi {
		t.Errorf("FromWord(smi.Word()) = %v, want %v", got, smi)
	}
	obj := FromHeapObject(1024)
	if got := FromWord(obj.Word()); got != obj {
		t.Errorf("FromWord(obj.Word()) = %v, want %v", got, obj)
	}
}

func TestSmiPanicsOnHeapObject(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Smi() on a heap-object Value should panic")
		}
	}()
	FromHeapObject(8).Smi()
}

func TestHeapAddressPanicsOnSmi(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("HeapAddress() on a smi Value should panic")
		}
	}()
	FromSmi(1).HeapAddress()
}

func TestFitsSmi(t *testing.T) {
	w := arch.Amd64
	if !FitsSmi(0, w) || !FitsSmi(w.MaxSmi(), w) || !FitsSmi(w.MinSmi(), w) {
		t.Error("FitsSmi should accept the full Smi range")
	}
	if FitsSmi(w.MaxSmi()+1, w) {
		t.Error("FitsSmi should reject MaxSmi+1")
	}
	if FitsSmi(w.MinSmi()-1, w) {
		t.Error("FitsSmi should reject MinSmi-1")
	}
}

// A genuine, word-aligned class pointer must never be mistaken for a
// forwarding pointer: its tag bit is always clear since every object
// address is word-aligned (and therefore even).
func TestClassPointerNeverLooksLikeHeapObject(t *testing.T) {
	addrs := []core.Address{0, 8, 16, 1 << 20, 1<<20 + 4096}
	for _, a := range addrs {
		raw := Value(uint64(a))
		if raw.IsHeapObject() {
			t.Errorf("raw class pointer %v has tag bit set; would be confused with a forwarding pointer", a)
		}
	}
}
