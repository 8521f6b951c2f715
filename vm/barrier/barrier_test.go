package barrier

import (
	"testing"

	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/value"
)

func TestCardOf(t *testing.T) {
	cases := []struct {
		a    core.Address
		want core.Address
	}{
		{0, 0},
		{1, 0},
		{CardSize - 1, 0},
		{CardSize, CardSize},
		{CardSize + 5, CardSize},
		{2 * CardSize, 2 * CardSize},
	}
	for _, c := range cases {
		if got := CardOf(c.a); got != c.want {
			t.Errorf("CardOf(%v) = %v, want %v", c.a, got, c.want)
		}
	}
}

func TestRememberedSetAddCardsLen(t *testing.T) {
	rs := New()
	rs.Add(10)
	rs.Add(20) // same card as 10
	rs.Add(CardSize + 3)
	if got := rs.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	cards := rs.Cards()
	if len(cards) != 2 {
		t.Errorf("Cards() returned %d entries, want 2", len(cards))
	}
}

func TestRememberedSetRemove(t *testing.T) {
	rs := New()
	rs.Add(5)
	rs.Remove(CardOf(5))
	if got := rs.Len(); got != 0 {
		t.Errorf("Len() after Remove() = %d, want 0", got)
	}
	// Removing an absent card is a no-op, not an error.
	rs.Remove(999)
}

type fakeHeap struct {
	oldLo, oldHi core.Address
	newLo, newHi core.Address
}

func (h fakeHeap) InOldSpace(a core.Address) bool { return a >= h.oldLo && a < h.oldHi }
func (h fakeHeap) InNewSpace(a core.Address) bool { return a >= h.newLo && a < h.newHi }

func TestRecordOnlyWhenOldToNew(t *testing.T) {
	h := fakeHeap{oldLo: 0, oldHi: 1000, newLo: 2000, newHi: 3000}

	cases := []struct {
		name    string
		field   core.Address
		stored  value.Value
		recorded bool
	}{
		{"old field, new pointer", 100, value.FromHeapObject(2500), true},
		{"old field, old pointer", 100, value.FromHeapObject(500), false},
		{"new field, new pointer", 2100, value.FromHeapObject(2500), false},
		{"old field, smi", 100, value.FromSmi(42), false},
	}
	for _, c := range cases {
		rs := New()
		Record(rs, h, c.field, c.stored)
		if got := rs.Len() > 0; got != c.recorded {
			t.Errorf("%s: recorded = %v, want %v", c.name, got, c.recorded)
		}
	}
}
