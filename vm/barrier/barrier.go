// Package barrier implements corevm's write barrier and remembered set
// (spec.md §4.2). Every pointer store from an old-space object into a
// new-space object must record the storing card, so the scavenger can
// find old→new pointers without rescanning the whole of old space.
package barrier

import (
	"github.com/tinyvm/corevm/internal/core"
)

// CardBits is the power-of-two size (in bits) of a remembered-set card.
const CardBits = 8
const CardSize = 1 << CardBits

// CardOf returns the card-aligned address containing a.
func CardOf(a core.Address) core.Address {
	return core.Address(uint64(a) &^ (CardSize - 1))
}

// RememberedSet is a duplicate-tolerant collection of card addresses
// (spec.md §4.2). A plain set is used rather than a multiset: recording
// the same card twice is a correctness no-op, and the scavenger only
// cares about membership, never about how many times a card was dirtied.
type RememberedSet struct {
	cards map[core.Address]struct{}
}

func New() *RememberedSet {
	return &RememberedSet{cards: make(map[core.Address]struct{})}
}

// Add records the card containing addr.
func (r *RememberedSet) Add(addr core.Address) {
	r.cards[CardOf(addr)] = struct{}{}
}

// Cards returns every currently-recorded card address. Order is
// unspecified.
func (r *RememberedSet) Cards() []core.Address {
	out := make([]core.Address, 0, len(r.cards))
	for c := range r.cards {
		out = append(out, c)
	}
	return out
}

// Remove drops a card, used at the end of scavenge once the card has been
// rescanned and found to no longer reference new space (spec.md §4.2:
// "cards whose contents no longer reference new space are dropped").
func (r *RememberedSet) Remove(card core.Address) {
	delete(r.cards, card)
}

// Len reports how many distinct cards are currently recorded.
func (r *RememberedSet) Len() int { return len(r.cards) }

// Heap is the minimal surface the write barrier needs to classify a store.
type Heap interface {
	InOldSpace(a core.Address) bool
	InNewSpace(a core.Address) bool
}

// HeapValue is satisfied by vm/value.Value without importing it here,
// keeping this package free of a dependency on the tagged-value encoding
// beyond "is this a heap pointer, and if so, where".
type HeapValue interface {
	IsHeapObject() bool
	HeapAddress() core.Address
}

// Record is the write barrier itself: the external interface
// (spec.md §6) `WriteBarrier(container, field, value)` the interpreter
// calls after every pointer store. field is the address of the word that
// was written (the value has already been stored by the caller). It
// records the card containing field in rs whenever field lies in old space
// and the newly stored value points into new space.
func Record(rs *RememberedSet, h Heap, field core.Address, stored HeapValue) {
	if !h.InOldSpace(field) {
		return
	}
	if !stored.IsHeapObject() {
		return
	}
	if !h.InNewSpace(stored.HeapAddress()) {
		return
	}
	rs.Add(field)
}
