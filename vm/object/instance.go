package object

import (
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/value"
)

// Instance is the general-purpose fixed-size user object: header followed
// by NumInstanceFields (read from the class) tagged Value fields.
func instanceFieldAddr(l Layout, a core.Address, i int64) core.Address {
	return l.PayloadStart(a).Add(i * l.ws())
}

// InstanceFieldAt returns field i of the instance at a.
func (l Layout) InstanceFieldAt(a core.Address, i int64) value.Value {
	return value.FromWord(l.H.ReadWord(instanceFieldAddr(l, a, i)))
}

func (l Layout) SetInstanceFieldAt(a core.Address, i int64, v value.Value) {
	l.H.WriteWord(instanceFieldAddr(l, a, i), v.Word())
}
