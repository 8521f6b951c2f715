package object

import (
	"testing"

	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/space"
	"github.com/tinyvm/corevm/vm/value"
)

// newTestLayout returns a Layout backed by a fresh, growable SemiSpace,
// the same kind of heap new space and program space use.
func newTestLayout(t *testing.T) Layout {
	t.Helper()
	s, err := space.NewSemiSpace("test", arch.Host, space.ChunkSize, true)
	if err != nil {
		t.Fatalf("NewSemiSpace: %v", err)
	}
	return Layout{H: s, W: arch.Host}
}

// makeClass allocates a Class object with the given format and fixed size,
// returning its address.
func makeClass(t *testing.T, l Layout, s *space.SemiSpace, format Format, fixedWords, numFields int64) core.Address {
	t.Helper()
	a := s.Allocate(ClassSize * int64(l.W.PointerSize))
	if a == space.FailureAddress {
		t.Fatal("Allocate failed for class")
	}
	l.SetInstanceFormat(a, format)
	l.SetFixedInstanceSize(a, fixedWords)
	l.SetNumInstanceFields(a, numFields)
	l.SetSuperclass(a, value.FromSmi(0))
	l.SetMethodsTable(a, value.FromSmi(0))
	return a
}

func TestHeaderAgeAndIdentityHash(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)
	class := makeClass(t, l, s, FormatInstance, 0, 2)
	a := s.Allocate(InstanceSizeBytes(l, class))
	l.SetClassPointer(a, class)

	if got := l.Age(a); got != 0 {
		t.Errorf("fresh object Age() = %d, want 0", got)
	}
	l.SetAge(a, 3)
	if got := l.Age(a); got != 3 {
		t.Errorf("Age() after SetAge(3) = %d, want 3", got)
	}

	if got := l.IdentityHash(a); got != 0 {
		t.Errorf("fresh object IdentityHash() = %d, want 0", got)
	}
	l.SetIdentityHash(a, 0xabc)
	if got := l.IdentityHash(a); got != 0xabc {
		t.Errorf("IdentityHash() after SetIdentityHash = %#x, want 0xabc", got)
	}
	// Setting identity hash must not disturb age, and vice versa.
	if got := l.Age(a); got != 3 {
		t.Errorf("Age() after SetIdentityHash = %d, want 3 (unchanged)", got)
	}
}

func TestForwardingPointerDisambiguatesFromClassPointer(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)
	class := makeClass(t, l, s, FormatInstance, 0, 1)
	a := s.Allocate(InstanceSizeBytes(l, class))
	l.SetClassPointer(a, class)

	if _, ok := l.ForwardingPointer(a); ok {
		t.Error("a fresh object with a genuine class pointer should not look forwarded")
	}

	dest := a.Add(1000)
	l.SetForwardingPointer(a, dest)
	got, ok := l.ForwardingPointer(a)
	if !ok {
		t.Fatal("ForwardingPointer() should report true after SetForwardingPointer")
	}
	if got != dest {
		t.Errorf("ForwardingPointer() = %v, want %v", got, dest)
	}
}

func TestClassFields(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)
	class := makeClass(t, l, s, FormatArray, 0, 0)

	if got := l.InstanceFormat(class); got != FormatArray {
		t.Errorf("InstanceFormat() = %v, want Array", got)
	}
	super := value.FromSmi(0)
	l.SetSuperclass(class, super)
	if got := l.Superclass(class); got != super {
		t.Errorf("Superclass() = %v, want %v", got, super)
	}
}

func TestInstanceFields(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)
	class := makeClass(t, l, s, FormatInstance, 0, 3)
	a := s.Allocate(InstanceSizeBytes(l, class))
	l.SetClassPointer(a, class)

	for i := int64(0); i < 3; i++ {
		l.SetInstanceFieldAt(a, i, value.FromSmi(i*10))
	}
	for i := int64(0); i < 3; i++ {
		if got := l.InstanceFieldAt(a, i).Smi(); got != i*10 {
			t.Errorf("InstanceFieldAt(%d) = %d, want %d", i, got, i*10)
		}
	}
	if got := l.Size(a); got != HeaderWords+3 {
		t.Errorf("Size() = %d, want %d", got, HeaderWords+3)
	}
}

func TestArray(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)
	class := makeClass(t, l, s, FormatArray, 0, 0)
	const n = int64(5)
	a := s.Allocate((HeaderWords + 1 + n) * int64(l.W.PointerSize))
	l.SetClassPointer(a, class)
	l.SetArrayLength(a, n)
	for i := int64(0); i < n; i++ {
		l.SetArrayAt(a, i, value.FromSmi(i*i))
	}

	if got := l.ArrayLength(a); got != n {
		t.Errorf("ArrayLength() = %d, want %d", got, n)
	}
	for i := int64(0); i < n; i++ {
		if got := l.ArrayAt(a, i).Smi(); got != i*i {
			t.Errorf("ArrayAt(%d) = %d, want %d", i, got, i*i)
		}
	}
	if got := l.Size(a); got != HeaderWords+1+n {
		t.Errorf("Size() = %d, want %d", got, HeaderWords+1+n)
	}
}

func TestByteArray(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)
	class := makeClass(t, l, s, FormatByteArray, 0, 0)
	data := []byte("hello")
	a := s.Allocate((HeaderWords+1)*int64(l.W.PointerSize) + int64(len(data)))
	l.SetClassPointer(a, class)
	l.SetByteArrayLength(a, int64(len(data)))
	for i, b := range data {
		l.SetByteArrayAt(a, int64(i), b)
	}
	for i := range data {
		if got := l.ByteArrayAt(a, int64(i)); got != data[i] {
			t.Errorf("ByteArrayAt(%d) = %d, want %d", i, got, data[i])
		}
	}
	if got := string(l.ByteArrayBytes(a)); got != "hello" {
		t.Errorf("ByteArrayBytes() = %q, want %q", got, "hello")
	}
}

func TestOneByteString(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)
	class := makeClass(t, l, s, FormatOneByteString, 0, 0)
	str := "corevm"
	a := s.Allocate((HeaderWords+1)*int64(l.W.PointerSize) + int64(len(str)))
	l.SetClassPointer(a, class)
	l.SetStringLength(a, int64(len(str)))
	for i, r := range []byte(str) {
		l.SetStringUnitAt(a, FormatOneByteString, int64(i), uint16(r))
	}
	if got := l.AsGoString(a, FormatOneByteString); got != str {
		t.Errorf("AsGoString() = %q, want %q", got, str)
	}
	if got := l.Size(a); got != l.StringSize(a, FormatOneByteString) {
		t.Errorf("Size() = %d, want StringSize() = %d", got, l.StringSize(a, FormatOneByteString))
	}
}

func TestTwoByteString(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)
	class := makeClass(t, l, s, FormatTwoByteString, 0, 0)
	units := []uint16{0x4e2d, 0x6587, 'x'} // includes non-Latin1 code units
	a := s.Allocate((HeaderWords+1)*int64(l.W.PointerSize) + int64(len(units))*2)
	l.SetClassPointer(a, class)
	l.SetStringLength(a, int64(len(units)))
	for i, u := range units {
		l.SetStringUnitAt(a, FormatTwoByteString, int64(i), u)
	}
	for i, u := range units {
		if got := l.StringUnitAt(a, FormatTwoByteString, int64(i)); got != u {
			t.Errorf("StringUnitAt(%d) = %#x, want %#x", i, got, u)
		}
	}
}

func TestDouble(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)
	a := s.Allocate((HeaderWords + 1) * int64(l.W.PointerSize))
	l.SetDoubleValue(a, 3.25)
	if got := l.DoubleValue(a); got != 3.25 {
		t.Errorf("DoubleValue() = %v, want 3.25", got)
	}
	l.SetDoubleValue(a, -0.5)
	if got := l.DoubleValue(a); got != -0.5 {
		t.Errorf("DoubleValue() = %v, want -0.5", got)
	}
}

func TestHeapInteger(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)
	digits := []uint32{0xffffffff, 0x1}
	a := s.Allocate((HeaderWords+2)*int64(l.W.PointerSize) + int64(len(digits))*4)
	l.SetHeapIntNegative(a, true)
	l.SetHeapIntDigitCount(a, int64(len(digits)))
	for i, d := range digits {
		l.SetHeapIntDigit(a, int64(i), d)
	}
	if !l.HeapIntNegative(a) {
		t.Error("HeapIntNegative() = false, want true")
	}
	if got := l.HeapIntDigitCount(a); got != int64(len(digits)) {
		t.Errorf("HeapIntDigitCount() = %d, want %d", got, len(digits))
	}
	for i, d := range digits {
		if got := l.HeapIntDigit(a, int64(i)); got != d {
			t.Errorf("HeapIntDigit(%d) = %#x, want %#x", i, got, d)
		}
	}
	if got := l.HeapIntSize(a); got != HeaderWords+2+int64(len(digits))*4/l.ws() {
		t.Errorf("HeapIntSize() = %d, want %d", got, HeaderWords+2+int64(len(digits))*4/l.ws())
	}
}

func TestMiscFormats(t *testing.T) {
	l := newTestLayout(t)
	s := l.H.(*space.SemiSpace)

	init := s.Allocate((HeaderWords + 1) * int64(l.W.PointerSize))
	l.SetInitializerFunction(init, value.FromHeapObject(42))
	if got := l.InitializerFunction(init); got.HeapAddress() != 42 {
		t.Errorf("InitializerFunction() = %v, want 42", got)
	}

	dte := s.Allocate((HeaderWords + 2) * int64(l.W.PointerSize))
	l.SetDispatchSelector(dte, value.FromSmi(7))
	l.SetDispatchTarget(dte, value.FromHeapObject(88))
	if got := l.DispatchSelector(dte).Smi(); got != 7 {
		t.Errorf("DispatchSelector() = %d, want 7", got)
	}
	if got := l.DispatchTarget(dte).HeapAddress(); got != 88 {
		t.Errorf("DispatchTarget() = %v, want 88", got)
	}

	co := s.Allocate((HeaderWords + 2) * int64(l.W.PointerSize))
	l.SetCoroutineStack(co, value.FromHeapObject(16))
	l.SetCoroutineCaller(co, value.FromSmi(0))
	if got := l.CoroutineStack(co).HeapAddress(); got != 16 {
		t.Errorf("CoroutineStack() = %v, want 16", got)
	}

	port := s.Allocate((HeaderWords + 2) * int64(l.W.PointerSize))
	l.SetPortOwner(port, 5)
	l.SetPortQueue(port, value.FromSmi(0))
	if got := l.PortOwner(port); got != 5 {
		t.Errorf("PortOwner() = %d, want 5", got)
	}
}

func TestPayloadStart(t *testing.T) {
	l := newTestLayout(t)
	a := core.Address(1000)
	if got := l.PayloadStart(a); got != a.Add(HeaderWords*int64(l.W.PointerSize)) {
		t.Errorf("PayloadStart() = %v, want %v", got, a.Add(HeaderWords*int64(l.W.PointerSize)))
	}
}

// InstanceSizeBytes is a small test-only helper translating a class's word
// size into the byte count Allocate expects.
func InstanceSizeBytes(l Layout, class core.Address) int64 {
	return l.InstanceSize(class) * int64(l.W.PointerSize)
}
