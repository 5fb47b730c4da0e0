package model

import (
	"bytes"
	"testing"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema([6]byte{0, 9, 0, 9, 0, 0}, []FieldDef{
		{Index: 1, Name: "owner", Type: TypeBlock32, Hash: true},
		{Index: 2, Name: "name", Type: TypeString, MaxSize: 16, Hash: true},
		{Index: 3, Name: "count", Type: TypeU48LE, Hash: true},
		{Index: 4, Name: "payload", Type: TypeBytes, MaxSize: 32, Hash: true},
		{Index: 5, Name: "secret", Type: TypeU32BE, Hash: false, Transient: true},
		{Index: 6, Name: "stamp", Type: TypeU16LE, Hash: true, Transient: true},
		{Index: 7, Name: "flags", Type: TypeU8, Hash: true},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	owner := bytes.Repeat([]byte{0xAB}, 32)
	if err := m.SetBytes("owner", owner); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if err := m.SetString("name", "alice"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := m.SetUint64("count", 42); err != nil {
		t.Fatalf("SetUint64: %v", err)
	}
	if err := m.SetBytes("payload", []byte("hello world")); err != nil {
		t.Fatalf("SetBytes payload: %v", err)
	}

	out1, err := m.Export(false, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	loaded := New(s)
	if err := loaded.Load(out1, false, false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	out2, err := loaded.Export(false, false)
	if err != nil {
		t.Fatalf("re-Export: %v", err)
	}
	if !bytes.Equal(out1, out2) {
		t.Fatalf("round trip mismatch:\n%x\n%x", out1, out2)
	}
}

func TestModelTypeMismatchOneBit(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	img, err := m.Export(false, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	img[1] ^= 0x01 // flip one bit of the header
	if err := New(s).Load(img, false, false); err == nil {
		t.Fatalf("expected MalformedImage for header mismatch")
	} else if code, _ := CodeOf(err); code != ErrMalformedImage {
		t.Fatalf("code=%v, want ErrMalformedImage", code)
	}
}

func TestModelTypeWrongLength(t *testing.T) {
	s := testSchema(t)
	if err := New(s).Load([]byte{0, 9, 0, 9, 0}, false, false); err == nil {
		t.Fatalf("expected MalformedImage for short header")
	}
}

func TestStringExactMaxSizeRoundTrips(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	if err := m.SetString("name", "0123456789abcdef"); err != nil { // 16 bytes
		t.Fatalf("SetString at maxSize: %v", err)
	}
	img, err := m.Export(false, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	loaded := New(s)
	if err := loaded.Load(img, false, false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, _ := loaded.GetString("name")
	if got != "0123456789abcdef" {
		t.Fatalf("got %q", got)
	}
}

func TestStringOverMaxSizeFailsOnExport(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	if err := m.SetString("name", "0123456789abcdefg"); err != nil { // 17 bytes
		t.Fatalf("SetString should not validate length eagerly: %v", err)
	}
	if _, err := m.Export(false, false); err == nil {
		t.Fatalf("expected OutOfRange on export for over-length string")
	} else if code, _ := CodeOf(err); code != ErrOutOfRange {
		t.Fatalf("code=%v, want ErrOutOfRange", code)
	}
}

func TestUint48RoundTripBoundary(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	const maxU48 = (uint64(1) << 48) - 1
	if err := m.SetUint64("count", maxU48); err != nil {
		t.Fatalf("SetUint64: %v", err)
	}
	img, err := m.Export(false, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	loaded := New(s)
	if err := loaded.Load(img, false, false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, _ := loaded.GetUint64("count")
	if got != maxU48 {
		t.Fatalf("got %d, want %d", got, maxU48)
	}
}

func TestUint48OverflowFailsOutOfRange(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	const overU48 = uint64(1) << 48
	if err := m.SetUint64("count", overU48); err != nil {
		t.Fatalf("SetUint64 should not validate eagerly: %v", err)
	}
	if _, err := m.Export(false, false); err == nil {
		t.Fatalf("expected OutOfRange")
	} else if code, _ := CodeOf(err); code != ErrOutOfRange {
		t.Fatalf("code=%v, want ErrOutOfRange", code)
	}
}

func TestFixedBlockWrongLengthFails(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	if err := m.SetBytes("owner", make([]byte, 31)); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if _, err := m.Export(false, false); err == nil {
		t.Fatalf("expected OutOfRange for wrong fixed-block length")
	}
}

func TestUnknownFieldIndexIgnoreUnknown(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	_ = m.SetUint64("count", 7)
	img, err := m.Export(false, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	// Append a bogus field record with an unknown index and a BLOCK1 tag.
	bogus := append(append([]byte{}, img...), byte(TypeBlock1), 200, 0xAA)

	if err := New(s).Load(bogus, false, false); err == nil {
		t.Fatalf("expected MalformedImage when ignoreUnknown is false")
	}
	loaded := New(s)
	if err := loaded.Load(bogus, false, true); err != nil {
		t.Fatalf("Load with ignoreUnknown: %v", err)
	}
	got, ok := loaded.GetUint64("count")
	if !ok || got != 7 {
		t.Fatalf("expected count=7 preserved, got %d ok=%v", got, ok)
	}
}

func TestDuplicateFieldIndexRejected(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	_ = m.SetUint64("count", 1)
	img, err := m.Export(false, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	dup := append(append([]byte{}, img...), img[6:]...)
	if err := New(s).Load(dup, false, false); err == nil {
		t.Fatalf("expected MalformedImage for duplicate index")
	}
}

func TestTransientFieldExcludedByDefault(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	_ = m.SetUint64("count", 1)
	_ = m.SetUint64("secret", 99)

	img, err := m.Export(false, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	loaded := New(s)
	if err := loaded.Load(img, false, false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := loaded.GetUint64("secret"); ok {
		t.Fatalf("transient field should not be exported by default")
	}

	withTransient, err := m.Export(true, true)
	if err != nil {
		t.Fatalf("Export with transient: %v", err)
	}
	loaded2 := New(s)
	if err := loaded2.Load(withTransient, true, false); err != nil {
		t.Fatalf("Load preserveTransient: %v", err)
	}
	got, ok := loaded2.GetUint64("secret")
	if !ok || got != 99 {
		t.Fatalf("expected secret=99 preserved, got %d ok=%v", got, ok)
	}
}

func TestTransientFieldDroppedWhenNotPreserved(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	_ = m.SetUint64("secret", 99)
	img, err := m.Export(true, true)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	loaded := New(s)
	if err := loaded.Load(img, false, false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := loaded.GetUint64("secret"); ok {
		t.Fatalf("transient field should be dropped when preserveTransient=false")
	}
}

func TestFieldsAreSortedByIndexOnExport(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	_ = m.SetUint64("count", 3)
	_ = m.SetString("name", "z")
	img, err := m.Export(false, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	// header(6) + name record(2+2+1=5, index 2) + count record(2+6=8, index 3)
	if img[6+1] != 2 {
		t.Fatalf("expected first field index 2 (name), got %d", img[7])
	}
}
