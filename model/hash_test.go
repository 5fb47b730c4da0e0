package model

import "testing"

type fakeHasher struct{}

func (fakeHasher) Hash(data []byte) [32]byte {
	var out [32]byte
	var acc byte
	for i, b := range data {
		acc ^= b + byte(i)
	}
	out[0] = acc
	return out
}

func TestContentHashStableUnderReexport(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	_ = m.SetUint64("count", 7)
	_ = m.SetString("name", "bob")

	h1, err := m.ContentHash(fakeHasher{}, nil)
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}

	img, err := m.Export(false, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	loaded := New(s)
	if err := loaded.Load(img, false, false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	h2, err := loaded.ContentHash(fakeHasher{}, nil)
	if err != nil {
		t.Fatalf("ContentHash reloaded: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("content hash changed across re-serialization")
	}
}

func TestContentHashExcludesNonHashableAndTransient(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	_ = m.SetUint64("count", 7)
	_ = m.SetUint64("secret", 123) // transient, non-hashable

	withSecret, err := m.ContentHash(fakeHasher{}, nil)
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}

	m2 := New(s)
	_ = m2.SetUint64("count", 7)
	withoutSecret, err := m2.ContentHash(fakeHasher{}, nil)
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	if withSecret != withoutSecret {
		t.Fatalf("transient/non-hashable field leaked into content hash")
	}
}

func TestContentHashExclusionList(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	_ = m.SetUint64("count", 7)
	_ = m.SetString("name", "carol")

	withName, err := m.ContentHash(fakeHasher{}, nil)
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	withoutName, err := m.ContentHash(fakeHasher{}, []string{"name"})
	if err != nil {
		t.Fatalf("ContentHash excluding name: %v", err)
	}
	if withName == withoutName {
		t.Fatalf("expected exclusion of 'name' to change the hash")
	}

	m2 := New(s)
	_ = m2.SetUint64("count", 7)
	unsetName, err := m2.ContentHash(fakeHasher{}, nil)
	if err != nil {
		t.Fatalf("ContentHash unset name: %v", err)
	}
	if withoutName != unsetName {
		t.Fatalf("excluding a field should be equivalent to leaving it unset")
	}
}

func TestTransientHashHasNoHeader(t *testing.T) {
	s := testSchema(t)
	m := New(s)
	_ = m.SetUint64("secret", 55) // transient but Hash:false, must be excluded
	_ = m.SetUint64("stamp", 7)   // transient and hashable
	th, err := m.TransientHash(fakeHasher{})
	if err != nil {
		t.Fatalf("TransientHash: %v", err)
	}

	rec, err := packField(FieldDef{Index: 6, Name: "stamp", Type: TypeU16LE}, UintValue(7))
	if err != nil {
		t.Fatalf("packField: %v", err)
	}
	want := fakeHasher{}.Hash(rec)
	if th != want {
		t.Fatalf("transient hash should equal hash of only the hashable transient field record, no header")
	}
}
