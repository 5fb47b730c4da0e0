package cert

import "odin.dev/model/model"

// Hasher is the collision-resistant hash primitive injected into this
// package; satisfied structurally by odin.dev/model/xhash.Blake2b256.
type Hasher interface {
	Hash(data []byte) [32]byte
}

// hashItem is one input to a constraint/destruction hash: either a typed,
// present value or an explicit absent marker.
//
// Absent marker layout: a single byte 0xFF with no following bytes. Every
// present item begins with a model.FieldType tag byte (the largest tag in
// use is model.TypeBlock64 = 0x3A); 0xFF can therefore never be emitted as
// a complete item by this encoder, so it cannot collide with any real
// value. This is pinned down as a conformance vector in constraints_test.go.
type hashItem struct {
	present bool
	tag     model.FieldType
	u8      uint8
	bytes   []byte
}

const absentMarker = 0xFF

func presentBytes(b []byte) hashItem { return hashItem{present: true, tag: model.TypeBytes, bytes: b} }
func presentU8(v uint8) hashItem     { return hashItem{present: true, tag: model.TypeU8, u8: v} }
func absent() hashItem               { return hashItem{present: false} }

func presentU8Or(v *uint8) hashItem {
	if v == nil {
		return absent()
	}
	return presentU8(*v)
}

func presentU32Or(v *uint32) hashItem {
	if v == nil {
		return absent()
	}
	b := []byte{byte(*v >> 24), byte(*v >> 16), byte(*v >> 8), byte(*v)}
	return presentBytes(b)
}

func presentStringOr(v *string) hashItem {
	if v == nil {
		return absent()
	}
	return hashItem{present: true, tag: model.TypeString, bytes: []byte(*v)}
}

// gatedU8/gatedU32/gatedString/gatedBytes implement the lock-bit
// pattern: for each set lock bit, the corresponding target value is fed
// into the constraint hash; for each unset bit, an explicit absent
// marker is fed instead. locked is this
// cert's own lockedConfig bit for the field; v is the value read off the
// embedder's TargetValues.
func gatedU8(locked bool, v *uint8) hashItem {
	if !locked {
		return absent()
	}
	return presentU8Or(v)
}

func gatedU32(locked bool, v *uint32) hashItem {
	if !locked {
		return absent()
	}
	return presentU32Or(v)
}

func gatedString(locked bool, v *string) hashItem {
	if !locked {
		return absent()
	}
	return presentStringOr(v)
}

func gatedBytes(locked bool, v []byte) hashItem {
	if !locked || v == nil {
		return absent()
	}
	return presentBytes(v)
}

func encodeHashItem(item hashItem) []byte {
	if !item.present {
		return []byte{absentMarker}
	}
	switch item.tag {
	case model.TypeU8:
		return []byte{byte(model.TypeU8), item.u8}
	case model.TypeString, model.TypeBytes:
		n := len(item.bytes)
		out := make([]byte, 0, 3+n)
		out = append(out, byte(item.tag), byte(n>>8), byte(n))
		out = append(out, item.bytes...)
		return out
	default:
		return []byte{absentMarker}
	}
}

// hashConcat concatenates the encoded items and hashes the result.
func hashConcat(h Hasher, items ...hashItem) [32]byte {
	var buf []byte
	for _, it := range items {
		buf = append(buf, encodeHashItem(it)...)
	}
	return h.Hash(buf)
}
