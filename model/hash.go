package model

import "sort"

// Hasher is the injected collision-resistant hash primitive.
// Implementations live outside this package (see odin.dev/model/xhash);
// the codec never picks its own hash algorithm.
type Hasher interface {
	Hash(data []byte) [32]byte
}

// SelectedHash hashes the 6-byte model-type header followed by every
// defined, set field for which include returns true, in ascending-index
// order. It is the general mechanism ContentHash, TransientHash, and the
// cert layer's self-hash (which conditionally folds in a normally
// non-hashable field when a config bit is set) all build on.
func (m *Model) SelectedHash(h Hasher, withHeader bool, include func(FieldDef) bool) ([32]byte, error) {
	var buf []byte
	if withHeader {
		buf = make([]byte, 6, 64)
		copy(buf, m.schema.ModelType[:])
	}

	var fields []FieldDef
	for name, v := range m.values {
		if !v.IsDefined() {
			continue
		}
		f, ok := m.schema.Field(name)
		if !ok || !include(f) {
			continue
		}
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Index < fields[j].Index })

	for _, f := range fields {
		rec, err := packField(f, m.values[f.Name])
		if err != nil {
			return [32]byte{}, err
		}
		buf = append(buf, rec...)
	}
	return h.Hash(buf), nil
}

// ContentHash computes the Model's content hash: the 6-byte model-type
// header followed by every hashable, non-transient, defined field in
// ascending-index order, each as its packed wire record. Fields named in
// exclude are treated as if unset.
func (m *Model) ContentHash(h Hasher, exclude []string) ([32]byte, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, n := range exclude {
		excluded[n] = true
	}
	return m.SelectedHash(h, true, func(f FieldDef) bool {
		return f.Hash && !f.Transient && !excluded[f.Name]
	})
}

// TransientHash computes a content fingerprint over only the hashable
// transient fields with a defined value. Unlike ContentHash, no model-type
// header is prepended — it is purely a value fingerprint, never a model
// identity.
func (m *Model) TransientHash(h Hasher) ([32]byte, error) {
	return m.SelectedHash(h, false, func(f FieldDef) bool {
		return f.Hash && f.Transient
	})
}
