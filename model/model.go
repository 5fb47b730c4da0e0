package model

import "sort"

// Model is a schema-defined typed-field container with a 6-byte identity
// and a deterministic binary form.
type Model struct {
	schema *Schema
	values map[string]Value
}

// New constructs an empty Model over schema.
func New(schema *Schema) *Model {
	return &Model{schema: schema, values: make(map[string]Value)}
}

func (m *Model) Schema() *Schema { return m.schema }

func (m *Model) setTyped(name string, want ValueKind, v Value) error {
	f, ok := m.schema.Field(name)
	if !ok {
		return merr(ErrSchemaViolation, "unknown field %q", name)
	}
	if kindForType(f.Type) != want {
		return merr(ErrSchemaViolation, "field %q: type mismatch on set", name)
	}
	m.values[name] = v
	return nil
}

func (m *Model) SetInt64(name string, v int64) error   { return m.setTyped(name, KindInt64, IntValue(v)) }
func (m *Model) SetUint64(name string, v uint64) error { return m.setTyped(name, KindUint64, UintValue(v)) }
func (m *Model) SetString(name string, v string) error { return m.setTyped(name, KindString, StringValue(v)) }

// SetBytes stores b by reference; the caller must not mutate b afterwards.
func (m *Model) SetBytes(name string, b []byte) error { return m.setTyped(name, KindBytes, BytesValue(b)) }

// Unset removes any value previously set for name, making it undefined.
func (m *Model) Unset(name string) { delete(m.values, name) }

func (m *Model) get(name string) (Value, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *Model) GetInt64(name string) (int64, bool) {
	v, ok := m.get(name)
	if !ok || v.Kind != KindInt64 {
		return 0, false
	}
	return v.I, true
}

func (m *Model) GetUint64(name string) (uint64, bool) {
	v, ok := m.get(name)
	if !ok || v.Kind != KindUint64 {
		return 0, false
	}
	return v.U, true
}

func (m *Model) GetString(name string) (string, bool) {
	v, ok := m.get(name)
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

func (m *Model) GetBytes(name string) ([]byte, bool) {
	v, ok := m.get(name)
	if !ok || v.Kind != KindBytes {
		return nil, false
	}
	return v.B, true
}

func (m *Model) IsSet(name string) bool {
	_, ok := m.values[name]
	return ok
}

// sortedSetFields returns the fields with a defined value, sorted by
// ascending index, filtered by the transient export policy.
func (m *Model) sortedSetFields(exportTransient, exportTransientNonHashable bool) []FieldDef {
	var out []FieldDef
	for name, v := range m.values {
		if !v.IsDefined() {
			continue
		}
		f, ok := m.schema.Field(name)
		if !ok {
			continue
		}
		if f.Transient {
			if !exportTransient {
				continue
			}
			if !f.Hash && !exportTransientNonHashable {
				continue
			}
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Export serializes the Model: header, then fields in
// ascending-index order. Transient fields are included only when
// exportTransient is set; non-hashable transient fields additionally
// require exportTransientNonHashable.
func (m *Model) Export(exportTransient, exportTransientNonHashable bool) ([]byte, error) {
	out := make([]byte, 6, 64)
	copy(out, m.schema.ModelType[:])
	for _, f := range m.sortedSetFields(exportTransient, exportTransientNonHashable) {
		rec, err := packField(f, m.values[f.Name])
		if err != nil {
			return nil, err
		}
		out = append(out, rec...)
	}
	return out, nil
}

// Load populates an empty Model from a wire image. The first 6 bytes must
// match the schema's model type exactly. ignoreUnknown controls whether an
// unrecognized field index is skipped or rejected; preserveTransient
// controls whether transient field values found in the image are retained.
func (m *Model) Load(image []byte, preserveTransient, ignoreUnknown bool) error {
	if len(image) < 6 {
		return merr(ErrMalformedImage, "image shorter than model-type header")
	}
	for i := 0; i < 6; i++ {
		if image[i] != m.schema.ModelType[i] {
			return merr(ErrMalformedImage, "model type mismatch")
		}
	}
	m.values = make(map[string]Value)
	seen := make(map[uint8]bool)

	off := 6
	for off < len(image) {
		if off+2 > len(image) {
			return merr(ErrMalformedImage, "truncated field record header")
		}
		tag := FieldType(image[off])
		idx := image[off+1]
		off += 2

		if seen[idx] {
			return merr(ErrMalformedImage, "duplicate field index %d", idx)
		}
		seen[idx] = true

		f, known := m.schema.FieldByIndex(idx)
		if !known {
			if !ignoreUnknown {
				return merr(ErrMalformedImage, "unknown field index %d", idx)
			}
			newOff, err := skipValue(tag, image, off)
			if err != nil {
				return err
			}
			off = newOff
			continue
		}
		if f.Type != tag {
			return merr(ErrMalformedImage, "field %q: type tag mismatch", f.Name)
		}

		val, newOff, err := unpackValue(f, tag, image, off)
		if err != nil {
			return err
		}
		off = newOff

		if f.Transient && !preserveTransient {
			continue
		}
		m.values[f.Name] = val
	}
	return nil
}

// Clone returns a deep-enough copy (value map duplicated; byte buffers are
// shared by reference per the Model ownership rule).
func (m *Model) Clone() *Model {
	out := New(m.schema)
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}
