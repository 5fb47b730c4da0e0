package model

// FieldType is the one-byte type tag written immediately before a field's
// index in every packed field record.
type FieldType uint8

const (
	TypeU8 FieldType = 0x01
	TypeI8 FieldType = 0x02

	TypeU16LE FieldType = 0x03
	TypeU16BE FieldType = 0x04
	TypeI16LE FieldType = 0x05
	TypeI16BE FieldType = 0x06

	TypeU24LE FieldType = 0x07
	TypeU24BE FieldType = 0x08
	TypeI24LE FieldType = 0x09
	TypeI24BE FieldType = 0x0A

	TypeU32LE FieldType = 0x0B
	TypeU32BE FieldType = 0x0C
	TypeI32LE FieldType = 0x0D
	TypeI32BE FieldType = 0x0E

	TypeU48LE FieldType = 0x0F
	TypeU48BE FieldType = 0x10
	TypeI48LE FieldType = 0x11
	TypeI48BE FieldType = 0x12

	TypeU64LE FieldType = 0x13
	TypeU64BE FieldType = 0x14

	TypeString FieldType = 0x20
	TypeBytes  FieldType = 0x21

	TypeBlock1  FieldType = 0x30
	TypeBlock2  FieldType = 0x31
	TypeBlock3  FieldType = 0x32
	TypeBlock4  FieldType = 0x33
	TypeBlock5  FieldType = 0x34
	TypeBlock6  FieldType = 0x35
	TypeBlock7  FieldType = 0x36
	TypeBlock8  FieldType = 0x37
	TypeBlock16 FieldType = 0x38
	TypeBlock32 FieldType = 0x39
	TypeBlock64 FieldType = 0x3A
)

// MaxVariableFieldSize is the ceiling any STRING/BYTES field declaration
// must respect.
const MaxVariableFieldSize = 65535

// blockWidth returns the fixed byte width for a FieldBlock* type, or 0 if t
// is not a fixed-size block type.
func blockWidth(t FieldType) int {
	switch t {
	case TypeBlock1:
		return 1
	case TypeBlock2:
		return 2
	case TypeBlock3:
		return 3
	case TypeBlock4:
		return 4
	case TypeBlock5:
		return 5
	case TypeBlock6:
		return 6
	case TypeBlock7:
		return 7
	case TypeBlock8:
		return 8
	case TypeBlock16:
		return 16
	case TypeBlock32:
		return 32
	case TypeBlock64:
		return 64
	default:
		return 0
	}
}

// intWidth returns the wire width in bytes for fixed-width integer types.
func intWidth(t FieldType) int {
	switch t {
	case TypeU8, TypeI8:
		return 1
	case TypeU16LE, TypeU16BE, TypeI16LE, TypeI16BE:
		return 2
	case TypeU24LE, TypeU24BE, TypeI24LE, TypeI24BE:
		return 3
	case TypeU32LE, TypeU32BE, TypeI32LE, TypeI32BE:
		return 4
	case TypeU48LE, TypeU48BE, TypeI48LE, TypeI48BE:
		return 6
	case TypeU64LE, TypeU64BE:
		return 8
	default:
		return 0
	}
}

func isVariableLength(t FieldType) bool {
	return t == TypeString || t == TypeBytes
}

func isSigned(t FieldType) bool {
	switch t {
	case TypeI8, TypeI16LE, TypeI16BE, TypeI24LE, TypeI24BE, TypeI32LE, TypeI32BE, TypeI48LE, TypeI48BE:
		return true
	default:
		return false
	}
}

func isBigEndian(t FieldType) bool {
	switch t {
	case TypeU16BE, TypeI16BE, TypeU24BE, TypeI24BE, TypeU32BE, TypeI32BE, TypeU48BE, TypeI48BE, TypeU64BE:
		return true
	default:
		return false
	}
}

func isUnsignedInt(t FieldType) bool {
	switch t {
	case TypeU8, TypeU16LE, TypeU16BE, TypeU24LE, TypeU24BE, TypeU32LE, TypeU32BE, TypeU48LE, TypeU48BE, TypeU64LE, TypeU64BE:
		return true
	default:
		return false
	}
}

// FieldDef declares one field in a Model's schema.
//
// Name is a debug/filter key only; it is never serialized. Index is the
// stable wire identifier and must never be reassigned once shipped.
type FieldDef struct {
	Index     uint8
	Name      string
	Type      FieldType
	MaxSize   int  // required (>0, <=MaxVariableFieldSize) for STRING/BYTES
	Hash      bool // false (the zero value) excludes the field from the content hash; set true explicitly to hash it
	Transient bool // not exported by default; never part of the content hash
}

func (f FieldDef) fixedWidth() int {
	if w := blockWidth(f.Type); w > 0 {
		return w
	}
	return intWidth(f.Type)
}

// Schema is the fixed, ordered field declaration set for one Model type.
type Schema struct {
	ModelType [6]byte
	fields    []FieldDef
	byIndex   map[uint8]FieldDef
	byName    map[string]FieldDef
}

// NewSchema validates and constructs a Schema. Field declarations are
// copied; the returned Schema is immutable.
func NewSchema(modelType [6]byte, fields []FieldDef) (*Schema, error) {
	s := &Schema{
		ModelType: modelType,
		byIndex:   make(map[uint8]FieldDef, len(fields)),
		byName:    make(map[string]FieldDef, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, merr(ErrSchemaViolation, "field at index %d has empty name", f.Index)
		}
		if _, exists := s.byIndex[f.Index]; exists {
			return nil, merr(ErrSchemaViolation, "duplicate field index %d", f.Index)
		}
		if _, exists := s.byName[f.Name]; exists {
			return nil, merr(ErrSchemaViolation, "duplicate field name %q", f.Name)
		}
		// Hash is not defaulted here: a declaration that omits it is
		// excluded from the content hash.
		if isVariableLength(f.Type) {
			if f.MaxSize <= 0 || f.MaxSize > MaxVariableFieldSize {
				return nil, merr(ErrSchemaViolation, "field %q: maxSize must be in (0, %d]", f.Name, MaxVariableFieldSize)
			}
		}
		s.fields = append(s.fields, f)
		s.byIndex[f.Index] = f
		s.byName[f.Name] = f
	}
	return s, nil
}

func (s *Schema) Field(name string) (FieldDef, bool) {
	f, ok := s.byName[name]
	return f, ok
}

func (s *Schema) FieldByIndex(idx uint8) (FieldDef, bool) {
	f, ok := s.byIndex[idx]
	return f, ok
}

// Fields returns a copy of the schema's field declarations in declaration
// order.
func (s *Schema) Fields() []FieldDef {
	out := make([]FieldDef, len(s.fields))
	copy(out, s.fields)
	return out
}
