package model

// ValueKind discriminates the tagged-variant Value representation.
type ValueKind uint8

const (
	KindUndefined ValueKind = iota
	KindInt64
	KindUint64
	KindString
	KindBytes
)

// Value is the dynamically-typed container a Model stores per field.
// Exactly one of the typed accessors is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	I    int64
	U    uint64
	S    string
	B    []byte
}

func (v Value) IsDefined() bool { return v.Kind != KindUndefined }

func IntValue(i int64) Value    { return Value{Kind: KindInt64, I: i} }
func UintValue(u uint64) Value  { return Value{Kind: KindUint64, U: u} }
func StringValue(s string) Value { return Value{Kind: KindString, S: s} }

// BytesValue wraps b by reference; the caller must not mutate b after
// handing it to a Model.
func BytesValue(b []byte) Value { return Value{Kind: KindBytes, B: b} }

// kindForType returns the Value.Kind a well-formed value of FieldType t
// must have.
func kindForType(t FieldType) ValueKind {
	switch {
	case t == TypeString:
		return KindString
	case t == TypeBytes, blockWidth(t) > 0:
		return KindBytes
	case isSigned(t):
		return KindInt64
	default:
		return KindUint64
	}
}
