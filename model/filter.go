package model

import "bytes"

// CompareOp is the final comparison applied after any transform.
type CompareOp string

const (
	CmpEQ CompareOp = "EQ"
	CmpNE CompareOp = "NE"
	CmpLT CompareOp = "LT"
	CmpLE CompareOp = "LE"
	CmpGT CompareOp = "GT"
	CmpGE CompareOp = "GE"
)

// TransformKind selects the optional per-field transform applied before
// comparison.
type TransformKind string

const (
	TransformNone   TransformKind = ""
	TransformHash   TransformKind = "hash"
	TransformSubstr TransformKind = "substr"
	TransformAnd    TransformKind = "&"
	TransformOr     TransformKind = "|"
	TransformXor    TransformKind = "^"
	TransformShl    TransformKind = "<<"
	TransformShr    TransformKind = ">>"
)

// Transform describes one optional transform step.
type Transform struct {
	Kind TransformKind

	// substr
	Start int
	Len   *int // nil = to end

	// bitwise &|^<<>>
	Operand uint64
}

// FilterSpec is one {field, operator?, cmp, value} filter clause.
type FilterSpec struct {
	Field     string
	Transform Transform
	Cmp       CompareOp
	Value     Value
}

// Filter evaluates spec against m, using h for the "hash" transform.
func Filter(m *Model, spec FilterSpec, h Hasher) (bool, error) {
	v, def, defined := resolveField(m, spec.Field)

	if spec.Transform.Kind != TransformNone {
		tv, tdefined, err := applyTransform(spec.Transform, v, def, defined, h)
		if err != nil {
			return false, err
		}
		v, defined = tv, tdefined
	}

	return compare(v, defined, spec.Value, spec.Cmp)
}

// resolveField fetches the named field and its declaration, handling the
// "id" pseudo-field (id2 falling back to id1).
func resolveField(m *Model, name string) (Value, FieldDef, bool) {
	if name == "id" {
		if v, def, ok := resolveField(m, "id2"); ok {
			return v, def, true
		}
		return resolveField(m, "id1")
	}
	def, declared := m.schema.Field(name)
	if !declared {
		return Value{}, FieldDef{}, false
	}
	v, ok := m.get(name)
	if !ok || !v.IsDefined() {
		return Value{}, def, false
	}
	return v, def, true
}

func applyTransform(t Transform, v Value, def FieldDef, defined bool, h Hasher) (Value, bool, error) {
	if !defined {
		// "operations on undefined yield only NE=true"; signal this by
		// returning undefined through unchanged — compare() handles it.
		return v, false, nil
	}

	switch t.Kind {
	case TransformHash:
		var raw []byte
		switch v.Kind {
		case KindString:
			raw = []byte(v.S)
		case KindBytes:
			raw = v.B
		default:
			return Value{}, false, merr(ErrSchemaViolation, "hash transform requires string/bytes field")
		}
		digest := h.Hash(raw)
		return BytesValue(digest[:]), true, nil

	case TransformSubstr:
		var raw []byte
		isStr := v.Kind == KindString
		if isStr {
			raw = []byte(v.S)
		} else if v.Kind == KindBytes {
			raw = v.B
		} else {
			return Value{}, false, merr(ErrSchemaViolation, "substr transform requires string/bytes field")
		}
		start := t.Start
		if start < 0 {
			start += len(raw)
		}
		if start < 0 {
			start = 0
		}
		if start > len(raw) {
			start = len(raw)
		}
		end := len(raw)
		if t.Len != nil {
			end = start + *t.Len
			if end > len(raw) {
				end = len(raw)
			}
			if end < start {
				end = start
			}
		}
		sub := raw[start:end]
		if isStr {
			return StringValue(string(sub)), true, nil
		}
		return BytesValue(append([]byte(nil), sub...)), true, nil

	case TransformAnd, TransformOr, TransformXor, TransformShl, TransformShr:
		if !isUnsignedInt(def.Type) || intWidth(def.Type) > 4 {
			return Value{}, false, merr(ErrSchemaViolation, "bitwise transform requires an unsigned integer field up to 32 bits")
		}
		// Mask the value and result back to the field's natural width, so
		// a shift on e.g. a U8 field wraps at 8 bits rather than 32.
		bits := uint(intWidth(def.Type) * 8)
		mask := uint64(1)<<bits - 1
		u := v.U & mask
		var res uint64
		switch t.Kind {
		case TransformAnd:
			res = u & t.Operand
		case TransformOr:
			res = u | t.Operand
		case TransformXor:
			res = u ^ t.Operand
		case TransformShl:
			res = u << (t.Operand & 63)
		case TransformShr:
			res = u >> (t.Operand & 63)
		}
		return UintValue(res & mask), true, nil
	}
	return v, true, nil
}

func compare(v Value, vDefined bool, cmpVal Value, op CompareOp) (bool, error) {
	cmpDefined := cmpVal.IsDefined()

	if !vDefined || !cmpDefined {
		if !vDefined && !cmpDefined {
			return op == CmpEQ, nil
		}
		return op == CmpNE, nil
	}

	var ord int
	switch {
	case v.Kind == KindInt64 && cmpVal.Kind == KindInt64:
		ord = cmpInt64(v.I, cmpVal.I)
	case v.Kind == KindUint64 && cmpVal.Kind == KindUint64:
		ord = cmpUint64(v.U, cmpVal.U)
	case v.Kind == KindString && cmpVal.Kind == KindString:
		ord = bytesCompareString(v.S, cmpVal.S)
	case v.Kind == KindBytes && cmpVal.Kind == KindBytes:
		ord = bytes.Compare(v.B, cmpVal.B)
	default:
		return false, merr(ErrSchemaViolation, "comparison operands have incompatible kinds")
	}

	switch op {
	case CmpEQ:
		return ord == 0, nil
	case CmpNE:
		return ord != 0, nil
	case CmpLT:
		return ord < 0, nil
	case CmpLE:
		return ord <= 0, nil
	case CmpGT:
		return ord > 0, nil
	case CmpGE:
		return ord >= 0, nil
	default:
		return false, merr(ErrSchemaViolation, "unknown comparison operator %q", op)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func bytesCompareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
