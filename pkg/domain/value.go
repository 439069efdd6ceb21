package domain

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ValueKind tags the scalar type of a parameter value.
type ValueKind uint8

const (
	KindFloat ValueKind = iota
	KindInt
	KindBool
	KindString
)

// String returns the kind name used in logs and JSON payloads.
func (k ValueKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an immutable tagged scalar: the concrete value a target parameter
// takes. Booleans and integers normalize to float64 for identity purposes so
// that the byte key depends only on the numeric content.
type Value struct {
	kind ValueKind
	num  float64
	str  string
}

// Float constructs a float value.
func Float(v float64) Value { return Value{kind: KindFloat, num: v} }

// Int constructs an integer value.
func Int(v int64) Value { return Value{kind: KindInt, num: float64(v)} }

// Bool constructs a boolean value, normalized to 0.0/1.0 internally.
func Bool(v bool) Value {
	n := 0.0
	if v {
		n = 1.0
	}
	return Value{kind: KindBool, num: n}
}

// Str constructs a string value.
func Str(v string) Value { return Value{kind: KindString, str: v} }

// Kind reports the tagged scalar type.
func (v Value) Kind() ValueKind { return v.kind }

// Float64 returns the numeric content (bools as 0.0/1.0). Strings return NaN.
func (v Value) Float64() float64 {
	if v.kind == KindString {
		return math.NaN()
	}
	return v.num
}

// Int64 truncates the numeric content to an integer.
func (v Value) Int64() int64 { return int64(v.num) }

// Bool reports whether the numeric content is nonzero.
func (v Value) Bool() bool { return v.num != 0 }

// Text returns the string content, or a decimal rendering for numerics.
func (v Value) Text() string {
	if v.kind == KindString {
		return v.str
	}
	if v.kind == KindInt || v.kind == KindBool {
		return strconv.FormatInt(int64(v.num), 10)
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// Equal compares by exact content: bitwise for numerics, bytewise for strings.
func (v Value) Equal(o Value) bool {
	if v.kind == KindString || o.kind == KindString {
		return v.kind == o.kind && v.str == o.str
	}
	return math.Float64bits(v.num) == math.Float64bits(o.num)
}

const (
	keyTagNumeric byte = 0x01
	keyTagString  byte = 0x02
)

// AppendKey appends the value's exact identity encoding: a tag byte, then the
// IEEE-754 little-endian bits for numerics (bool already normalized to
// 0.0/1.0) or a uvarint length plus UTF-8 bytes for strings.
func (v Value) AppendKey(dst []byte) []byte {
	if v.kind == KindString {
		dst = append(dst, keyTagString)
		dst = binary.AppendUvarint(dst, uint64(len(v.str)))
		return append(dst, v.str...)
	}
	dst = append(dst, keyTagNumeric)
	return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v.num))
}

type valueJSON struct {
	Kind   string   `json:"kind"`
	Number *float64 `json:"number,omitempty"`
	Text   *string  `json:"text,omitempty"`
}

// MarshalJSON serializes the tagged scalar for snapshot persistence.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Kind: v.kind.String()}
	if v.kind == KindString {
		out.Text = &v.str
	} else {
		out.Number = &v.num
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a tagged scalar from snapshot persistence.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "float":
		v.kind = KindFloat
	case "int":
		v.kind = KindInt
	case "bool":
		v.kind = KindBool
	case "string":
		v.kind = KindString
	default:
		return fmt.Errorf("unknown value kind %q", in.Kind)
	}
	if v.kind == KindString {
		if in.Text == nil {
			return fmt.Errorf("string value missing text")
		}
		v.str = *in.Text
		return nil
	}
	if in.Number == nil {
		return fmt.Errorf("%s value missing number", in.Kind)
	}
	v.num = *in.Number
	return nil
}

// EncodeRowKey builds the exact byte identity of a full parameter row. Columns
// are visited in sorted path order so the key is independent of insertion
// order; each column contributes its path bytes then its value encoding.
func EncodeRowKey(row map[string]Value) []byte {
	paths := make([]string, 0, len(row))
	for p := range row {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var key []byte
	for _, p := range paths {
		key = binary.AppendUvarint(key, uint64(len(p)))
		key = append(key, p...)
		key = row[p].AppendKey(key)
	}
	return key
}
