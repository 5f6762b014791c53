// Package canonical provides the payload value type stored in ledger blocks
// and its deterministic string encoding.
//
// A Value is a closed sum of six kinds: null, bool, number, string, list and
// map. Values are immutable once built, so they can be shared between blocks
// and chain snapshots without copying.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an immutable payload value. The zero Value is null.
type Value struct {
	kind   Kind
	b      bool
	num    float64
	str    string
	items  []Value
	fields map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int wraps an integer as a number.
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i)} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// List builds an ordered sequence. The argument slice is copied.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, items: cp}
}

// Map builds a mapping. The argument map is copied; a nil map yields an
// empty mapping.
func Map(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindMap, fields: cp}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string held by v and whether v is a string.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Float returns the number held by v and whether v is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// BoolValue returns the boolean held by v and whether v is a bool.
func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Items returns a copy of the list elements, or nil when v is not a list.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	cp := make([]Value, len(v.items))
	copy(cp, v.items)
	return cp
}

// Fields returns a copy of the map entries, or nil when v is not a map.
func (v Value) Fields() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	cp := make(map[string]Value, len(v.fields))
	for k, f := range v.fields {
		cp[k] = f
	}
	return cp
}

// Field looks up key in a map value.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// StringField returns the string stored under key, or "" when the key is
// missing or not a string.
func (v Value) StringField(key string) string {
	f, ok := v.Field(key)
	if !ok {
		return ""
	}
	s, _ := f.Str()
	return s
}

// Len returns the number of elements of a list or entries of a map.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.items)
	case KindMap:
		return len(v.fields)
	default:
		return 0
	}
}

// Keys returns the map keys in canonical (byte-wise ascending) order.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidUTF8 reports whether every string and map key in v is valid UTF-8.
// JSON cannot carry other byte sequences, so a value failing this check
// would not encode back to the same digest after a round trip.
func (v Value) ValidUTF8() bool {
	switch v.kind {
	case KindString:
		return utf8.ValidString(v.str)
	case KindList:
		for _, it := range v.items {
			if !it.ValidUTF8() {
				return false
			}
		}
	case KindMap:
		for k, f := range v.fields {
			if !utf8.ValidString(k) || !f.ValidUTF8() {
				return false
			}
		}
	}
	return true
}

// Equal reports structural equality. Map key order never matters; list order
// always does.
func (v Value) Equal(o Value) bool {
	return Encode(v) == Encode(o)
}

// FromAny converts decoded JSON or plain Go literals into a Value.
// Supported inputs: nil, bool, string, all integer and float types,
// json.Number, []any, []Value, map[string]any, map[string]string,
// map[string]Value and Value itself.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("canonical: invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case []Value:
		return List(t...), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			iv, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("canonical: list element %d: %w", i, err)
			}
			items[i] = iv
		}
		return Value{kind: KindList, items: items}, nil
	case map[string]Value:
		return Map(t), nil
	case map[string]string:
		fields := make(map[string]Value, len(t))
		for k, s := range t {
			fields[k] = String(s)
		}
		return Value{kind: KindMap, fields: fields}, nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fv, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("canonical: field %q: %w", k, err)
			}
			fields[k] = fv
		}
		return Value{kind: KindMap, fields: fields}, nil
	default:
		return Value{}, fmt.Errorf("canonical: unsupported type %T", x)
	}
}

// MustFromAny is like FromAny but panics on error. Useful in tests and for
// literal payloads.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

// ToAny converts v back into plain Go values (map[string]any, []any,
// float64, string, bool, nil).
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindList:
		out := make([]any, len(v.items))
		for i, e := range v.items {
			out[i] = e.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, e := range v.fields {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler. Map keys are emitted in canonical
// order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return fmt.Errorf("canonical: %v is not representable in JSON", v.num)
		}
		buf.WriteString(formatNumber(v.num))
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindList:
		buf.WriteByte('[')
		for i, e := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.fields[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("canonical: decode: %w", err)
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
