package schemas

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single property value: null, string, number, bool, list or map.
// The zero Value is null. Values are treated as immutable once built; the
// helpers in this package copy rather than share nested lists and maps.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	m    Props
}

// Props is a node's property bag.
type Props map[string]Value

func Null() Value               { return Value{} }
func String(s string) Value     { return Value{kind: KindString, str: s} }
func Number(f float64) Value    { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value { return Value{kind: KindList, list: append([]Value(nil), items...)} }

// Map wraps a property bag as a nested Value. The map is copied.
func Map(m Props) Value { return Value{kind: KindMap, m: m.Clone()} }

func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// BoolVal returns the boolean payload and whether v is a bool.
func (v Value) BoolVal() (bool, bool) { return v.b, v.kind == KindBool }

// Items returns a copy of the list payload, or nil if v is not a list.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return append([]Value(nil), v.list...)
}

// Fields returns a copy of the map payload, or nil if v is not a map.
func (v Value) Fields() Props {
	if v.kind != KindMap {
		return nil
	}
	return v.m.Clone()
}

// Len reports the number of items or fields for lists and maps, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	}
	return 0
}

// IsEmpty reports whether v carries no useful data: null, "", [] or {}.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == ""
	case KindList, KindMap:
		return v.Len() == 0
	default:
		return false
	}
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return false
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = item.Clone()
		}
		return Value{kind: KindList, list: out}
	case KindMap:
		return Value{kind: KindMap, m: v.m.Clone()}
	}
	return v
}

// Clone returns a deep copy of the bag. A nil bag clones to an empty one.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v.Clone()
	}
	return out
}

// Equal reports structural equality of two bags.
func (p Props) Equal(o Props) bool {
	if len(p) != len(o) {
		return false
	}
	for k, v := range p {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// StringField returns the string property stored under key, or "".
func (p Props) StringField(key string) string {
	s, _ := p[key].Str()
	return s
}

// SortedKeys returns the bag's keys in lexical order.
func (p Props) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// numberLike matches json.Number from both encoding/json and jsoniter.
type numberLike interface {
	Float64() (float64, error)
	String() string
}

// FromAny converts a decoded JSON or msgpack tree into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
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
	case numberLike:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		m, err := PropsFromAny(t)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindMap, m: m}, nil
	case map[any]any:
		m := make(Props, len(t))
		for k, item := range t {
			key, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("unsupported map key type %T", k)
			}
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", key, err)
			}
			m[key] = v
		}
		return Value{kind: KindMap, m: m}, nil
	default:
		return Value{}, fmt.Errorf("unsupported property value type %T", x)
	}
}

// PropsFromAny converts a decoded JSON object into a property bag.
func PropsFromAny(m map[string]any) (Props, error) {
	out := make(Props, len(m))
	for k, item := range m {
		v, err := FromAny(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// ToAny converts v back into plain Go values (nil, string, float64, bool, []any, map[string]any).
func (v Value) ToAny() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToAny()
		}
		return out
	case KindMap:
		return v.m.ToAny()
	}
	return nil
}

// ToAny converts the bag into a plain map.
func (p Props) ToAny() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.ToAny()
	}
	return out
}

// AppendCanonical appends a deterministic JSON encoding of v to buf. Map keys
// are sorted, so structurally equal values always encode identically.
func (v Value) AppendCanonical(buf []byte) []byte {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...)
	case KindString:
		return strconv.AppendQuote(buf, v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			// Not representable in JSON; quote so the encoding stays parseable.
			return strconv.AppendQuote(buf, strconv.FormatFloat(v.num, 'g', -1, 64))
		}
		return strconv.AppendFloat(buf, v.num, 'g', -1, 64)
	case KindBool:
		return strconv.AppendBool(buf, v.b)
	case KindList:
		buf = append(buf, '[')
		for i, item := range v.list {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = item.AppendCanonical(buf)
		}
		return append(buf, ']')
	case KindMap:
		return v.m.AppendCanonical(buf)
	}
	return buf
}

// AppendCanonical appends the bag as a JSON object with sorted keys.
func (p Props) AppendCanonical(buf []byte) []byte {
	buf = append(buf, '{')
	for i, k := range p.SortedKeys() {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = p[k].AppendCanonical(buf)
	}
	return append(buf, '}')
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(v.ToAny())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := jsonAPI.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
