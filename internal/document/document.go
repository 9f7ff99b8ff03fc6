// Package document defines the tree value shared by the markup converter, the key
// sanitizer and the persistence layer.
//
// A Value is a closed variant: null, string, number, boolean, an ordered sequence of
// values, or a mapping from string keys to values. Mappings keep insertion order so
// serialized output is stable, although order carries no meaning for the store.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies which variant a Value holds.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindSequence
	KindMapping
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
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one node of a document tree. The zero Value is null.
type Value struct {
	kind   Kind
	str    string
	num    float64
	flag   bool
	items  []Value
	fields []Field
}

// Field is one key/value entry of a mapping.
type Field struct {
	Key   string
	Value Value
}

// Null returns the null scalar.
func Null() Value { return Value{} }

// String returns a string scalar.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric scalar.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Sequence returns an ordered sequence holding items.
func Sequence(items ...Value) Value {
	return Value{kind: KindSequence, items: append([]Value{}, items...)}
}

// Mapping returns a mapping built from fields. A repeated key keeps the position of
// its first occurrence and the value of its last.
func Mapping(fields ...Field) Value {
	b := NewBuilder(len(fields))
	for _, f := range fields {
		b.Set(f.Key, f.Value)
	}
	return b.Build()
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsScalar reports whether v is neither a sequence nor a mapping.
func (v Value) IsScalar() bool { return v.kind != KindSequence && v.kind != KindMapping }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the boolean payload and whether v is a boolean.
func (v Value) Boolean() (bool, bool) { return v.flag, v.kind == KindBool }

// Items returns a copy of the sequence items; nil for other kinds.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return append([]Value{}, v.items...)
}

// Fields returns a copy of the mapping fields in insertion order; nil for other kinds.
func (v Value) Fields() []Field {
	if v.kind != KindMapping {
		return nil
	}
	return append([]Field{}, v.fields...)
}

// Len returns the number of items or fields; zero for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.items)
	case KindMapping:
		return len(v.fields)
	default:
		return 0
	}
}

// Index returns the i-th sequence item.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindSequence || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Get returns the value stored under key in a mapping.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Path walks nested mappings by key and returns the value found at the end.
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Builder assembles a mapping incrementally.
type Builder struct {
	fields []Field
	index  map[string]int
}

// NewBuilder returns a Builder sized for n fields.
func NewBuilder(n int) *Builder {
	return &Builder{
		fields: make([]Field, 0, n),
		index:  make(map[string]int, n),
	}
}

// Set stores value under key. An existing key is overwritten in place.
func (b *Builder) Set(key string, value Value) {
	if i, ok := b.index[key]; ok {
		b.fields[i].Value = value
		return
	}
	b.index[key] = len(b.fields)
	b.fields = append(b.fields, Field{Key: key, Value: value})
}

// Lookup returns the value currently stored under key.
func (b *Builder) Lookup(key string) (Value, bool) {
	i, ok := b.index[key]
	if !ok {
		return Value{}, false
	}
	return b.fields[i].Value, true
}

// Len returns the number of distinct keys set so far.
func (b *Builder) Len() int { return len(b.fields) }

// Build returns the mapping. The Builder must not be reused afterwards.
func (b *Builder) Build() Value {
	return Value{kind: KindMapping, fields: b.fields}
}

// MarshalJSON encodes v as JSON, writing mapping keys in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.flag {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindString:
		return encodeScalar(buf, v.str)
	case KindNumber:
		return encodeScalar(buf, v.num)
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeScalar(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("document: unknown kind %s", v.kind)
	}
	return nil
}

func encodeScalar(buf *bytes.Buffer, scalar any) error {
	raw, err := json.Marshal(scalar)
	if err != nil {
		return fmt.Errorf("document: encode %T: %w", scalar, err)
	}
	buf.Write(raw)
	return nil
}

// UnmarshalJSON decodes any JSON value into v, preserving object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec)
	if err != nil {
		return fmt.Errorf("document: decode: %w", err)
	}
	*v = parsed
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindSequence, items: items}, nil
		case '{':
			b := NewBuilder(0)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				b.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return b.Build(), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}
