// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for psaw: the archive Record
// and its field values, record kinds, search arguments, and configuration.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValueKind identifies the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	// KindRaw holds a nested array or object as compact JSON.
	KindRaw
)

// Value is a single field value of a Record.
type Value struct {
	kind ValueKind
	str  string
	num  json.Number
	b    bool
	raw  json.RawMessage
}

// Null returns the null value.
func Null() Value { return Value{} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue returns a number value holding the literal n.
func NumberValue(n json.Number) Value { return Value{kind: KindNumber, num: n} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// String renders v as a CSV cell or filename component. Null renders as the
// empty string; nested values render as compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindRaw:
		return string(v.raw)
	default:
		return ""
	}
}

// Interface returns v as a plain Go value: nil, string, json.Number, bool,
// or a decoded nested structure for raw values.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindRaw:
		var out any
		dec := json.NewDecoder(bytes.NewReader(v.raw))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return string(v.raw)
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON writes v in its original JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindRaw:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON value into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty JSON value")
	}
	switch data[0] {
	case 'n':
		*v = Null()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*v = Value{kind: KindRaw, raw: json.RawMessage(buf.Bytes())}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}

// Record is one comment or submission returned by a search. Field order is
// the order in which the source delivered the fields.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord builds a Record from alternating name/value pairs in order.
// Later duplicates overwrite the value but keep the first position.
func NewRecord(pairs ...any) Record {
	r := Record{values: make(map[string]Value, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		name := fmt.Sprint(pairs[i])
		r.set(name, toValue(pairs[i+1]))
	}
	return r
}

func toValue(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case json.Number:
		return NumberValue(t)
	case int, int64, int32, float64, float32, uint, uint64:
		return NumberValue(json.Number(fmt.Sprint(t)))
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return StringValue(fmt.Sprint(t))
		}
		var v Value
		if err := v.UnmarshalJSON(data); err != nil {
			return StringValue(fmt.Sprint(t))
		}
		return v
	}
}

func (r *Record) set(name string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = v
}

// Fields returns the field names of r in source order.
func (r Record) Fields() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.keys) }

// Has reports whether r carries the named field.
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Get returns the named field value and whether it is present.
func (r Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Project returns a Record holding only the named fields that r carries,
// in the order given.
func (r Record) Project(names []string) Record {
	out := Record{values: make(map[string]Value, len(names))}
	for _, n := range names {
		if v, ok := r.values[n]; ok {
			out.set(n, v)
		}
	}
	return out
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}
	rec := Record{values: make(map[string]Value)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected field name, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record: field %q: %w", name, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("record: field %q: %w", name, err)
		}
		rec.set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = rec
	return nil
}

// MarshalJSON writes r as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Kind selects which archive collection a search targets.
type Kind string

const (
	Comments    Kind = "comments"
	Submissions Kind = "submissions"
)

// ParseKind validates a record kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Comments, Submissions:
		return k, nil
	default:
		return "", fmt.Errorf("unknown record kind %q: use comments or submissions", s)
	}
}

// Endpoint returns the singular collection name used in API paths.
func (k Kind) Endpoint() string {
	if k == Submissions {
		return "submission"
	}
	return "comment"
}
