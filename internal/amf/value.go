// Package amf implements the AMF0 and AMF3 wire codecs used by RTMP command
// and data messages. Both codecs decode into the same abstract value tree;
// only the byte-level encoding differs between them.
package amf

// Type identifies the kind of value held by a Value.
type Type int

const (
	TypeNumber Type = iota
	TypeBoolean
	TypeString
	TypeNull
	TypeUndefined
	TypeObject
	TypeStrictArray
	TypeEcmaArray
	TypeDate
)

// Value is the sum type every AMF0/AMF3 decode produces and every encode
// consumes: Number | Boolean | String | Null | Undefined | Object(map) |
// StrictArray(vec) | EcmaArray(map) | Date.
type Value struct {
	typ    Type
	num    float64
	b      bool
	str    string
	object map[string]*Value
	array  []*Value
}

func Number(n float64) *Value    { return &Value{typ: TypeNumber, num: n} }
func Boolean(b bool) *Value      { return &Value{typ: TypeBoolean, b: b} }
func String(s string) *Value     { return &Value{typ: TypeString, str: s} }
func Null() *Value               { return &Value{typ: TypeNull} }
func Undefined() *Value          { return &Value{typ: TypeUndefined} }
func Date(ts float64) *Value     { return &Value{typ: TypeDate, num: ts} }

func Object(fields map[string]*Value) *Value {
	if fields == nil {
		fields = make(map[string]*Value)
	}
	return &Value{typ: TypeObject, object: fields}
}

func EcmaArray(fields map[string]*Value) *Value {
	if fields == nil {
		fields = make(map[string]*Value)
	}
	return &Value{typ: TypeEcmaArray, object: fields}
}

func StrictArray(items []*Value) *Value {
	return &Value{typ: TypeStrictArray, array: items}
}

// Type returns the dynamic type of the value.
func (v *Value) Type() Type {
	if v == nil {
		return TypeUndefined
	}
	return v.typ
}

func (v *Value) IsNull() bool {
	return v == nil || v.typ == TypeNull
}

func (v *Value) IsUndefined() bool {
	return v == nil || v.typ == TypeUndefined
}

// Float returns the numeric value, or 0 if v is not a number/date.
func (v *Value) Float() float64 {
	if v == nil {
		return 0
	}
	return v.num
}

// Int truncates Float to an int.
func (v *Value) Int() int {
	return int(v.Float())
}

// Bool returns the boolean value, false if v is not a boolean.
func (v *Value) Bool() bool {
	if v == nil {
		return false
	}
	return v.b
}

// Str returns the string value, "" if v is not a string.
func (v *Value) Str() string {
	if v == nil {
		return ""
	}
	return v.str
}

// Prop looks up a named property on an Object or EcmaArray value. Returns a
// Value holding Undefined if absent or v is not an object-like value.
func (v *Value) Prop(name string) *Value {
	if v == nil || v.object == nil {
		return Undefined()
	}
	p, ok := v.object[name]
	if !ok || p == nil {
		return Undefined()
	}
	return p
}

// Fields returns the underlying map of an Object/EcmaArray value, or nil.
func (v *Value) Fields() map[string]*Value {
	if v == nil {
		return nil
	}
	return v.object
}

// Items returns the underlying slice of a StrictArray value, or nil.
func (v *Value) Items() []*Value {
	if v == nil {
		return nil
	}
	return v.array
}
