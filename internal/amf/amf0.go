package amf

import (
	"encoding/binary"
	"math"
	"sort"
)

const (
	amf0Number     = 0x00
	amf0Bool       = 0x01
	amf0String     = 0x02
	amf0Object     = 0x03
	amf0Null       = 0x05
	amf0Undefined  = 0x06
	amf0Ref        = 0x07
	amf0EcmaArray  = 0x08
	objectTerm     = 0x09
	amf0StrictArr  = 0x0A
	amf0Date       = 0x0B
	amf0LongString = 0x0C
	amf0XMLDoc     = 0x0F
	amf0TypedObj   = 0x10
	amf0SwitchAMF3 = 0x11
)

// EncodeAMF0 serializes a single value using the AMF0 wire format.
func EncodeAMF0(v *Value) []byte {
	if v == nil {
		return []byte{amf0Undefined}
	}

	switch v.typ {
	case TypeNumber:
		return append([]byte{amf0Number}, encodeFloat64(v.num)...)
	case TypeBoolean:
		if v.b {
			return []byte{amf0Bool, 0x01}
		}
		return []byte{amf0Bool, 0x00}
	case TypeDate:
		b := append([]byte{amf0Date}, []byte{0x00, 0x00}...)
		return append(b, encodeFloat64(v.num)...)
	case TypeString:
		return append([]byte{amf0String}, encodeAMF0String(v.str)...)
	case TypeNull:
		return []byte{amf0Null}
	case TypeUndefined:
		return []byte{amf0Undefined}
	case TypeObject:
		return append([]byte{amf0Object}, encodeAMF0Object(v.object)...)
	case TypeEcmaArray:
		l := make([]byte, 4)
		binary.BigEndian.PutUint32(l, uint32(len(v.object)))
		b := append([]byte{amf0EcmaArray}, l...)
		return append(b, encodeAMF0Object(v.object)...)
	case TypeStrictArray:
		l := make([]byte, 4)
		binary.BigEndian.PutUint32(l, uint32(len(v.array)))
		b := append([]byte{amf0StrictArr}, l...)
		for _, item := range v.array {
			b = append(b, EncodeAMF0(item)...)
		}
		return b
	}

	return []byte{amf0Undefined}
}

func encodeFloat64(f float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(f))
	return b
}

func encodeAMF0String(s string) []byte {
	raw := []byte(s)
	l := make([]byte, 2)
	binary.BigEndian.PutUint16(l, uint16(len(raw)))
	return append(l, raw...)
}

// encodeAMF0Object encodes an object's property list with keys sorted for
// deterministic output, followed by the empty-name object terminator.
func encodeAMF0Object(o map[string]*Value) []byte {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var r []byte
	for _, k := range keys {
		r = append(r, encodeAMF0String(k)...)
		r = append(r, EncodeAMF0(o[k])...)
	}
	r = append(r, encodeAMF0String("")...)
	r = append(r, objectTerm)
	return r
}

// Decoder reads a sequence of AMF0 (and embedded AMF3) values from a buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for sequential AMF0 reads.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

func (d *Decoder) read(n int) []byte {
	if d.pos+n > len(d.buf) {
		n = len(d.buf) - d.pos
		if n < 0 {
			n = 0
		}
	}
	r := d.buf[d.pos : d.pos+n]
	d.pos += n
	return r
}

func (d *Decoder) peek(n int) []byte {
	end := d.pos + n
	if end > len(d.buf) {
		end = len(d.buf)
	}
	return d.buf[d.pos:end]
}

// Ended reports whether the decoder has consumed the whole buffer.
func (d *Decoder) Ended() bool {
	return d.pos >= len(d.buf)
}

// ReadSequence decodes values until the buffer is exhausted, as used for
// top-level AMF command/data messages ([name, transaction_id, ...]).
func (d *Decoder) ReadSequence() []*Value {
	var seq []*Value
	for !d.Ended() {
		seq = append(seq, d.ReadOne())
	}
	return seq
}

// ReadOne decodes a single AMF0-encoded value, including an embedded AMF3
// value when the AMF0-type-switch marker (0x11) is present.
func (d *Decoder) ReadOne() *Value {
	if d.Ended() {
		return Undefined()
	}

	t := d.read(1)[0]

	switch t {
	case amf0Number:
		return Number(d.readFloat64())
	case amf0Bool:
		return Boolean(d.read(1)[0] != 0x00)
	case amf0Date:
		d.read(2)
		return Date(d.readFloat64())
	case amf0String:
		return String(d.readShortString())
	case amf0XMLDoc:
		return String(d.readShortString())
	case amf0LongString:
		return String(d.readLongString())
	case amf0Object:
		return Object(d.readObjectFields())
	case amf0TypedObj:
		d.readShortString() // class name, not modeled
		return Object(d.readObjectFields())
	case amf0Ref:
		d.read(2)
		return Undefined()
	case amf0EcmaArray:
		d.read(4)
		return EcmaArray(d.readObjectFields())
	case amf0StrictArr:
		return StrictArray(d.readStrictArrayItems())
	case amf0Null:
		return Null()
	case amf0Undefined:
		return Undefined()
	case amf0SwitchAMF3:
		v, _ := DecodeAMF3(d.buf[d.pos:])
		// AMF3 values embedded inside an AMF0 stream are decoded scalar-only
		// (see amf3.go). The rest of the buffer is skipped, so no value after
		// an embedded AMF3 value is decoded.
		d.pos = len(d.buf)
		return v
	}

	return Undefined()
}

func (d *Decoder) readFloat64() float64 {
	b := d.read(8)
	if len(b) < 8 {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func (d *Decoder) readShortString() string {
	lb := d.read(2)
	if len(lb) < 2 {
		return ""
	}
	l := binary.BigEndian.Uint16(lb)
	return string(d.read(int(l)))
}

func (d *Decoder) readLongString() string {
	lb := d.read(4)
	if len(lb) < 4 {
		return ""
	}
	l := binary.BigEndian.Uint32(lb)
	return string(d.read(int(l)))
}

func (d *Decoder) readObjectFields() map[string]*Value {
	o := make(map[string]*Value)

	for !d.Ended() && d.peek(1)[0] != objectTerm {
		name := d.readShortString()

		if d.Ended() || d.peek(1)[0] == objectTerm {
			break
		}

		o[name] = d.ReadOne()
	}

	if !d.Ended() && d.peek(1)[0] == objectTerm {
		d.read(1)
	}

	return o
}

func (d *Decoder) readStrictArrayItems() []*Value {
	lb := d.read(4)
	if len(lb) < 4 {
		return nil
	}
	l := binary.BigEndian.Uint32(lb)

	items := make([]*Value, 0, l)
	for i := uint32(0); i < l && !d.Ended(); i++ {
		items = append(items, d.ReadOne())
	}
	return items
}
