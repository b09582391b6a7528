package amf

import (
	"encoding/binary"
	"math"
)

// AMF3 support is scalar-only: §4.7 of the connector spec only dispatches
// AMF3 command messages (type 17) whose payload starts with a zero byte, and
// decodes the rest of that payload as AMF0; a "bare" AMF3 command is logged,
// never acted on, so object/array/traits decoding is not needed here.
const (
	amf3Undefined = 0x00
	amf3Null      = 0x01
	amf3False     = 0x02
	amf3True      = 0x03
	amf3Integer   = 0x04
	amf3Double    = 0x05
	amf3String    = 0x06
	amf3XMLDoc    = 0x07
	amf3Date      = 0x08
	amf3Array     = 0x09
	amf3Object    = 0x0A
	amf3XML       = 0x0B
	amf3ByteArray = 0x0C
)

// DecodeAMF3 decodes one scalar AMF3 value from buf, returning the value and
// the number of bytes consumed. Object/array markers are recognized but
// decode to Undefined, since no in-scope command uses them.
func DecodeAMF3(buf []byte) (*Value, int) {
	if len(buf) == 0 {
		return Undefined(), 0
	}

	pos := 1
	switch buf[0] {
	case amf3Null:
		return Null(), pos
	case amf3False:
		return Boolean(false), pos
	case amf3True:
		return Boolean(true), pos
	case amf3Integer:
		n, used := decodeUI29(buf[pos:])
		return Number(float64(int32(n))), pos + used
	case amf3Double:
		if pos+8 > len(buf) {
			return Number(0), len(buf)
		}
		f := math.Float64frombits(binary.BigEndian.Uint64(buf[pos : pos+8]))
		return Number(f), pos + 8
	case amf3Date:
		_, used := decodeUI29(buf[pos:])
		pos += used
		if pos+8 > len(buf) {
			return Date(0), len(buf)
		}
		f := math.Float64frombits(binary.BigEndian.Uint64(buf[pos : pos+8]))
		return Date(f), pos + 8
	case amf3String, amf3XMLDoc, amf3XML:
		s, used := decodeAMF3String(buf[pos:])
		return String(s), pos + used
	case amf3ByteArray:
		b, used := decodeAMF3ByteArray(buf[pos:])
		return String(string(b)), pos + used
	}

	return Undefined(), pos
}

func decodeUI29(buf []byte) (uint32, int) {
	var val uint32
	var n int
	var b byte

	for n = 0; n < 4 && n < len(buf); n++ {
		b = buf[n]
		val = (val << 7) | uint32(b&0x7F)
		if b <= 0x7F {
			n++
			break
		}
	}

	if n == 4 {
		val = (val << 1) | uint32(b)
	}

	return val, n
}

func decodeAMF3String(buf []byte) (string, int) {
	l, used := decodeUI29(buf)
	length := int(l >> 1) // low bit is the inline/reference flag; references are not modeled
	end := used + length
	if end > len(buf) {
		end = len(buf)
	}
	return string(buf[used:end]), end
}

func decodeAMF3ByteArray(buf []byte) ([]byte, int) {
	l, used := decodeUI29(buf)
	length := int(l >> 1)
	end := used + length
	if end > len(buf) {
		end = len(buf)
	}
	return buf[used:end], end
}

func encodeUI29(v uint32) []byte {
	v &= 0x3FFFFFFF

	switch {
	case v < 0x80:
		return []byte{byte(v)}
	case v < 0x4000:
		return []byte{byte(v>>7) | 0x80, byte(v & 0x7F)}
	case v < 0x200000:
		return []byte{byte(v>>14) | 0x80, byte(v>>7) | 0x80, byte(v & 0x7F)}
	default:
		return []byte{byte(v>>22) | 0x80, byte(v>>15) | 0x80, byte(v>>8) | 0x80, byte(v)}
	}
}

// EncodeAMF3 serializes a scalar value using the AMF3 wire format.
func EncodeAMF3(v *Value) []byte {
	if v == nil {
		return []byte{amf3Undefined}
	}

	switch v.typ {
	case TypeNull:
		return []byte{amf3Null}
	case TypeUndefined:
		return []byte{amf3Undefined}
	case TypeBoolean:
		if v.b {
			return []byte{amf3True}
		}
		return []byte{amf3False}
	case TypeNumber:
		i := int32(v.num)
		if float64(i) == v.num && i >= -268435456 && i <= 268435455 {
			return append([]byte{amf3Integer}, encodeUI29(uint32(i)&0x3FFFFFFF)...)
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(v.num))
		return append([]byte{amf3Double}, b...)
	case TypeDate:
		b := append([]byte{amf3Date}, encodeUI29(1)...)
		d := make([]byte, 8)
		binary.BigEndian.PutUint64(d, math.Float64bits(v.num))
		return append(b, d...)
	case TypeString:
		raw := []byte(v.str)
		b := append([]byte{amf3String}, encodeUI29(uint32(len(raw))<<1)...)
		return append(b, raw...)
	}

	return []byte{amf3Undefined}
}
