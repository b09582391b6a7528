package rtmp

import "github.com/brasswatch/streamconnector/internal/amf"

// DataMessage is a decoded AMF0/AMF3 data message (types 18/15): an ordered
// sequence whose first element names the event ("@setDataFrame",
// "onMetaData", "|RtmpSampleAccess", ...).
type DataMessage struct {
	Tag string
	seq []*amf.Value
}

// DecodeDataMessage parses an ordered AMF0 data sequence out of payload.
func DecodeDataMessage(payload []byte) *DataMessage {
	seq := amf.NewDecoder(payload).ReadSequence()

	d := &DataMessage{}
	if len(seq) > 0 {
		d.Tag = seq[0].Str()
	}
	if len(seq) > 1 {
		d.seq = seq[1:]
	}

	return d
}

// Arg returns the i-th value following the tag, or Undefined if out of range.
func (d *DataMessage) Arg(i int) *amf.Value {
	if d == nil || i < 0 || i >= len(d.seq) {
		return amf.Undefined()
	}
	return d.seq[i]
}

// EncodeDataMessage serializes an AMF0 data message: tag, then the given
// trailing values in order.
func EncodeDataMessage(tag string, values ...*amf.Value) []byte {
	buf := amf.EncodeAMF0(amf.String(tag))
	for _, v := range values {
		buf = append(buf, amf.EncodeAMF0(v)...)
	}
	return buf
}
