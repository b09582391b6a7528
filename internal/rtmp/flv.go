package rtmp

import "encoding/binary"

// BuildFLVTag wraps one audio/video message payload into a full FLV tag:
// the 11-byte tag header, the payload itself, then the 4-byte
// "previous tag size" trailer. This is the unit exchanged with a backend
// over the per-stream domain socket (§4.9) — the publish sink builds one
// per inbound media chunk, and the play pump unwraps one per outbound
// frame.
func BuildFLVTag(msgType uint32, timestamp int64, payload []byte) []byte {
	tagSize := 11 + uint32(len(payload))
	out := make([]byte, tagSize+4)

	out[0] = byte(msgType)

	lenBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBytes, uint32(len(payload)))
	out[1] = lenBytes[1]
	out[2] = lenBytes[2]
	out[3] = lenBytes[3]

	out[4] = byte(timestamp >> 16)
	out[5] = byte(timestamp >> 8)
	out[6] = byte(timestamp)
	out[7] = byte(timestamp >> 24)

	// out[8:11] is the 3-byte stream id, always 0.

	copy(out[11:], payload)

	binary.BigEndian.PutUint32(out[tagSize:], tagSize)

	return out
}

// FLVTag is one tag unwrapped from a BuildFLVTag byte slice.
type FLVTag struct {
	Type      uint32
	Timestamp int64
	Payload   []byte
}

// ParseFLVTag reads a single FLV tag (header, payload, trailer) from the
// front of b. It does not validate the trailer's previous-tag-size value.
func ParseFLVTag(b []byte) (*FLVTag, error) {
	if len(b) < 11 {
		return nil, errShortFLVTag
	}

	length := uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	if uint32(len(b)) < 11+length+4 {
		return nil, errShortFLVTag
	}

	timestamp := int64(b[4])<<16 | int64(b[5])<<8 | int64(b[6]) | int64(b[7])<<24

	return &FLVTag{
		Type:      uint32(b[0]),
		Timestamp: timestamp,
		Payload:   b[11 : 11+length],
	}, nil
}

var errShortFLVTag = flvTagError("rtmp: truncated FLV tag")

type flvTagError string

func (e flvTagError) Error() string { return string(e) }
