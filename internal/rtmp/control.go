package rtmp

import "encoding/binary"

// The protocol control messages below are always 1 chunk, chunk-stream 2,
// stream id 0 — small enough that building the raw bytes directly reads
// more clearly than round-tripping through Packet.CreateChunks.

// EncodeAck builds a type-3 Acknowledgement message.
func EncodeAck(size uint32) []byte {
	b := []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	binary.BigEndian.PutUint32(b[12:16], size)
	return b
}

// EncodeWindowAckSize builds a type-5 Window Acknowledgement Size message.
func EncodeWindowAckSize(size uint32) []byte {
	b := []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	binary.BigEndian.PutUint32(b[12:16], size)
	return b
}

// EncodeSetPeerBandwidth builds a type-6 Set Peer Bandwidth message.
func EncodeSetPeerBandwidth(size uint32, limitType byte) []byte {
	b := []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05, 0x06, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	binary.BigEndian.PutUint32(b[12:16], size)
	b[16] = limitType
	return b
}

// EncodeSetChunkSize builds a type-1 Set Chunk Size message.
func EncodeSetChunkSize(size uint32) []byte {
	b := []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	binary.BigEndian.PutUint32(b[12:16], size)
	return b
}

// EncodeUserControl builds a type-4 User Control message carrying a 2-byte
// event type and a 4-byte event id (StreamBegin, StreamEOF, ...).
func EncodeUserControl(event uint16, id uint32) []byte {
	b := []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x06, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	binary.BigEndian.PutUint16(b[12:14], event)
	binary.BigEndian.PutUint32(b[14:18], id)
	return b
}

// EncodePingRequest builds a User Control "PingRequest" (event type 6)
// event message carrying the session's uptime in milliseconds, addressed on
// the protocol control chunk stream with a type-0 chunk header.
func EncodePingRequest(uptimeMs int64, outChunkSize int) []byte {
	p := &Packet{
		Header: PacketHeader{
			Fmt:       ChunkType0,
			ChunkID:   ChannelProtocol,
			Type:      TypeUserControl,
			Timestamp: uptimeMs,
		},
		Payload: []byte{
			0, 6,
			byte(uptimeMs >> 24), byte(uptimeMs >> 16), byte(uptimeMs >> 8), byte(uptimeMs),
		},
	}
	p.Header.Length = uint32(len(p.Payload))
	return p.CreateChunks(outChunkSize)
}

// EncodeInvoke wraps an AMF0 command payload into chunk-stream-3 (command
// channel) chunks addressed to streamID.
func EncodeInvoke(streamID uint32, payload []byte, outChunkSize int) []byte {
	return EncodeCommandReply(TypeInvoke, streamID, payload, outChunkSize)
}

// EncodeCommandReply wraps a command payload for the reply to an incoming
// command message, preserving its originating message type (so a message
// that arrived as type 17 / AMF3 gets a leading zero byte and is echoed
// back as type 17, per §4.8's "All replies are ... prefixed with a zero
// byte when the originating message type is 17") and is always sent on
// chunk-stream 3.
func EncodeCommandReply(msgType uint32, streamID uint32, payload []byte, outChunkSize int) []byte {
	if msgType == TypeFlexMessage {
		payload = append([]byte{0x00}, payload...)
	}

	p := &Packet{
		Header: PacketHeader{
			Fmt:      ChunkType0,
			ChunkID:  ChannelInvoke,
			Type:     msgType,
			StreamID: streamID,
			Length:   uint32(len(payload)),
		},
		Payload: payload,
	}
	return p.CreateChunks(outChunkSize)
}

// EncodeDataChunks wraps an AMF data-message payload into data-channel
// chunks addressed to streamID, with the given RTMP timestamp.
func EncodeDataChunks(streamID uint32, payload []byte, timestamp int64, outChunkSize int) []byte {
	p := &Packet{
		Header: PacketHeader{
			Fmt:       ChunkType0,
			ChunkID:   ChannelData,
			Type:      TypeData,
			StreamID:  streamID,
			Length:    uint32(len(payload)),
			Timestamp: timestamp,
		},
		Payload: payload,
	}
	return p.CreateChunks(outChunkSize)
}

// EncodeMediaChunks wraps an audio/video payload into the matching media
// channel's chunks addressed to streamID with the given timestamp.
func EncodeMediaChunks(msgType uint32, streamID uint32, payload []byte, timestamp int64, outChunkSize int) []byte {
	channel := uint32(ChannelVideo)
	if msgType == TypeAudio {
		channel = ChannelAudio
	}

	p := &Packet{
		Header: PacketHeader{
			Fmt:       ChunkType0,
			ChunkID:   channel,
			Type:      msgType,
			StreamID:  streamID,
			Length:    uint32(len(payload)),
			Timestamp: timestamp,
		},
		Payload: payload,
	}
	return p.CreateChunks(outChunkSize)
}
