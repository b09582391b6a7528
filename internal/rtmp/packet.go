package rtmp

import "encoding/binary"

// PacketHeader carries the metadata of one completed RTMP message.
type PacketHeader struct {
	Timestamp int64
	Fmt       uint32
	ChunkID   uint32
	Type      uint32
	StreamID  uint32
	Length    uint32
}

// Packet is a fully reassembled (or in-progress) RTMP message: header plus
// payload, along with the bookkeeping the chunk demultiplexer needs to
// reassemble a message split across multiple chunks.
type Packet struct {
	Header PacketHeader

	Clock int64 // running timestamp base, for extended-timestamp chunks

	capacity uint32
	received uint32 // bytes of payload accumulated so far

	Payload []byte
}

func blankPacket() *Packet {
	return &Packet{Payload: []byte{}}
}

// Complete reports whether the packet has accumulated its full payload.
func (p *Packet) Complete() bool {
	return p.received >= p.Header.Length
}

func basicHeader(fmtID uint32, chunkID uint32) []byte {
	switch {
	case chunkID >= 64+255:
		return []byte{
			byte(fmtID<<6) | 1,
			byte((chunkID - 64) & 0xff),
			byte((chunkID - 64) >> 8 & 0xff),
		}
	case chunkID >= 64:
		return []byte{byte(fmtID << 6), byte((chunkID - 64) & 0xff)}
	default:
		return []byte{byte(fmtID<<6) | byte(chunkID)}
	}
}

func messageHeader(p *Packet) []byte {
	var out []byte

	if p.Header.Fmt <= ChunkType2 {
		b := make([]byte, 4)
		if p.Header.Timestamp >= 0xffffff {
			binary.BigEndian.PutUint32(b, 0xffffff)
		} else {
			binary.BigEndian.PutUint32(b, uint32(p.Header.Timestamp))
		}
		out = append(out, b[1:]...)
	}

	if p.Header.Fmt <= ChunkType1 {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, p.Header.Length)
		out = append(out, b[1:]...)
		out = append(out, byte(p.Header.Type))
	}

	if p.Header.Fmt == ChunkType0 {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, p.Header.StreamID)
		out = append(out, b...)
	}

	return out
}

// CreateChunks fragments the packet's payload into a chunk-type-0(or set
// fmt)-then-type-3 stream of at most outChunkSize payload bytes per chunk.
func (p *Packet) CreateChunks(outChunkSize int) []byte {
	hdr0 := basicHeader(p.Header.Fmt, p.Header.ChunkID)
	hdr3 := basicHeader(ChunkType3, p.Header.ChunkID)
	msgHdr := messageHeader(p)

	useExtendedTS := p.Header.Timestamp >= 0xffffff

	headerSize := len(hdr0) + len(msgHdr)
	if useExtendedTS {
		headerSize += 4
	}

	payloadSize := int(p.Header.Length)
	n := headerSize + payloadSize + payloadSize/outChunkSize
	if useExtendedTS {
		n += (payloadSize / outChunkSize) * 4
	}
	if payloadSize%outChunkSize == 0 {
		n--
		if useExtendedTS {
			n -= 4
		}
	}

	out := make([]byte, n)
	offset := 0

	copy(out[offset:], hdr0)
	offset += len(hdr0)

	copy(out[offset:], msgHdr)
	offset += len(msgHdr)

	if useExtendedTS {
		binary.BigEndian.PutUint32(out[offset:offset+4], uint32(p.Header.Timestamp))
		offset += 4
	}

	payloadOffset := 0
	remaining := payloadSize

	for remaining > 0 {
		if remaining > outChunkSize {
			copy(out[offset:], p.Payload[payloadOffset:payloadOffset+outChunkSize])
			offset += outChunkSize
			payloadOffset += outChunkSize
			remaining -= outChunkSize

			copy(out[offset:], hdr3)
			offset += len(hdr3)
			if useExtendedTS {
				binary.BigEndian.PutUint32(out[offset:offset+4], uint32(p.Header.Timestamp))
				offset += 4
			}
		} else {
			copy(out[offset:], p.Payload[payloadOffset:payloadOffset+remaining])
			offset += remaining
			payloadOffset += remaining
			remaining = 0
		}
	}

	return out
}
