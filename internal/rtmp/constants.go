// Package rtmp implements the RTMP protocol endpoint: handshake, chunk
// demultiplexing, the AMF command dispatcher, and the play/publish pumps
// that bridge a session to its backend.
package rtmp

const (
	nChunkStream       = 8
	Version            = 3
	HandshakeSize      = 1536
	maxChunkHeaderSize = 18
)

// Chunk format ids (the two high bits of the basic header's first byte).
const (
	ChunkType0 = 0 // 11 bytes: timestamp(3) + length(3) + type(1) + stream id(4)
	ChunkType1 = 1 // 7 bytes: delta(3) + length(3) + type(1)
	ChunkType2 = 2 // 3 bytes: delta(3)
	ChunkType3 = 3 // 0 bytes
)

// Reserved chunk-stream ids used for protocol/command/media separation.
const (
	ChannelProtocol = 2
	ChannelInvoke   = 3
	ChannelAudio    = 4
	ChannelVideo    = 5
	ChannelData     = 6
)

var messageHeaderSizeByFmt = [4]uint32{11, 7, 3, 0}

// Protocol control message types.
const (
	TypeSetChunkSize      = 1
	TypeAbort             = 2
	TypeAcknowledgement   = 3
	TypeUserControl       = 4
	TypeWindowAckSize     = 5
	TypeSetPeerBandwidth  = 6
	TypeAudio             = 8
	TypeVideo             = 9
	TypeFlexStream        = 15 // AMF3 data
	TypeFlexObject        = 16 // AMF3 shared object
	TypeFlexMessage       = 17 // AMF3 command
	TypeData              = 18 // AMF0 data
	TypeSharedObject      = 19 // AMF0 shared object
	TypeInvoke            = 20 // AMF0 command
	TypeAggregate         = 22
)

// User Control Message event types.
const (
	UserControlStreamBegin      = 0x00
	UserControlStreamEOF        = 0x01
	UserControlStreamDry        = 0x02
	UserControlStreamIsRecorded = 0x04
	UserControlStreamEmpty      = 0x1f
	UserControlStreamReady      = 0x20
)

// Normative constants from the connector's protocol contract (§3).
const (
	DefaultChunkSize       = 128
	ReplyChunkStream       = ChannelInvoke
	ConnectSendChunkSize   = 4096
	PlaySendChunkSize      = 102400
	DefaultWindowAckSize   = 5000000
	PingInterval           = 60000
	PingTimeoutMs          = 30000
	FixedStreamID          = 1
)
