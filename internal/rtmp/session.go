package rtmp

import (
	"bufio"
	"encoding/binary"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brasswatch/streamconnector/internal/amf"
	"github.com/brasswatch/streamconnector/internal/backend"
	"github.com/brasswatch/streamconnector/internal/ipaccess"
	"github.com/brasswatch/streamconnector/internal/logging"
	"github.com/brasswatch/streamconnector/internal/rtmp/callback"
	"github.com/brasswatch/streamconnector/internal/rtmp/coordinator"
)

const readTimeout = PingTimeoutMs * time.Millisecond
const publishBatchSize = 8

// pendingPlayReply captures the reply coordinates of a play/play2/seek
// command until the backend's first frame arrives (§4.8, §4.9 step 3).
type pendingPlayReply struct {
	transactionID float64
	msgType       uint32
	streamID      uint32
}

// Session is one RTMP client connection: handshake, chunk demultiplexing,
// AMF command dispatch, and the play/publish pumps bridging it to a
// backend over a local domain socket.
type Session struct {
	conn net.Conn
	id   uint64
	ip   string

	writeMu sync.Mutex

	demux        *Demuxer
	outChunkSize uint32

	recWindowSize uint32
	recWindowAt   uint64
	sndWindowAt   uint32
	sndWindowSize uint32

	objectEncoding float64
	connectTime    time.Time

	channel  string
	key      string
	streamID string

	connected    bool
	publishing   bool
	playing      bool
	paused       bool
	readyForData bool
	streamInited bool
	stopParsing  bool

	publishStreamID uint32
	playStreamID    uint32

	publishBackend *backend.Stream
	playBackend    *backend.Stream
	playDone       chan struct{}

	pendingPlay *pendingPlayReply

	publishBuf     []*backend.Frame
	publishMeta    *backend.Metadata
	publishCount   int
	publishFlushed bool

	coordinator *coordinator.Client
	host        string
	port        int

	stopped bool
}

// NewSession wraps an accepted connection in a Session, ready for Run.
func NewSession(conn net.Conn, id uint64, ip string, outChunkSize uint32, coord *coordinator.Client, host string, port int) *Session {
	return &Session{
		conn:          conn,
		id:            id,
		ip:            ip,
		demux:         NewDemuxer(),
		outChunkSize:  outChunkSize,
		coordinator:   coord,
		host:          host,
		port:          port,
		publishMeta:   &backend.Metadata{},
		recWindowSize: DefaultWindowAckSize,
	}
}

func (s *Session) logDebug(line string) {
	logging.DebugSession(s.id, s.ip+": "+line)
}

// Send writes raw bytes to the client, serialized against concurrent
// writers (the inbound loop and the play pump both produce output).
func (s *Session) Send(b []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.Write(b) //nolint:errcheck
}

// Close tears down the backend connection, if any, and the client socket.
func (s *Session) Close() {
	if s.publishing && s.publishBackend != nil {
		s.notifyPublishEnd()
	}
	if s.publishBackend != nil {
		s.publishBackend.Close()
	}
	s.stopPlayPump()
	s.conn.Close()
}

// Run performs the handshake and then reads chunks until the connection
// fails or a protocol violation sets stopParsing.
func (s *Session) Run() {
	r := bufio.NewReader(s.conn)

	if err := s.handshake(r); err != nil {
		s.logDebug("handshake failed: " + err.Error())
		return
	}

	for !s.stopParsing {
		packet, _, err := s.demux.ReadChunk(s.conn, r, readTimeout)
		if err != nil {
			return
		}
		if packet == nil {
			continue
		}

		if s.recWindowSize > 0 && s.demux.Received-s.recWindowAt > uint64(s.recWindowSize) {
			s.recWindowAt = s.demux.Received
			s.Send(EncodeAck(uint32(s.demux.Received)))
		}

		if !s.handlePacket(packet) {
			return
		}
	}
}

func (s *Session) handshake(r *bufio.Reader) error {
	c0c1 := make([]byte, 1+HandshakeSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return err
	}
	if _, err := readFullInto(r, c0c1); err != nil {
		return err
	}

	s0s1s2 := GenerateS0S1S2(c0c1[1:])
	if _, err := s.conn.Write(s0s1s2); err != nil {
		return err
	}

	c2 := make([]byte, HandshakeSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return err
	}
	_, err := readFullInto(r, c2)
	return err
}

func readFullInto(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Session) handlePacket(p *Packet) bool {
	switch p.Header.Type {
	case TypeSetChunkSize:
		s.demux.InChunkSize = binary.BigEndian.Uint32(p.Payload[0:4])
	case TypeAbort:
		// ignored
	case TypeAcknowledgement:
		s.sndWindowAt = binary.BigEndian.Uint32(p.Payload[0:4])
	case TypeUserControl:
		s.logDebug("user control event")
	case TypeWindowAckSize:
		s.recWindowSize = binary.BigEndian.Uint32(p.Payload[0:4])
		s.recWindowAt = s.demux.Received
		s.Send(EncodeAck(uint32(s.demux.Received)))
	case TypeSetPeerBandwidth:
		peerWindow := binary.BigEndian.Uint32(p.Payload[0:4])
		s.sndWindowSize = peerWindow
		s.Send(EncodeWindowAckSize(peerWindow))
	case TypeAudio:
		s.handleMedia(p)
	case TypeVideo:
		s.handleMedia(p)
	case TypeFlexMessage:
		return s.handleInvoke(p, true)
	case TypeInvoke:
		return s.handleInvoke(p, false)
	case TypeData:
		s.handleMedia(p)
	case TypeFlexStream, TypeFlexObject:
		// AMF3 data / shared-object messages carry no defined reply path;
		// only the AMF3 command type (17) is dispatched (§4.8).
		s.logDebug("amf3 data/shared-object message (logged only)")
	case TypeSharedObject, TypeAggregate:
		// ignored
	default:
		s.stopParsing = true
	}
	return true
}

func (s *Session) handleInvoke(p *Packet, amf3 bool) bool {
	payload := p.Payload
	if amf3 {
		if len(payload) == 0 || payload[0] != 0x00 {
			s.logDebug("amf3 command without leading zero byte (logged only)")
			return true
		}
		payload = payload[1:]
	}

	cmd := DecodeCommand(payload)
	s.logDebug("invoke: " + cmd.Name)

	msgType := uint32(TypeInvoke)
	if amf3 {
		msgType = TypeFlexMessage
	}

	switch cmd.Name {
	case "connect":
		s.handleConnect(cmd, msgType, p.Header.StreamID)
	case "createStream":
		s.handleCreateStream(cmd, msgType, p.Header.StreamID)
	case "closeStream", "deleteStream":
		s.handleCloseStream()
	case "getStreamLength", "getMovLen":
		s.replyNumber(cmd, msgType, p.Header.StreamID, 0)
	case "publish":
		s.handlePublish(cmd, p.Header.StreamID)
	case "checkBandwidth":
		s.replyNull(cmd, msgType, p.Header.StreamID)
	case "play", "play2":
		s.handlePlay(cmd, msgType, p.Header.StreamID)
	case "seek":
		s.handleSeek(cmd, msgType, p.Header.StreamID)
	case "pause", "pauseRaw":
		s.handlePause(cmd)
	default:
		s.logDebug("unhandled command: " + cmd.Name)
	}

	return true
}

func (s *Session) replyNumber(cmd *Command, msgType uint32, streamID uint32, value float64) {
	payload := EncodeCommand("_result", cmd.TransactionID, amf.Null(), amf.Number(value))
	s.Send(EncodeCommandReply(msgType, streamID, payload, int(s.outChunkSize)))
}

func (s *Session) replyNull(cmd *Command, msgType uint32, streamID uint32) {
	payload := EncodeCommand("_result", cmd.TransactionID, amf.Null())
	s.Send(EncodeCommandReply(msgType, streamID, payload, int(s.outChunkSize)))
}

func (s *Session) sendStatus(msgType uint32, streamID uint32, level, code, description string) {
	payload := EncodeCommand("onStatus", 0, amf.Null(), StatusObject(level, code, description))
	s.Send(EncodeCommandReply(msgType, streamID, payload, int(s.outChunkSize)))
}

func (s *Session) handleConnect(cmd *Command, msgType uint32, streamID uint32) {
	cmdObj := cmd.Arg(2)
	s.channel = cmdObj.Prop("app").Str()
	s.objectEncoding = cmdObj.Prop("objectEncoding").Float()
	hasObjectEncoding := !cmdObj.Prop("objectEncoding").IsUndefined()
	s.connectTime = time.Now()
	s.connected = true

	logging.Request(s.id, s.ip, "CONNECT '"+s.channel+"'")

	s.Send(EncodeSetChunkSize(ConnectSendChunkSize))
	s.outChunkSize = ConnectSendChunkSize
	s.Send(EncodeWindowAckSize(DefaultWindowAckSize))
	s.Send(EncodeSetPeerBandwidth(DefaultWindowAckSize, 2))
	s.Send(EncodeUserControl(UserControlStreamBegin, FixedStreamID))

	serverProps := amf.Object(map[string]*amf.Value{
		"fmsVer":       amf.String("FMS/3,0,1,123"),
		"capabilities": amf.Number(31),
		"mode":         amf.Number(1),
	})

	infoFields := map[string]*amf.Value{
		"level":       amf.String("status"),
		"code":        amf.String("NetConnection.Connect.Success"),
		"clientid":    amf.Number(1337),
	}
	if hasObjectEncoding {
		infoFields["objectEncoding"] = amf.Number(s.objectEncoding)
	} else {
		infoFields["objectEncoding"] = amf.Undefined()
	}

	payload := EncodeCommand("_result", cmd.TransactionID, serverProps, amf.Object(infoFields))
	s.Send(EncodeCommandReply(msgType, streamID, payload, int(s.outChunkSize)))
}

func (s *Session) handleCreateStream(cmd *Command, msgType uint32, streamID uint32) {
	s.replyNumber(cmd, msgType, streamID, FixedStreamID)
	s.Send(EncodeUserControl(UserControlStreamBegin, FixedStreamID))
}

func (s *Session) handlePublish(cmd *Command, streamID uint32) {
	if !s.connected {
		return
	}

	name := strings.SplitN(cmd.Arg(3).Str(), "?", 2)[0]
	if name == "" {
		return
	}

	s.key = name
	s.publishStreamID = streamID

	if s.publishing {
		s.sendStatus(TypeInvoke, streamID, "error", "NetStream.Publish.BadConnection", "Connection already publishing")
		return
	}

	logging.Request(s.id, s.ip, "PUBLISH ("+strconv.Itoa(int(streamID))+") '"+s.channel+"'")

	if s.coordinator != nil && s.coordinator.Enabled() {
		accepted, sid := s.coordinator.RequestPublish(s.channel, s.key, s.ip)
		if !accepted {
			s.sendStatus(TypeInvoke, streamID, "error", "NetStream.Publish.BadName", "Invalid stream key provided")
			return
		}
		s.streamID = sid
	} else {
		accepted, sid := callback.StartEvent(s.channel, s.key, s.ip, s.host, s.port)
		if !accepted {
			s.sendStatus(TypeInvoke, streamID, "error", "NetStream.Publish.BadName", "Invalid stream key provided")
			return
		}
		s.streamID = sid
	}

	stream, err := backend.OpenStream(sanitizeStreamName(s.key))
	if err != nil {
		s.logDebug("could not reach backend: " + err.Error())
		s.sendStatus(TypeInvoke, streamID, "error", "NetStream.Publish.BadName", "Stream unavailable")
		return
	}
	if err := stream.RequestPublish(s.ip); err != nil {
		s.logDebug("could not open publish session: " + err.Error())
		return
	}

	s.publishBackend = stream
	s.publishing = true

	s.sendStatus(TypeInvoke, streamID, "status", "NetStream.Publish.Start", "/"+s.channel+"/"+s.key+" is now published.")
}

func (s *Session) handlePlay(cmd *Command, msgType uint32, streamID uint32) {
	if !s.connected {
		return
	}

	name := strings.SplitN(cmd.Arg(3).Str(), "?", 2)[0]
	if name == "" {
		return
	}
	s.key = name
	s.playStreamID = streamID

	if s.playing {
		s.sendStatus(msgType, streamID, "error", "NetStream.Play.BadConnection", "Connection already playing")
		return
	}

	if !ipaccess.AllowedByRangeList("RTMP_PLAY_WHITELIST", s.ip) {
		s.sendStatus(msgType, streamID, "error", "NetStream.Play.BadName", "Your net address is not whitelisted for playing")
		return
	}

	logging.Request(s.id, s.ip, "PLAY ("+strconv.Itoa(int(streamID))+") '"+s.channel+"'")

	s.pendingPlay = &pendingPlayReply{transactionID: cmd.TransactionID, msgType: msgType, streamID: streamID}
	s.readyForData = true
	s.playing = true

	s.startPlayPump()
}

func (s *Session) handleSeek(cmd *Command, msgType uint32, streamID uint32) {
	if !s.playing || s.playBackend == nil {
		return
	}

	s.pendingPlay = &pendingPlayReply{transactionID: cmd.TransactionID, msgType: msgType, streamID: streamID}
	s.streamInited = false
	s.sendStatus(msgType, streamID, "status", "NetStream.Seek.Notify", "Seeking")

	ms := int64(cmd.Arg(3).Float())
	s.playBackend.RequestSeek(ms) //nolint:errcheck
}

func (s *Session) handlePause(cmd *Command) {
	if !s.playing || s.playBackend == nil {
		return
	}

	s.paused = cmd.Arg(3).Bool()

	if s.paused {
		s.playBackend.RequestPause() //nolint:errcheck
		s.sendStatus(TypeInvoke, s.playStreamID, "status", "NetStream.Pause.Notify", "Paused live")
		logging.Request(s.id, s.ip, "PAUSE '"+s.channel+"'")
	} else {
		s.playBackend.RequestUnpause() //nolint:errcheck
		s.sendStatus(TypeInvoke, s.playStreamID, "status", "NetStream.Unpause.Notify", "Unpaused live")
		logging.Request(s.id, s.ip, "RESUME '"+s.channel+"'")
	}
}

func (s *Session) handleCloseStream() {
	if s.publishing {
		s.notifyPublishEnd()
		if s.publishBackend != nil {
			s.publishBackend.Close()
			s.publishBackend = nil
		}
		s.publishing = false
	}
	if s.playing {
		s.stopPlayPump()
		s.playing = false
		s.readyForData = false
	}
}

func (s *Session) notifyPublishEnd() {
	if s.coordinator != nil && s.coordinator.Enabled() {
		s.coordinator.PublishEnd(s.channel, s.streamID)
	} else {
		callback.StopEvent(s.channel, s.key, s.streamID, s.ip)
	}
}

// handleMedia is the publish sink: audio(8)/video(9)/data(18) chunks are
// wrapped into FLV tags and forwarded to the backend, batched per §4.9.
func (s *Session) handleMedia(p *Packet) {
	if !s.publishing || s.publishBackend == nil {
		return
	}

	tag := BuildFLVTag(p.Header.Type, p.Header.Timestamp, p.Payload)

	kind := backend.KindData
	switch p.Header.Type {
	case TypeAudio:
		kind = backend.KindAudio
		s.trackAudioInit(p.Payload, tag)
	case TypeVideo:
		kind = backend.KindVideo
		s.trackVideoInit(p.Payload, tag)
	}

	frame := &backend.Frame{Kind: kind, Timestamp: p.Header.Timestamp, Payload: tag}

	s.publishCount++
	if s.publishFlushed {
		s.publishBackend.WriteFrame(frame) //nolint:errcheck
		return
	}

	s.publishBuf = append(s.publishBuf, frame)
	if s.publishCount > publishBatchSize {
		s.flushPublishBuffer()
	}
}

func (s *Session) flushPublishBuffer() {
	s.publishFlushed = true
	s.publishBackend.WriteFrame(&backend.Frame{Kind: backend.KindMeta, Meta: s.publishMeta}) //nolint:errcheck
	for _, f := range s.publishBuf {
		s.publishBackend.WriteFrame(f) //nolint:errcheck
	}
	s.publishBuf = nil
}

func (s *Session) trackAudioInit(payload []byte, tag []byte) {
	if len(payload) < 2 {
		return
	}
	soundFormat := (payload[0] >> 4) & 0x0f
	if (soundFormat == 10 || soundFormat == 13) && payload[1] == 0 {
		s.publishMeta.Audio = &backend.CodecInit{Init: tag}
	}
}

func (s *Session) trackVideoInit(payload []byte, tag []byte) {
	if len(payload) < 2 {
		return
	}
	frameType := (payload[0] >> 4) & 0x0f
	codecID := payload[0] & 0x0f
	if (codecID == 7 || codecID == 12) && frameType == 1 && payload[1] == 0 {
		s.publishMeta.Video = &backend.CodecInit{Init: tag}
	}
}

func sanitizeStreamName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
