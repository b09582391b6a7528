package rtmp

import (
	"time"

	"github.com/brasswatch/streamconnector/internal/amf"
	"github.com/brasswatch/streamconnector/internal/backend"
)

// startPlayPump opens the backend connection for the stream named by
// s.key and starts the goroutine that turns its frames into outbound RTMP
// messages (§4.9). Failure sends a play-rejection status and clears the
// pending reply; handlePlay has already set s.playing.
func (s *Session) startPlayPump() {
	stream, err := backend.OpenStream(sanitizeStreamName(s.key))
	if err != nil {
		s.logDebug("could not reach backend: " + err.Error())
		s.rejectPendingPlay()
		return
	}
	if err := stream.RequestPlay(); err != nil {
		s.logDebug("could not open play session: " + err.Error())
		stream.Close()
		s.rejectPendingPlay()
		return
	}

	s.playBackend = stream
	s.playDone = make(chan struct{})

	go s.runPlayPump(stream, s.playDone)
}

func (s *Session) rejectPendingPlay() {
	pending := s.pendingPlay
	s.pendingPlay = nil
	s.playing = false
	s.readyForData = false
	if pending != nil {
		s.sendStatus(pending.msgType, pending.streamID, "error", "NetStream.Play.StreamNotFound", "Stream not found")
	}
}

// stopPlayPump tears down the play backend connection and waits for its
// pump goroutine to exit, if one is running. Safe to call repeatedly.
func (s *Session) stopPlayPump() {
	if s.playBackend == nil {
		return
	}
	s.playBackend.Close()
	if s.playDone != nil {
		<-s.playDone
		s.playDone = nil
	}
	s.playBackend = nil
	s.streamInited = false
}

// runPlayPump is the play direction's worker: a per-second stats line to
// the backend and a blocking read loop converting backend frames into
// RTMP media/data messages on the client connection.
func (s *Session) runPlayPump(stream *backend.Stream, done chan struct{}) {
	defer close(done)

	statsTicker := time.NewTicker(1 * time.Second)
	defer statsTicker.Stop()
	go s.statsLoop(stream, statsTicker.C, done)

	for {
		frame, err := stream.ReadFrame()
		if err != nil {
			return
		}
		if err := s.deliverFrame(frame); err != nil {
			return
		}
	}
}

func (s *Session) statsLoop(stream *backend.Stream, tick <-chan time.Time, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-tick:
			if s.publishing {
				continue
			}
			stream.WriteStatsLine("rtmp", s.ip, time.Since(s.connectTime), 0, 0) //nolint:errcheck
		}
	}
}

// deliverFrame dispatches one backend frame: the first one completes the
// deferred play reply and primes the stream with its init tags (§4.9 steps
// 3-4), every frame after that is forwarded as plain media.
func (s *Session) deliverFrame(frame *backend.Frame) error {
	if !s.streamInited {
		s.completePendingPlay(frame)
	}

	if frame.Kind == backend.KindMeta {
		return nil
	}

	tag, err := ParseFLVTag(frame.Payload)
	if err != nil {
		return nil
	}
	return s.sendMediaTag(tag)
}

// completePendingPlay runs the deferred reply sequence held since the
// play/play2/seek command (§4.8, §4.9 step 3), then sends metadata and
// codec-init tags before any frame is a real media payload.
func (s *Session) completePendingPlay(frame *backend.Frame) {
	pending := s.pendingPlay
	s.pendingPlay = nil

	if pending != nil {
		s.sendStatus(pending.msgType, pending.streamID, "status", "NetStream.Play.Reset", "Playing and resetting stream.")
		if frame.Kind == backend.KindMeta && frame.Meta != nil && frame.Meta.Length > 0 {
			s.Send(EncodeUserControl(UserControlStreamIsRecorded, pending.streamID))
		}
		s.Send(EncodeUserControl(UserControlStreamBegin, pending.streamID))
		s.sendStatus(pending.msgType, pending.streamID, "status", "NetStream.Play.Start", "Started playing stream.")

		s.Send(EncodeSetChunkSize(PlaySendChunkSize))
		s.outChunkSize = PlaySendChunkSize
		s.Send(EncodeUserControl(UserControlStreamReady, pending.streamID))
	}

	s.streamInited = true

	if frame.Kind != backend.KindMeta || frame.Meta == nil {
		return
	}

	s.sendMetadata(frame.Meta)
	if frame.Meta.Audio != nil {
		s.sendMediaTag(&FLVTag{Type: TypeAudio, Payload: frame.Meta.Audio.Init}) //nolint:errcheck
	}
	if frame.Meta.Video != nil {
		s.sendMediaTag(&FLVTag{Type: TypeVideo, Payload: frame.Meta.Video.Init}) //nolint:errcheck
	}
}

func (s *Session) sendMetadata(meta *backend.Metadata) {
	fields := make(map[string]*amf.Value, len(meta.Fields)+1)
	for k, v := range meta.Fields {
		fields[k] = amfFromAny(v)
	}
	fields["duration"] = amf.Number(meta.Length)

	payload := EncodeDataMessage("onMetaData", amf.Object(fields))
	s.Send(EncodeDataChunks(s.playStreamID, payload, 0, int(s.outChunkSize)))
}

func (s *Session) sendMediaTag(tag *FLVTag) error {
	var chunks []byte
	switch tag.Type {
	case TypeAudio, TypeVideo:
		chunks = EncodeMediaChunks(tag.Type, s.playStreamID, tag.Payload, tag.Timestamp, int(s.outChunkSize))
	case TypeData:
		chunks = EncodeDataChunks(s.playStreamID, tag.Payload, tag.Timestamp, int(s.outChunkSize))
	default:
		return nil
	}
	s.Send(chunks)
	return nil
}

// amfFromAny converts one decoded JSON value (string, float64, bool, nil,
// []any, map[string]any) into its AMF0 equivalent, for passing a backend's
// free-form metadata fields through to onMetaData.
func amfFromAny(v any) *amf.Value {
	switch t := v.(type) {
	case nil:
		return amf.Null()
	case bool:
		return amf.Boolean(t)
	case float64:
		return amf.Number(t)
	case string:
		return amf.String(t)
	case []any:
		items := make([]*amf.Value, len(t))
		for i, item := range t {
			items[i] = amfFromAny(item)
		}
		return amf.StrictArray(items)
	case map[string]any:
		fields := make(map[string]*amf.Value, len(t))
		for k, item := range t {
			fields[k] = amfFromAny(item)
		}
		return amf.Object(fields)
	default:
		return amf.Undefined()
	}
}
