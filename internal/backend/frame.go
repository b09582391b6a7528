package backend

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Kind identifies what a framed unit read from a per-stream backend
// carries: a metadata document or a media payload.
type Kind byte

const (
	KindMeta  Kind = 'M' // structured Metadata (JSON), sent in both directions
	KindAudio Kind = 'A'
	KindVideo Kind = 'V'
	KindData  Kind = 'D' // raw FLV data-tag (onMetaData etc.), connector -> backend only
)

// CodecInit holds the decoder-configuration payload ("sequence header", in
// FLV terms) for one media track, when the backend declares it up front.
type CodecInit struct {
	Init []byte `json:"init,omitempty"`
}

// Metadata is the decoded shape of a backend's metadata document: the
// fields the play pump needs (§4.9 step 3-4), plus whatever the backend
// put in the document, passed through for the outbound onMetaData object.
type Metadata struct {
	Length float64                `json:"length"`
	Audio  *CodecInit              `json:"audio,omitempty"`
	Video  *CodecInit              `json:"video,omitempty"`
	Fields map[string]any          `json:"fields,omitempty"`
}

// Frame is one unit read from or written to a per-stream backend
// connection: either a metadata document (Kind == KindMeta, Meta set) or a
// timestamped media or data payload (Kind == KindAudio/KindVideo/KindData,
// Payload set).
//
// The wire representation (1-byte kind, 4-byte big-endian timestamp,
// 4-byte big-endian length, payload) is this module's own choice for the
// boundary to an external per-stream buffer process — the internal frame
// container format itself is explicitly out of scope and treated as an
// interface only.
type Frame struct {
	Kind      Kind
	Timestamp int64
	Payload   []byte
	Meta      *Metadata
}

// WriteFrame serializes and writes one frame to w.
func WriteFrame(w io.Writer, f *Frame) error {
	payload := f.Payload
	if f.Kind == KindMeta {
		encoded, err := json.Marshal(f.Meta)
		if err != nil {
			return err
		}
		payload = encoded
	}

	header := make([]byte, 9)
	header[0] = byte(f.Kind)
	binary.BigEndian.PutUint32(header[1:5], uint32(f.Timestamp))
	binary.BigEndian.PutUint32(header[5:9], uint32(len(payload)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one frame from r, blocking until a full frame arrives.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, 9)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	kind := Kind(header[0])
	timestamp := int64(binary.BigEndian.Uint32(header[1:5]))
	length := binary.BigEndian.Uint32(header[5:9])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	f := &Frame{Kind: kind, Timestamp: timestamp}

	if kind == KindMeta {
		var meta Metadata
		if err := json.Unmarshal(payload, &meta); err != nil {
			return nil, fmt.Errorf("backend: invalid metadata frame: %w", err)
		}
		f.Meta = &meta
	} else {
		f.Payload = payload
	}

	return f, nil
}
