package rtmp

import (
	"bufio"
	"net"
	"testing"
	"time"
)

func TestBasicHeaderSmallChunkID(t *testing.T) {
	h := basicHeader(ChunkType0, 3)
	if len(h) != 1 || h[0] != byte(ChunkType0<<6)|3 {
		t.Fatalf("unexpected basic header: %v", h)
	}
}

func TestBasicHeaderMidRangeChunkID(t *testing.T) {
	h := basicHeader(ChunkType0, 100)
	if len(h) != 2 {
		t.Fatalf("expected a 2-byte basic header for a mid-range chunk id, got %v", h)
	}
}

func TestCreateChunksAndReadChunkRoundTrip(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}

	p := &Packet{
		Header: PacketHeader{
			Fmt:       ChunkType0,
			ChunkID:   4,
			Type:      TypeVideo,
			StreamID:  1,
			Length:    uint32(len(payload)),
			Timestamp: 1000,
		},
		Payload: payload,
	}

	encoded := p.CreateChunks(128)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		clientConn.Write(encoded) //nolint:errcheck
	}()

	d := NewDemuxer()
	r := bufio.NewReader(serverConn)

	var got *Packet
	for got == nil {
		pkt, _, err := d.ReadChunk(serverConn, r, time.Second)
		if err != nil {
			t.Fatalf("ReadChunk returned error: %v", err)
		}
		got = pkt
	}

	<-done

	if got.Header.Type != TypeVideo || got.Header.StreamID != 1 {
		t.Fatalf("unexpected header: %+v", got.Header)
	}
	if len(got.Payload) != len(payload) {
		t.Fatalf("expected %d payload bytes, got %d", len(payload), len(got.Payload))
	}
	for i := range payload {
		if got.Payload[i] != payload[i] {
			t.Fatalf("payload mismatch at byte %d", i)
		}
	}
}
