package backend

import (
	"fmt"
	"time"
)

// streamSocketDir is where per-stream buffer processes listen, mirroring
// the HTTP per-protocol sockets' /tmp/mist/http_<tag> convention.
const streamSocketDir = "/tmp/mist"

// StreamPath returns the local domain socket path for a sanitized stream
// name, the "getStream" utility's address-resolution half.
func StreamPath(sanitizedStream string) string {
	return fmt.Sprintf("%s/stream_%s", streamSocketDir, sanitizedStream)
}

// Stream is a connection to a per-stream buffer process: the backend side
// of one RTMP publish or play session.
type Stream struct {
	*Bridge
}

// OpenStream dials the per-stream backend socket for a sanitized stream
// name ("getStream", §4.8/§6).
func OpenStream(sanitizedStream string) (*Stream, error) {
	b, err := Dial(StreamPath(sanitizedStream))
	if err != nil {
		return nil, err
	}
	return &Stream{Bridge: b}, nil
}

// RequestPublish tells the backend this connection is the publisher, and
// which remote host it is publishing from.
func (s *Stream) RequestPublish(remoteHost string) error {
	return s.Write([]byte("P " + remoteHost + "\n"))
}

// RequestPlay tells the backend this connection wants to receive frames.
func (s *Stream) RequestPlay() error {
	return s.Write([]byte("p\n"))
}

// RequestPause tells the backend to stop sending frames.
func (s *Stream) RequestPause() error {
	return s.Write([]byte("q\n"))
}

// RequestUnpause resumes frame delivery, using the same command as an
// initial play request.
func (s *Stream) RequestUnpause() error {
	return s.RequestPlay()
}

// RequestSeek asks the backend to seek to the given millisecond offset.
func (s *Stream) RequestSeek(ms int64) error {
	return s.Write([]byte(fmt.Sprintf("s %d\n", ms)))
}

// WriteStatsLine reports connection stats to the backend once per wall
// second, per §4.9 step 2.
func (s *Stream) WriteStatsLine(proto string, host string, connectionTime time.Duration, bytesUp uint64, bytesDown uint64) error {
	line := fmt.Sprintf("%s %s %d %d %d\n", proto, host, int64(connectionTime.Seconds()), bytesUp, bytesDown)
	return s.Write([]byte(line))
}

// ReadFrame reads the next frame from the backend, blocking until one
// arrives or the connection fails.
func (s *Stream) ReadFrame() (*Frame, error) {
	return ReadFrame(s.Raw())
}

// WriteFrame writes one frame to the backend (publish direction).
func (s *Stream) WriteFrame(f *Frame) error {
	return WriteFrame(s.Raw(), f)
}
