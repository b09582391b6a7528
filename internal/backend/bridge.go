// Package backend implements the local-domain-socket client shared by both
// daemons for talking to the per-protocol/per-stream backend processes.
package backend

import (
	"net"
	"time"
)

// Bridge is a non-blocking, spool-based client for one backend domain
// socket connection: writes go straight to the socket, reads are pulled in
// with a bounded deadline and accumulated into an in-memory spool so a
// caller can poll for "do I have a complete unit yet" without blocking the
// rest of its worker.
type Bridge struct {
	conn  net.Conn
	spool []byte
}

// Dial opens a new connection to a unix domain socket at path.
func Dial(path string) (*Bridge, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	return &Bridge{conn: conn}, nil
}

// Connected reports whether the Bridge holds a connection. A Bridge whose
// connection errored or closed still reports true; the caller is expected
// to drop and recreate it.
func (b *Bridge) Connected() bool {
	return b != nil && b.conn != nil
}

// Write sends p to the backend immediately.
func (b *Bridge) Write(p []byte) error {
	_, err := b.conn.Write(p)
	return err
}

// PollRead attempts one non-blocking-style read (bounded by timeout),
// appending whatever arrived to the spool. Returns the number of bytes
// read this attempt; 0 with a nil error means "nothing yet, keep polling".
// A read deadline timeout is not treated as an error.
func (b *Bridge) PollRead(timeout time.Duration) (int, error) {
	if err := b.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}

	buf := make([]byte, 16*1024)
	n, err := b.conn.Read(buf)

	if n > 0 {
		b.spool = append(b.spool, buf[:n]...)
	}

	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, nil
		}
		return n, err
	}

	return n, nil
}

// Spool returns the bytes accumulated so far and not yet consumed.
func (b *Bridge) Spool() []byte {
	return b.spool
}

// Consume drops the first n bytes of the spool, e.g. after a complete
// response head has been parsed out of it.
func (b *Bridge) Consume(n int) {
	if n >= len(b.spool) {
		b.spool = b.spool[:0]
		return
	}
	b.spool = b.spool[n:]
}

// ResetSpool discards all spooled bytes.
func (b *Bridge) ResetSpool() {
	b.spool = b.spool[:0]
}

// Raw returns the underlying connection, e.g. to hand off ownership when
// detaching a streaming response body from the pool.
func (b *Bridge) Raw() net.Conn {
	return b.conn
}

// Close closes the underlying connection.
func (b *Bridge) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
