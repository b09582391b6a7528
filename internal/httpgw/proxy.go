package httpgw

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brasswatch/streamconnector/internal/logging"
)

const pollInterval = 5 * time.Millisecond
const pollIterations = 4000 // ~20s at pollInterval

const serverHeader = "mistserver/1.0/streamconnector"

// Proxy forwards requests to the per-tag backend via a shared Pool (§4.3).
type Proxy struct {
	pool *Pool
}

// NewProxy wraps pool for proxied requests.
func NewProxy(pool *Pool) *Proxy {
	return &Proxy{pool: pool}
}

// Forward proxies req through the pooled backend connection identified by
// fingerprint/tag, writing a response (or a 504 page) to w.
func (p *Proxy) Forward(w http.ResponseWriter, req *http.Request, fingerprint string, tag Tag, remoteHost string) {
	e, err := p.pool.acquire(fingerprint, tag)
	if err != nil {
		logging.Error(err)
		writeGatewayTimeout(w)
		return
	}

	e.inUse.Lock()
	defer e.inUse.Unlock()

	if !e.connected() {
		writeGatewayTimeout(w)
		return
	}

	req.Header.Set("X-UID", fingerprint)
	req.Header.Set("X-Origin", remoteHost)

	raw, err := serializeRequest(req)
	if err != nil {
		logging.Error(err)
		writeGatewayTimeout(w)
		return
	}

	if err := e.bridge.Write(raw); err != nil {
		logging.Error(err)
		writeGatewayTimeout(w)
		return
	}
	e.lastUseTicks = 0

	headEnd, err := pollForResponseHead(e.bridge)
	if err != nil {
		logging.Error(err)
		writeGatewayTimeout(w)
		return
	}

	spooled := e.bridge.Spool()
	head := spooled[:headEnd]
	leftoverBody := spooled[headEnd:]
	e.bridge.ResetSpool()

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(head)), req)
	if err != nil {
		logging.Error(err)
		writeGatewayTimeout(w)
		return
	}
	resp.Body.Close() //nolint:errcheck

	out := w.Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	out.Set("X-UID", fingerprint)
	out.Set("Server", serverHeader)

	body := io.MultiReader(bytes.NewReader(leftoverBody), e.bridge.Raw())

	if resp.ContentLength >= 0 {
		w.WriteHeader(resp.StatusCode)
		io.CopyN(w, body, resp.ContentLength) //nolint:errcheck
		return
	}

	// Unknown length: ship the headers, then detach the socket from the
	// pool (an empty bridge takes its place in the entry so the sweep
	// cleans it up) and
	// pump bytes verbatim until either side closes.
	w.WriteHeader(resp.StatusCode)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	p.pool.detach(fingerprint)
	io.Copy(w, body) //nolint:errcheck
}

// pollForResponseHead polls the backend socket non-blockingly until the
// response head (headers terminated by a blank line) is fully buffered, or
// pollIterations pass (§4.3 step 4, §5). Returns the offset of the first
// byte past the blank line.
func pollForResponseHead(b interface {
	PollRead(time.Duration) (int, error)
	Spool() []byte
}) (int, error) {
	for i := 0; i < pollIterations; i++ {
		// PollRead itself waits up to pollInterval when nothing arrives.
		if _, err := b.PollRead(pollInterval); err != nil {
			return 0, err
		}

		if idx := bytes.Index(b.Spool(), []byte("\r\n\r\n")); idx >= 0 {
			return idx + 4, nil
		}
	}
	return 0, fmt.Errorf("httpgw: backend did not respond within %s", pollInterval*pollIterations)
}

func serializeRequest(req *http.Request) ([]byte, error) {
	var buf bytes.Buffer
	if err := req.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeGatewayTimeout(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusGatewayTimeout)
	w.Write([]byte("<html><body><h1>504 Gateway Timeout</h1></body></html>")) //nolint:errcheck
}
