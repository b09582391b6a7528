package coordinator

import (
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	messages "github.com/AgustinSRG/go-simple-rpc-message"

	"github.com/brasswatch/streamconnector/internal/logging"
)

const heartbeatInterval = 20 * time.Second
const publishRequestTimeout = 5 * time.Second
const readDeadline = 60 * time.Second

// KillFunc closes every active publisher on the local instance matching
// channel (and, if non-empty, only the one whose stream id equals
// streamID), invoked after the control server orders a STREAM-KILL.
type KillFunc func(channel string, streamID string)

type pendingRequest struct {
	waiter chan publishResponse
}

type publishResponse struct {
	accepted bool
	streamID string
}

// Client is the connection to the control server that arbitrates publish
// requests across a fleet of RTMP connector instances. With no
// RTMP_COORDINATOR_URL configured, it runs in stand-alone mode: every publish
// request is accepted locally without consulting anyone.
type Client struct {
	enabled bool
	baseURL *url.URL

	onKill KillFunc

	mutex    sync.Mutex
	conn     *websocket.Conn
	pending  map[int64]*pendingRequest
	nextID   int64
	closed   bool
}

// New builds a coordinator client. Call Start to begin connecting.
func New(onKill KillFunc) *Client {
	return &Client{
		onKill:  onKill,
		pending: make(map[int64]*pendingRequest),
	}
}

// Start resolves RTMP_COORDINATOR_URL and, if set, begins the connect and
// heartbeat loops in the background. Safe to call once at startup.
func (c *Client) Start() {
	base := os.Getenv("RTMP_COORDINATOR_URL")
	if base == "" {
		logging.Info("[Coordinator] Running in stand-alone mode")
		return
	}

	u, err := url.Parse(base)
	if err != nil {
		logging.Error(err)
		return
	}

	c.enabled = true
	c.baseURL = u

	go c.connectLoop()
	go c.heartbeatLoop()
}

func (c *Client) connectLoop() {
	for {
		if c.closed {
			return
		}
		if err := c.connect(); err != nil {
			logging.Error(err)
		}
		time.Sleep(10 * time.Second)
	}
}

func (c *Client) connect() error {
	header := http.Header{}
	if token := authToken(); token != "" {
		header.Set("x-control-auth-token", token)
	}
	if ip := os.Getenv("EXTERNAL_IP"); ip != "" {
		header.Set("x-external-ip", ip)
	}
	if port := os.Getenv("EXTERNAL_PORT"); port != "" {
		header.Set("x-custom-port", port)
	}
	if os.Getenv("EXTERNAL_SSL") == "YES" {
		header.Set("x-ssl-use", "YES")
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.baseURL.String(), header)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	c.conn = conn
	c.mutex.Unlock()

	logging.Info("[Coordinator] Connected to control server")

	c.readLoop(conn)
	return nil
}

func (c *Client) heartbeatLoop() {
	for {
		time.Sleep(heartbeatInterval)
		if c.closed {
			return
		}
		c.send(messages.RPCMessage{Method: "HEARTBEAT"})
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mutex.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mutex.Unlock()
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := messages.ParseRPCMessage(string(raw))
		if err != nil {
			logging.Error(err)
			continue
		}

		c.handle(msg)
	}
}

func (c *Client) handle(msg messages.RPCMessage) {
	switch msg.Method {
	case "ERROR":
		logging.ErrorMessage("[Coordinator] Error reported by control server: " + msg.Params["message"])
	case "PUBLISH-ACCEPT":
		c.resolvePublish(msg, true)
	case "PUBLISH-DENY":
		c.resolvePublish(msg, false)
	case "STREAM-KILL":
		channel := msg.Params["Stream-Channel"]
		streamID := msg.Params["Stream-ID"]
		if c.onKill != nil {
			c.onKill(channel, streamID)
		}
	}
}

func (c *Client) resolvePublish(msg messages.RPCMessage, accepted bool) {
	id, err := strconv.ParseInt(msg.Params["Request-ID"], 10, 64)
	if err != nil {
		return
	}

	c.mutex.Lock()
	req := c.pending[id]
	delete(c.pending, id)
	c.mutex.Unlock()

	if req == nil {
		return
	}

	req.waiter <- publishResponse{accepted: accepted, streamID: msg.Params["Stream-ID"]}
}

func (c *Client) send(msg messages.RPCMessage) bool {
	c.mutex.Lock()
	conn := c.conn
	c.mutex.Unlock()

	if conn == nil {
		return false
	}

	return conn.WriteMessage(websocket.TextMessage, []byte(msg.Serialize())) == nil
}

// RequestPublish asks the control server whether channel/key may publish
// from userIP, blocking until a PUBLISH-ACCEPT/DENY arrives or
// publishRequestTimeout (5s) passes.
// In stand-alone mode it accepts immediately with no assigned stream id.
func (c *Client) RequestPublish(channel string, key string, userIP string) (bool, string) {
	if !c.enabled {
		return true, ""
	}

	c.mutex.Lock()
	id := c.nextID
	c.nextID++
	req := &pendingRequest{waiter: make(chan publishResponse, 1)}
	c.pending[id] = req
	c.mutex.Unlock()

	ok := c.send(messages.RPCMessage{
		Method: "PUBLISH-REQUEST",
		Params: map[string]string{
			"Request-ID":     strconv.FormatInt(id, 10),
			"Stream-Channel": channel,
			"Stream-Key":     key,
			"User-IP":        userIP,
		},
	})
	if !ok {
		c.mutex.Lock()
		delete(c.pending, id)
		c.mutex.Unlock()
		return false, ""
	}

	timer := time.AfterFunc(publishRequestTimeout, func() {
		c.mutex.Lock()
		req, found := c.pending[id]
		delete(c.pending, id)
		c.mutex.Unlock()
		if found {
			req.waiter <- publishResponse{accepted: false}
		}
	})
	defer timer.Stop()

	resp := <-req.waiter
	return resp.accepted, resp.streamID
}

// PublishEnd notifies the control server that channel/streamID has stopped
// publishing. No-op in stand-alone mode.
func (c *Client) PublishEnd(channel string, streamID string) bool {
	if !c.enabled {
		return true
	}
	return c.send(messages.RPCMessage{
		Method: "PUBLISH-END",
		Params: map[string]string{
			"Stream-Channel": channel,
			"Stream-ID":      streamID,
		},
	})
}

// Enabled reports whether a control server is configured.
func (c *Client) Enabled() bool {
	return c.enabled
}
