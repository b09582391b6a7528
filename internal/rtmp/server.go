package rtmp

import (
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/brasswatch/streamconnector/internal/config"
	"github.com/brasswatch/streamconnector/internal/ipaccess"
	"github.com/brasswatch/streamconnector/internal/logging"
	"github.com/brasswatch/streamconnector/internal/rtmp/coordinator"
)

// Server accepts RTMP connections and runs one Session per connection. It
// holds no per-channel publisher/player registry: stream fan-out to
// multiple viewers is the backend's job, not this connector's, so sessions
// never need to look each other up.
type Server struct {
	listener       net.Listener
	secureListener net.Listener

	ipControl *ipaccess.Controller
	ipLimit   uint32

	mutex      sync.Mutex
	sessions   map[uint64]*Session
	nextID     uint64

	coordinator *coordinator.Client

	outChunkSize uint32
	host         string
	port         int

	closed bool
}

// New binds the configured listeners and returns a ready-to-run Server, or
// nil if the plain TCP listener could not be bound.
func New() *Server {
	cfg := config.LoadRTMP()

	server := &Server{
		sessions: make(map[uint64]*Session),
		nextID:   1,
		ipLimit:  cfg.MaxIPConcurrentConnections,
	}

	server.ipControl = ipaccess.New(server.ipLimit, "RTMP_CONCURRENT_LIMIT_WHITELIST")

	server.port = cfg.Port
	server.host = publicHost(cfg.BindAddress, cfg.ExternalIP)

	ln, err := net.Listen("tcp", cfg.BindAddress+":"+strconv.Itoa(cfg.Port))
	if err != nil {
		logging.Error(err)
		return nil
	}
	server.listener = ln
	logging.Info("[RTMP] Listening on " + cfg.BindAddress + ":" + strconv.Itoa(cfg.Port))

	if cfg.SSLCert != "" && cfg.SSLKey != "" {
		cer, err := tls.LoadX509KeyPair(cfg.SSLCert, cfg.SSLKey)
		if err != nil {
			logging.Error(err)
			server.listener.Close() //nolint:errcheck
			return nil
		}

		lnSSL, err := tls.Listen("tcp", cfg.BindAddress+":"+strconv.Itoa(cfg.SSLPort), &tls.Config{Certificates: []tls.Certificate{cer}})
		if err != nil {
			logging.Error(err)
			return nil
		}
		server.secureListener = lnSSL
		logging.Info("[SSL] Listening on " + cfg.BindAddress + ":" + strconv.Itoa(cfg.SSLPort))
	}

	server.outChunkSize = outChunkSizeFromCfg(cfg.ChunkSize)

	server.coordinator = coordinator.New(server.killPublishers)
	server.coordinator.Start()

	return server
}

func publicHost(bindAddr, externalIP string) string {
	if externalIP != "" {
		return externalIP
	}
	if bindAddr != "" {
		return bindAddr
	}
	return "127.0.0.1"
}

func outChunkSizeFromCfg(n int) uint32 {
	if n <= int(DefaultChunkSize) {
		return DefaultChunkSize
	}
	return uint32(n)
}

// Start runs the accept loops and the ping ticker until the process exits.
func (server *Server) Start() {
	var wg sync.WaitGroup

	if server.listener != nil {
		wg.Add(1)
		go server.acceptConnections(server.listener, &wg)
	}
	if server.secureListener != nil {
		wg.Add(1)
		go server.acceptConnections(server.secureListener, &wg)
	}

	wg.Add(1)
	go server.sendPings(&wg)

	wg.Wait()
}

func (server *Server) acceptConnections(listener net.Listener, wg *sync.WaitGroup) {
	defer func() {
		listener.Close() //nolint:errcheck
		wg.Done()
	}()

	for {
		c, err := listener.Accept()
		if err != nil {
			logging.Error(err)
			return
		}

		id := server.nextSessionID()

		var ip string
		if addr, ok := c.RemoteAddr().(*net.TCPAddr); ok {
			ip = addr.IP.String()
		} else {
			ip = c.RemoteAddr().String()
		}

		if !server.ipControl.Add(ip) {
			c.Close() //nolint:errcheck
			logging.Request(id, ip, "Connection rejected: too many concurrent connections")
			continue
		}

		logging.DebugSession(id, ip+": connection accepted")
		go server.handleConnection(id, ip, c)
	}
}

func (server *Server) sendPings(wg *sync.WaitGroup) {
	defer wg.Done()
	for !server.closed {
		time.Sleep(PingInterval * time.Millisecond)

		server.mutex.Lock()
		for _, s := range server.sessions {
			s.Send(EncodePingRequest(time.Since(s.connectTime).Milliseconds(), int(s.outChunkSize)))
		}
		server.mutex.Unlock()
	}
}

func (server *Server) handleConnection(id uint64, ip string, c net.Conn) {
	session := NewSession(c, id, ip, server.outChunkSize, server.coordinator, server.host, server.port)

	server.addSession(session)

	defer func() {
		if r := recover(); r != nil {
			switch x := r.(type) {
			case error:
				logging.Request(id, ip, "crashed: "+x.Error())
			default:
				logging.Request(id, ip, "crashed")
			}
		}
		session.Close()
		server.removeSession(id)
		server.ipControl.Remove(ip)
		logging.DebugSession(id, ip+": connection closed")
	}()

	session.Run()
}

func (server *Server) nextSessionID() uint64 {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	id := server.nextID
	server.nextID++
	return id
}

func (server *Server) addSession(s *Session) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.sessions[s.id] = s
}

func (server *Server) removeSession(id uint64) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	delete(server.sessions, id)
}

// killPublishers closes every local session publishing to channel (or, if
// streamID is non-empty, only the one whose assigned stream id matches),
// invoked when the coordinator orders a STREAM-KILL.
func (server *Server) killPublishers(channel string, streamID string) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	for _, s := range server.sessions {
		if !s.publishing || s.channel != channel {
			continue
		}
		if streamID != "" && s.streamID != streamID {
			continue
		}
		s.Close()
	}
}
