package httpgw

import (
	"net"
	"net/http"

	"github.com/brasswatch/streamconnector/internal/config"
	"github.com/brasswatch/streamconnector/internal/ipaccess"
	"github.com/brasswatch/streamconnector/internal/logging"
)

// Server is the HTTP multiplexing gateway: classify, serve inline
// responses, or proxy to a pooled backend connection (§2).
type Server struct {
	cfg       *config.HTTP
	pool      *Pool
	proxy     *Proxy
	ipControl *ipaccess.Controller
}

// New builds the gateway's handler and pool, and starts the admin
// subscriber if configured.
func New() *Server {
	cfg := config.LoadHTTP()
	pool := NewPool()

	s := &Server{
		cfg:       cfg,
		pool:      pool,
		proxy:     NewProxy(pool),
		ipControl: ipaccess.New(cfg.MaxIPConcurrentConnections, "HTTP_CONCURRENT_LIMIT_WHITELIST"),
	}

	go StartAdminSubscriber(pool)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	remoteHost := remoteHostOf(req)

	if !s.ipControl.Add(remoteHost) {
		http.Error(w, "too many concurrent connections", http.StatusTooManyRequests)
		return
	}
	defer s.ipControl.Remove(remoteHost)

	logging.Info(remoteHost + ": " + req.Method + " " + req.URL.Path)

	tag, stream := Classify(req.URL.Path)

	switch tag {
	case TagInternal:
		s.serveInternal(w, req, stream)
	case TagNone:
		http.Error(w, "Unsupported Media Type", http.StatusUnsupportedMediaType)
	default:
		fp := Fingerprint(req.UserAgent(), remoteHost, stream, tag)
		s.proxy.Forward(w, req, fp, tag, remoteHost)
	}
}

func (s *Server) serveInternal(w http.ResponseWriter, req *http.Request, stream string) {
	switch {
	case req.URL.Path == "/crossdomain.xml":
		ServeCrossdomain(w)
	case req.URL.Path == "/clientaccesspolicy.xml":
		ServeClientAccessPolicy(w)
	case stream != "" && isInfoPath(req.URL.Path, "/info_"):
		ServeInfo(w, req.Host, stream, false)
	case stream != "" && isInfoPath(req.URL.Path, "/embed_"):
		ServeInfo(w, req.Host, stream, true)
	default:
		http.Error(w, "Unsupported Media Type", http.StatusUnsupportedMediaType)
	}
}

func isInfoPath(path, prefix string) bool {
	base := path
	if i := lastSlash(base); i >= 0 {
		base = base[i:]
	}
	return len(base) > len(prefix) && base[:len(prefix)] == prefix
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func remoteHostOf(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// Listen binds cfg.ListenInterface:cfg.ListenPort (default :8080) and serves
// until the listener fails (§6).
func (s *Server) Listen() error {
	addr := s.cfg.ListenInterface + ":" + s.cfg.ListenPort

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	logging.Info("[HTTP] Listening on " + addr)
	return http.Serve(ln, s)
}
