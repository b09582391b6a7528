// Package ipaccess implements a per-client-IP concurrent connection cap with
// an allow-list of exempted ranges, shared by both daemons.
package ipaccess

import (
	"net"
	"os"
	"strings"
	"sync"

	"github.com/netdata/go.d.plugin/pkg/iprange"

	"github.com/brasswatch/streamconnector/internal/logging"
)

// Controller tracks concurrent connections per client IP and enforces a cap,
// except for IPs falling inside an exempted range.
type Controller struct {
	mutex    sync.Mutex
	counts   map[string]uint32
	limit    uint32
	whitelistEnv string
}

// New creates a controller. limit is the maximum concurrent connections per
// IP (0 disables the cap). whitelistEnv names the environment variable that
// holds a comma-separated list of CIDR/IP ranges (or "*") exempted from it.
func New(limit uint32, whitelistEnv string) *Controller {
	return &Controller{
		counts:       make(map[string]uint32),
		limit:        limit,
		whitelistEnv: whitelistEnv,
	}
}

// Add attempts to register a new connection from ip. Returns false if the
// per-IP cap would be exceeded and the IP is not exempted.
func (c *Controller) Add(ip string) bool {
	if c.limit == 0 {
		return true
	}

	if c.isExempted(ip) {
		return true
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	n := c.counts[ip]

	if n >= c.limit {
		return false
	}

	c.counts[ip] = n + 1

	return true
}

// Remove releases one connection slot for ip.
func (c *Controller) Remove(ip string) {
	if c.limit == 0 {
		return
	}

	if c.isExempted(ip) {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	n := c.counts[ip]

	if n <= 1 {
		delete(c.counts, ip)
	} else {
		c.counts[ip] = n - 1
	}
}

// AllowedByRangeList checks ipStr against a comma-separated CIDR/IP range
// list read from env var envName. An empty or "*" value allows every IP,
// matching the default-allow behavior of RTMP_PLAY_WHITELIST.
func AllowedByRangeList(envName string, ipStr string) bool {
	r := os.Getenv(envName)

	if r == "" || r == "*" {
		return true
	}

	ip := net.ParseIP(ipStr)

	for _, part := range strings.Split(r, ",") {
		rang, err := iprange.ParseRange(part)

		if err != nil {
			logging.Error(err)
			continue
		}

		if rang.Contains(ip) {
			return true
		}
	}

	return false
}

func (c *Controller) isExempted(ipStr string) bool {
	if c.whitelistEnv == "" {
		return false
	}

	r := os.Getenv(c.whitelistEnv)

	if r == "" {
		return false
	}

	if r == "*" {
		return true
	}

	ip := net.ParseIP(ipStr)

	for _, part := range strings.Split(r, ",") {
		rang, err := iprange.ParseRange(part)

		if err != nil {
			logging.Error(err)
			continue
		}

		if rang.Contains(ip) {
			return true
		}
	}

	return false
}
