package httpgw

import (
	"context"
	"crypto/tls"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brasswatch/streamconnector/internal/logging"
)

// StartAdminSubscriber begins the optional redis pub/sub listener for
// administrative commands against pool, grounded on the teacher's
// redis_cmds.go subscribe-loop/panic-recover structure. A no-op unless
// REDIS_USE=YES.
func StartAdminSubscriber(pool *Pool) {
	if os.Getenv("REDIS_USE") != "YES" {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error(toError(r))
		}
		logging.Warning("Connection to Redis lost!")
	}()

	host := envOr("REDIS_HOST", "localhost")
	port := envOr("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	channel := envOr("REDIS_CHANNEL", "http_gateway_commands")

	opts := &redis.Options{Addr: host + ":" + port, Password: password}
	if os.Getenv("REDIS_TLS") == "YES" {
		opts.TLSConfig = &tls.Config{}
	}

	client := redis.NewClient(opts)
	ctx := context.Background()
	sub := client.Subscribe(ctx, channel)

	logging.Info("[REDIS] Listening for commands on channel '" + channel + "'")

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			logging.Warning("Could not reach Redis: " + err.Error())
			time.Sleep(10 * time.Second)
			continue
		}
		handleAdminCommand(pool, msg.Payload)
	}
}

// handleAdminCommand parses and applies one "<name>>arg1|arg2" command
// (the teacher's wire shape in redis_cmds.go), for "evict <fingerprint>"
// and "reload".
func handleAdminCommand(pool *Pool, cmd string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(toError(r))
			logging.Warning("Could not parse message: " + cmd)
		}
	}()

	parts := strings.SplitN(cmd, ">", 2)
	name := parts[0]

	switch name {
	case "evict":
		if len(parts) < 2 || parts[1] == "" {
			logging.Warning("Invalid message from Redis: " + cmd)
			return
		}
		pool.evict(parts[1])
	case "reload":
		// The base spec re-reads the stream-list file on every request
		// already; there is no cache to invalidate here yet.
		logging.Info("[REDIS] reload acknowledged (no-op: stream list is read per request)")
	default:
		logging.Warning("Unknown Redis command: " + cmd)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func toError(r any) error {
	switch x := r.(type) {
	case error:
		return x
	case string:
		return errors.New(x)
	default:
		return errors.New("unknown panic")
	}
}
