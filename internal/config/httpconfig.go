// Package config centralizes the os.Getenv reads both daemons scatter
// through their server/session code into one struct per daemon, loaded
// once at startup.
package config

import (
	"os"
	"strconv"
)

// HTTP holds the HTTP gateway's startup configuration.
type HTTP struct {
	ListenInterface string
	ListenPort      string

	MaxIPConcurrentConnections uint32

	RedisUse      bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisTLS      bool
	RedisChannel  string

	StreamListPath string
}

// LoadHTTP reads the HTTP daemon's environment configuration, applying the
// same defaults as the teacher's scattered os.Getenv calls.
func LoadHTTP() *HTTP {
	return &HTTP{
		ListenInterface:            os.Getenv("LISTEN_INTERFACE"),
		ListenPort:                 envOr("LISTEN_PORT", "8080"),
		MaxIPConcurrentConnections: envUint32("MAX_IP_CONCURRENT_CONNECTIONS", 0),
		RedisUse:                   os.Getenv("REDIS_USE") == "YES",
		RedisHost:                  envOr("REDIS_HOST", "localhost"),
		RedisPort:                  envOr("REDIS_PORT", "6379"),
		RedisPassword:              os.Getenv("REDIS_PASSWORD"),
		RedisTLS:                   os.Getenv("REDIS_TLS") == "YES",
		RedisChannel:               envOr("REDIS_CHANNEL", "http_gateway_commands"),
		StreamListPath:             envOr("STREAM_LIST_PATH", "/tmp/mist/streamlist"),
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envUint32(name string, fallback uint32) uint32 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return uint32(n)
}
