package config

import "os"

// RTMP holds the RTMP daemon's composition-root startup configuration: the
// settings read once in rtmp.New() to build listeners and shared
// controllers. Per-event settings that the teacher itself re-reads on
// every call (coordinator secret, callback JWT signing) stay as direct
// os.Getenv reads in their own packages — see DESIGN.md.
type RTMP struct {
	BindAddress string
	Port        int
	SSLPort     int
	SSLCert     string
	SSLKey      string

	ExternalIP string

	MaxIPConcurrentConnections uint32

	ChunkSize int
}

// LoadRTMP reads the RTMP daemon's environment configuration.
func LoadRTMP() *RTMP {
	return &RTMP{
		BindAddress:                os.Getenv("BIND_ADDRESS"),
		Port:                       int(envUint32("RTMP_PORT", 1935)),
		SSLPort:                    int(envUint32("SSL_PORT", 443)),
		SSLCert:                    os.Getenv("SSL_CERT"),
		SSLKey:                     os.Getenv("SSL_KEY"),
		ExternalIP:                 os.Getenv("EXTERNAL_IP"),
		MaxIPConcurrentConnections: envUint32("MAX_IP_CONCURRENT_CONNECTIONS", 4),
		ChunkSize:                  int(envUint32("RTMP_CHUNK_SIZE", 128)),
	}
}
