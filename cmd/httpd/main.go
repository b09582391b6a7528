// Command httpd is the HTTP multiplexing gateway: it classifies requests,
// serves a small set of inline responses, and proxies everything else to
// pooled per-protocol backend connections.
package main

import (
	"github.com/joho/godotenv"

	"github.com/brasswatch/streamconnector/internal/httpgw"
	"github.com/brasswatch/streamconnector/internal/logging"
)

func main() {
	godotenv.Load() //nolint:errcheck

	logging.Info("HTTP gateway starting")

	server := httpgw.New()
	if err := server.Listen(); err != nil {
		logging.Error(err)
	}
}
