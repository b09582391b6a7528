// Command rtmpd is the RTMP protocol endpoint: it accepts publish/play
// connections and bridges each one to a per-stream backend socket.
package main

import (
	"github.com/joho/godotenv"

	"github.com/brasswatch/streamconnector/internal/logging"
	"github.com/brasswatch/streamconnector/internal/rtmp"
)

func main() {
	godotenv.Load() //nolint:errcheck

	logging.Info("RTMP connector starting")

	server := rtmp.New()
	if server == nil {
		logging.ErrorMessage("RTMP connector could not start")
		return
	}

	server.Start()
}
