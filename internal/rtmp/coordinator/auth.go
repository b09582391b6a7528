// Package coordinator implements the optional websocket link to a central
// control server that arbitrates publish requests across multiple RTMP
// connector instances.
package coordinator

import (
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brasswatch/streamconnector/internal/logging"
)

// authToken builds the bearer token sent on the control websocket's
// upgrade request, signed with RTMP_COORDINATOR_SECRET. Returns "" when no
// secret is configured, in which case the connection is attempted
// unauthenticated.
func authToken() string {
	secret := os.Getenv("RTMP_COORDINATOR_SECRET")
	if secret == "" {
		return ""
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "rtmp-control",
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		logging.Error(err)
		return ""
	}

	return signed
}
