// Package callback implements the JWT-signed webhook notification sent to
// an external service on stream start/stop, the fallback to the
// coordinator for deployments that run a single RTMP instance.
package callback

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brasswatch/streamconnector/internal/logging"
)

const tokenLifetime = 120 * time.Second

// StartEvent notifies CALLBACK_URL that channel/key has begun publishing
// from clientIP, and returns the backend-assigned stream id from the
// response's stream-id header. Returns ok=true with streamID="" when no
// CALLBACK_URL is configured (the feature is unused).
func StartEvent(channel, key, clientIP, rtmpHost string, rtmpPort int) (ok bool, streamID string) {
	callbackURL := os.Getenv("CALLBACK_URL")
	if callbackURL == "" {
		return true, ""
	}

	claims := jwt.MapClaims{
		"sub":       subject(),
		"event":     "start",
		"channel":   channel,
		"key":       key,
		"client_ip": clientIP,
		"rtmp_host": rtmpHost,
		"rtmp_port": rtmpPort,
		"exp":       time.Now().Add(tokenLifetime).Unix(),
	}

	res, err := post(callbackURL, claims)
	if err != nil {
		logging.Error(err)
		return false, ""
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		logging.ErrorMessage(fmt.Sprintf("callback: start event rejected with status %d", res.StatusCode))
		return false, ""
	}

	return true, res.Header.Get("stream-id")
}

// StopEvent notifies CALLBACK_URL that channel/streamID has stopped
// publishing.
func StopEvent(channel, key, streamID, clientIP string) bool {
	callbackURL := os.Getenv("CALLBACK_URL")
	if callbackURL == "" {
		return true
	}

	claims := jwt.MapClaims{
		"sub":       subject(),
		"event":     "stop",
		"channel":   channel,
		"key":       key,
		"stream_id": streamID,
		"client_ip": clientIP,
		"exp":       time.Now().Add(tokenLifetime).Unix(),
	}

	res, err := post(callbackURL, claims)
	if err != nil {
		logging.Error(err)
		return false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		logging.ErrorMessage(fmt.Sprintf("callback: stop event rejected with status %d", res.StatusCode))
		return false
	}

	return true
}

func subject() string {
	if s := os.Getenv("CUSTOM_JWT_SUBJECT"); s != "" {
		return s
	}
	return "rtmp_event"
}

func post(callbackURL string, claims jwt.MapClaims) (*http.Response, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, callbackURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("rtmp-event", signed)

	return http.DefaultClient.Do(req)
}
