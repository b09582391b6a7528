package httpgw

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
)

// Fingerprint computes the pool key identifying one viewer-to-stream-to-
// connector binding (§3): md5(userAgent || remoteHost), then the stream
// and connector tag appended in the clear so two streams or tags for the
// same viewer never collide.
func Fingerprint(userAgent, remoteHost, stream string, tag Tag) string {
	sum := md5.Sum([]byte(userAgent + remoteHost)) //nolint:gosec
	return hex.EncodeToString(sum[:]) + "_" + stream + "_" + string(tag)
}
