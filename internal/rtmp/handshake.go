package rtmp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"

	"github.com/brasswatch/streamconnector/internal/logging"
)

const (
	messageFormatBasic = 0
	messageFormatKey1  = 1
	messageFormatKey2  = 2

	sigSize  = 1536
	sha256DL = 32
)

var randomCrud = []byte{
	0xf0, 0xee, 0xc2, 0x4a, 0x80, 0x68, 0xbe, 0xe8,
	0x2e, 0x00, 0xd0, 0xd1, 0x02, 0x9e, 0x7e, 0x57,
	0x6e, 0xec, 0x5d, 0x2d, 0x29, 0x80, 0x6f, 0xab,
	0x93, 0xb8, 0xe6, 0x36, 0xcf, 0xeb, 0x31, 0xae,
}

const genuineFMSConst = "Genuine Adobe Flash Media Server 001"

var genuineFMSConstCrud = append([]byte(genuineFMSConst), randomCrud...)

const genuineFPConst = "Genuine Adobe Flash Player 001"

func calcHmac(message []byte, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	return h.Sum(nil)
}

func compareSignatures(a []byte, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	result := true
	for i := range a {
		result = result && a[i] == b[i]
	}
	return result
}

func clientGenuineConstDigestOffset(buf []byte) uint32 {
	offset := uint32(buf[0]) + uint32(buf[1]) + uint32(buf[2]) + uint32(buf[3])
	return (offset % 728) + 12
}

func serverGenuineConstDigestOffset(buf []byte) uint32 {
	offset := uint32(buf[0]) + uint32(buf[1]) + uint32(buf[2]) + uint32(buf[3])
	return (offset % 728) + 776
}

func detectClientMessageFormat(clientSig []byte) uint32 {
	sdl := serverGenuineConstDigestOffset(clientSig[772:776])
	if ok := tryVerify(clientSig, sdl); ok {
		return messageFormatKey2
	}

	sdl = clientGenuineConstDigestOffset(clientSig[8:12])
	if ok := tryVerify(clientSig, sdl); ok {
		return messageFormatKey1
	}

	return messageFormatBasic
}

func tryVerify(clientSig []byte, sdl uint32) bool {
	msg := make([]byte, sdl)
	copy(msg, clientSig[0:sdl])
	msg = append(msg, clientSig[sdl+sha256DL:]...)
	msg = padOrTruncate(msg, 1504)

	computed := calcHmac(msg, []byte(genuineFPConst))
	provided := clientSig[sdl : sdl+sha256DL]

	return compareSignatures(computed, provided)
}

func padOrTruncate(b []byte, size int) []byte {
	if len(b) < size {
		return append(b, make([]byte, size-len(b))...)
	}
	return b[:size]
}

func generateS1(messageFormat uint32) []byte {
	randomBytes := make([]byte, sigSize-8)
	if _, err := rand.Read(randomBytes); err != nil {
		panic(err)
	}

	handshakeBytes := []byte{0, 0, 0, 0, 1, 2, 3, 4}
	handshakeBytes = append(handshakeBytes, randomBytes...)
	handshakeBytes = padOrTruncate(handshakeBytes, sigSize)

	var serverDigestOffset uint32
	if messageFormat == messageFormatKey1 {
		serverDigestOffset = clientGenuineConstDigestOffset(handshakeBytes[8:12])
	} else {
		serverDigestOffset = serverGenuineConstDigestOffset(handshakeBytes[772:776])
	}

	msg := make([]byte, serverDigestOffset)
	copy(msg, handshakeBytes[0:serverDigestOffset])
	msg = append(msg, handshakeBytes[serverDigestOffset+sha256DL:]...)
	msg = padOrTruncate(msg, sigSize-sha256DL)

	h := calcHmac(msg, []byte(genuineFMSConst))
	copy(handshakeBytes[serverDigestOffset:serverDigestOffset+32], h)

	return handshakeBytes
}

func generateS2(messageFormat uint32, clientSig []byte) []byte {
	randomBytes := make([]byte, sigSize-32)
	if _, err := rand.Read(randomBytes); err != nil {
		panic(err)
	}

	var challengeKeyOffset uint32
	if messageFormat == messageFormatKey1 {
		challengeKeyOffset = clientGenuineConstDigestOffset(clientSig[8:12])
	} else {
		challengeKeyOffset = serverGenuineConstDigestOffset(clientSig[772:776])
	}

	challengeKey := clientSig[challengeKeyOffset : challengeKeyOffset+32]

	h := calcHmac(challengeKey, genuineFMSConstCrud)
	signature := calcHmac(randomBytes, h)

	s2 := append(randomBytes[:], signature...)
	return padOrTruncate(s2, sigSize)
}

// GenerateS0S1S2 runs the standard RTMP handshake algorithm against the
// client's C0+C1 signature and returns the server's S0+S1+S2 response.
func GenerateS0S1S2(clientSig []byte) []byte {
	messageFormat := detectClientMessageFormat(clientSig)

	clientType := []byte{Version}

	if messageFormat == messageFormatBasic {
		logging.Debug("Using basic handshake")
		all := append(clientType, clientSig...)
		return append(all, clientSig...)
	}

	logging.Debug("Using S1S2 handshake")
	s1 := generateS1(messageFormat)
	s2 := generateS2(messageFormat, clientSig)
	all := append(clientType, s1...)
	return append(all, s2...)
}
