package ws

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strings"
)

// acceptGUID is the fixed GUID appended to the client key per RFC 6455.
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

var (
	ErrNotUpgrade = errors.New("not a websocket upgrade request")
	ErrMissingKey = errors.New("missing Sec-WebSocket-Key header")
)

// AcceptKey computes the Sec-WebSocket-Accept value for a client key.
func AcceptKey(key string) string {
	sum := sha1.Sum([]byte(key + acceptGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Negotiate validates a raw HTTP upgrade request block and returns the
// 101 response to write back. Any failure is fatal for the connection
// attempt: the caller closes the socket without responding.
func Negotiate(request []byte) ([]byte, error) {
	headers := parseHeaders(string(request))

	if !strings.EqualFold(headers["upgrade"], "websocket") {
		return nil, ErrNotUpgrade
	}
	if !strings.Contains(strings.ToLower(headers["connection"]), "upgrade") {
		return nil, ErrNotUpgrade
	}
	key := headers["sec-websocket-key"]
	if key == "" {
		return nil, ErrMissingKey
	}

	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + AcceptKey(key) + "\r\n\r\n"
	return []byte(response), nil
}

func parseHeaders(block string) map[string]string {
	headers := make(map[string]string)
	for i, line := range strings.Split(block, "\r\n") {
		if i == 0 {
			continue // request line
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return headers
}
