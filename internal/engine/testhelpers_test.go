package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"notification-service/internal/ws"
)

// fakeConn is an in-memory net.Conn for loop-free tests. Writes accumulate
// in a buffer; reads always report no data.
type fakeConn struct {
	written    bytes.Buffer
	failWrites bool
	closed     bool
}

var errWriteFailed = errors.New("write failed")

func (f *fakeConn) Read(b []byte) (int, error) { return 0, errors.New("no data") }

func (f *fakeConn) Write(b []byte) (int, error) {
	if f.failWrites {
		return 0, errWriteFailed
	}
	return f.written.Write(b)
}

func (f *fakeConn) Close() error                       { f.closed = true; return nil }
func (f *fakeConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (f *fakeConn) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (f *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (f *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

// sentMessages decodes every frame written to the fake transport.
func sentMessages(t *testing.T, f *fakeConn) []map[string]any {
	t.Helper()
	var messages []map[string]any
	buf := f.written.Bytes()
	for len(buf) > 0 {
		frame, consumed, err := ws.DecodeFrame(buf)
		require.NoError(t, err, "bad frame in fake transport")
		buf = buf[consumed:]

		var fields map[string]any
		require.NoError(t, json.Unmarshal(frame.Payload, &fields))
		messages = append(messages, fields)
	}
	return messages
}

func sentTypes(t *testing.T, f *fakeConn) []string {
	t.Helper()
	var types []string
	for _, msg := range sentMessages(t, f) {
		types = append(types, msg["type"].(string))
	}
	return types
}

func testConnection() (*Connection, *fakeConn) {
	fc := &fakeConn{}
	return newConnection(fc), fc
}
