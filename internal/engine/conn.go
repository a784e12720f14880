package engine

import (
	"net"
	"time"

	"github.com/google/uuid"

	"notification-service/internal/protocol"
	"notification-service/internal/ws"
)

// Connection is one live websocket client. It is created after a successful
// handshake and owns its transport exclusively: the socket is closed exactly
// once, during teardown.
type Connection struct {
	ID            string
	Authenticated bool
	UserID        string
	UserType      string
	Email         string
	LastActivity  time.Time
	ConnectedAt   time.Time
	Rooms         map[string]struct{}

	conn    net.Conn
	readBuf []byte // unconsumed bytes from partial TCP reads
	closed  bool
}

// writeWait bounds a single frame write so a stalled peer cannot block the
// loop goroutine.
const writeWait = 250 * time.Millisecond

func newConnection(conn net.Conn) *Connection {
	now := time.Now()
	return &Connection{
		ID:           uuid.NewString(),
		LastActivity: now,
		ConnectedAt:  now,
		Rooms:        make(map[string]struct{}),
		conn:         conn,
	}
}

// Send encodes a server message and writes it as a single text frame.
func (c *Connection) Send(msg protocol.ServerMessage) error {
	data, err := protocol.EncodeServer(msg)
	if err != nil {
		return err
	}
	return c.writeFrame(ws.OpcodeText, data)
}

// writeFrame writes one frame under a deadline. A deadline miss means the
// peer has stopped draining its socket and is treated as a transport failure.
func (c *Connection) writeFrame(opcode byte, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	_, err := c.conn.Write(ws.EncodeFrame(opcode, payload))
	return err
}

// Touch records client activity for the liveness reaper.
func (c *Connection) Touch() {
	c.LastActivity = time.Now()
}

// RemoteAddr reports the peer address for logging.
func (c *Connection) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (c *Connection) close() {
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}
