package engine

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-service/internal/protocol"
	"notification-service/internal/ws"
)

func TestSendFailsWhenPeerStopsReading(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newConnection(server)

	// Nobody reads from the client end, so the write must give up at the
	// deadline instead of blocking forever.
	start := time.Now()
	err := conn.Send(protocol.Pong{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWriteFrameSucceedsWithResponsivePeer(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newConnection(server)

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()

	require.NoError(t, conn.writeFrame(ws.OpcodePong, []byte("hb")))

	frame, _, err := ws.DecodeFrame(<-done)
	require.NoError(t, err)
	assert.Equal(t, byte(ws.OpcodePong), frame.Opcode)
	assert.Equal(t, []byte("hb"), frame.Payload)
}
