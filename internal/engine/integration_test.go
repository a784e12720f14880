package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notification-service/internal/auth"
	"notification-service/internal/mocks"
	"notification-service/internal/models"
)

const testSecret = "integration-secret"

// startEngine boots a full engine on an ephemeral port and returns its ws URL.
func startEngine(t *testing.T, outbox *outboxStub, notifications *mocks.NotificationRepositoryMock) string {
	t.Helper()

	validator := auth.NewJWTValidator(testSecret, "notification-service")
	e := New(Config{Host: "127.0.0.1", TickSleep: time.Millisecond}, validator, outbox, notifications, nil)
	require.NoError(t, e.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return "ws://" + e.Addr().String() + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func readMessage(t *testing.T, client *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	require.NotEmpty(t, fields["timestamp"])
	return fields
}

func send(t *testing.T, client *websocket.Conn, msg map[string]any) {
	t.Helper()
	require.NoError(t, client.WriteJSON(msg))
}

func signToken(t *testing.T, userID string) string {
	t.Helper()
	validator := auth.NewJWTValidator(testSecret, "notification-service")
	token, err := validator.Sign(auth.Identity{UserID: userID, UserType: "buyer", Email: userID + "@example.com"}, time.Minute)
	require.NoError(t, err)
	return token
}

func TestEngineSessionFlow(t *testing.T) {
	outbox := newOutboxStub()
	notifications := new(mocks.NotificationRepositoryMock)
	notifications.On("UnreadForUser", mock.Anything, "u1").
		Return([]models.Notification{{ID: 3, UserID: "u1", NotificationType: "proposal_accepted"}}, nil)

	url := startEngine(t, outbox, notifications)
	client := dial(t, url)

	hello := readMessage(t, client)
	assert.Equal(t, "connection_established", hello["type"])
	assert.NotEmpty(t, hello["client_id"])

	// Ping works before authentication.
	send(t, client, map[string]any{"type": "ping"})
	assert.Equal(t, "pong", readMessage(t, client)["type"])

	// Room membership is gated on authentication.
	send(t, client, map[string]any{"type": "join_room", "room": "reviews"})
	denied := readMessage(t, client)
	assert.Equal(t, "error", denied["type"])
	assert.Equal(t, "authentication required", denied["error"])

	send(t, client, map[string]any{"type": "authenticate", "token": signToken(t, "u1")})
	authed := readMessage(t, client)
	assert.Equal(t, "authenticated", authed["type"])
	assert.Equal(t, "u1", authed["user_id"])

	pending := readMessage(t, client)
	assert.Equal(t, "pending_notifications", pending["type"])
	assert.Equal(t, float64(1), pending["count"])

	send(t, client, map[string]any{"type": "join_room", "room": "reviews"})
	joined := readMessage(t, client)
	assert.Equal(t, "room_joined", joined["type"])
	assert.Equal(t, "reviews", joined["room"])
}

func TestEngineRejectsBadToken(t *testing.T) {
	outbox := newOutboxStub()
	notifications := new(mocks.NotificationRepositoryMock)

	url := startEngine(t, outbox, notifications)
	client := dial(t, url)
	readMessage(t, client) // connection_established

	send(t, client, map[string]any{"type": "authenticate", "token": "garbage"})
	reply := readMessage(t, client)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "invalid token", reply["error"])

	// The connection survives; the client may retry.
	send(t, client, map[string]any{"type": "ping"})
	assert.Equal(t, "pong", readMessage(t, client)["type"])
}

func TestEngineBroadcastsOutboxEvents(t *testing.T) {
	outbox := newOutboxStub()
	notifications := new(mocks.NotificationRepositoryMock)
	notifications.On("UnreadForUser", mock.Anything, mock.Anything).Return([]models.Notification{}, nil)

	url := startEngine(t, outbox, notifications)

	target := dial(t, url)
	bystander := dial(t, url)
	readMessage(t, target)
	readMessage(t, bystander)

	send(t, target, map[string]any{"type": "authenticate", "token": signToken(t, "u1")})
	readMessage(t, target) // authenticated
	readMessage(t, target) // pending_notifications

	outbox.enqueue(models.OutboxEvent{
		ID:          21,
		EventType:   "payment_received",
		TargetKind:  models.TargetUser,
		TargetValue: sql.NullString{String: "u1", Valid: true},
		Payload:     models.Payload{"amount": "99.00"},
	})

	push := readMessage(t, target)
	assert.Equal(t, "payment_received", push["type"])
	payload, ok := push["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "99.00", payload["amount"])

	record := <-outbox.finished
	assert.Equal(t, finishRecord{EventID: 21, Total: 1, Successful: 1, Failed: 0}, record)

	// The unauthenticated bystander sees nothing but can still ping.
	send(t, bystander, map[string]any{"type": "ping"})
	assert.Equal(t, "pong", readMessage(t, bystander)["type"])
}

func TestEngineMultipleEnginesDoNotShareState(t *testing.T) {
	notifications := new(mocks.NotificationRepositoryMock)
	notifications.On("UnreadForUser", mock.Anything, mock.Anything).Return([]models.Notification{}, nil)

	first := newOutboxStub()
	second := newOutboxStub()
	firstURL := startEngine(t, first, notifications)
	secondURL := startEngine(t, second, notifications)

	clientA := dial(t, firstURL)
	clientB := dial(t, secondURL)
	readMessage(t, clientA)
	readMessage(t, clientB)

	send(t, clientA, map[string]any{"type": "authenticate", "token": signToken(t, "u1")})
	readMessage(t, clientA)
	readMessage(t, clientA)

	// A user-targeted event on the second engine must not reach the first.
	second.enqueue(models.OutboxEvent{
		ID:          31,
		EventType:   "payment_received",
		TargetKind:  models.TargetUser,
		TargetValue: sql.NullString{String: "u1", Valid: true},
	})

	record := <-second.finished
	assert.Equal(t, 0, record.Total)
}
