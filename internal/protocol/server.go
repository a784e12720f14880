package protocol

import (
	"encoding/json"
	"time"

	"notification-service/internal/models"
)

// ServerMessage is the closed set of messages the server sends. Every
// encoded message carries its type tag and an RFC 3339 timestamp.
type ServerMessage interface {
	serverMessage()
	tag() string
}

type ConnectionEstablished struct {
	ClientID string `json:"client_id"`
}

type Authenticated struct {
	UserID string `json:"user_id"`
}

type Pong struct{}

type RoomJoined struct {
	Room string `json:"room"`
}

type RoomLeft struct {
	Room string `json:"room"`
}

type PendingNotifications struct {
	Notifications []models.Notification `json:"notifications"`
	Count         int                   `json:"count"`
}

type UnreadCount struct {
	Count int `json:"count"`
}

type NotificationsMarkedRead struct {
	NotificationIDs []int64 `json:"notification_ids"`
}

type ErrorReply struct {
	Error string `json:"error"`
}

// Push carries one outbox event to a client.
type Push struct {
	EventType string         `json:"-"`
	Payload   models.Payload `json:"payload"`
}

func (ConnectionEstablished) serverMessage()   {}
func (Authenticated) serverMessage()           {}
func (Pong) serverMessage()                    {}
func (RoomJoined) serverMessage()              {}
func (RoomLeft) serverMessage()                {}
func (PendingNotifications) serverMessage()    {}
func (UnreadCount) serverMessage()             {}
func (NotificationsMarkedRead) serverMessage() {}
func (ErrorReply) serverMessage()              {}
func (Push) serverMessage()                    {}

func (ConnectionEstablished) tag() string   { return "connection_established" }
func (Authenticated) tag() string           { return "authenticated" }
func (Pong) tag() string                    { return "pong" }
func (RoomJoined) tag() string              { return "room_joined" }
func (RoomLeft) tag() string                { return "room_left" }
func (PendingNotifications) tag() string    { return "pending_notifications" }
func (UnreadCount) tag() string             { return "unread_count" }
func (NotificationsMarkedRead) tag() string { return "notifications_marked_read" }
func (ErrorReply) tag() string              { return "error" }
func (p Push) tag() string                  { return p.EventType }

// EncodeServer marshals a server message, stamping the type tag and the
// send-time timestamp.
func EncodeServer(msg ServerMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(msg.tag())
	stamp, _ := json.Marshal(time.Now().UTC().Format(time.RFC3339))
	fields["type"] = tag
	fields["timestamp"] = stamp
	return json.Marshal(fields)
}
