package protocol

import (
	"encoding/json"
	"fmt"
)

// ClientMessage is the closed set of messages a client may send. Each
// variant is validated at decode time so handlers never see a message with
// a missing required field.
type ClientMessage interface {
	clientMessage()
}

type Authenticate struct {
	Token string
}

type Ping struct{}

type JoinRoom struct {
	Room string
}

type LeaveRoom struct {
	Room string
}

type MarkNotificationRead struct {
	NotificationIDs []int64
}

type GetUnreadCount struct{}

func (Authenticate) clientMessage()         {}
func (Ping) clientMessage()                 {}
func (JoinRoom) clientMessage()             {}
func (LeaveRoom) clientMessage()            {}
func (MarkNotificationRead) clientMessage() {}
func (GetUnreadCount) clientMessage()       {}

// UnknownTypeError reports a type tag outside the closed set.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type: %s", e.Type)
}

// FieldError reports a missing or empty required field.
type FieldError struct {
	Type  string
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s requires %s", e.Type, e.Field)
}

// DecodeClient parses one JSON client message and validates its fields.
func DecodeClient(data []byte) (ClientMessage, error) {
	var envelope struct {
		Type            string  `json:"type"`
		Token           string  `json:"token"`
		Room            string  `json:"room"`
		NotificationIDs []int64 `json:"notification_ids"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode client message: %w", err)
	}

	switch envelope.Type {
	case "authenticate":
		if envelope.Token == "" {
			return nil, &FieldError{Type: envelope.Type, Field: "token"}
		}
		return Authenticate{Token: envelope.Token}, nil
	case "ping":
		return Ping{}, nil
	case "join_room":
		if envelope.Room == "" {
			return nil, &FieldError{Type: envelope.Type, Field: "room"}
		}
		return JoinRoom{Room: envelope.Room}, nil
	case "leave_room":
		if envelope.Room == "" {
			return nil, &FieldError{Type: envelope.Type, Field: "room"}
		}
		return LeaveRoom{Room: envelope.Room}, nil
	case "mark_notification_read":
		if len(envelope.NotificationIDs) == 0 {
			return nil, &FieldError{Type: envelope.Type, Field: "notification_ids"}
		}
		return MarkNotificationRead{NotificationIDs: envelope.NotificationIDs}, nil
	case "get_unread_count":
		return GetUnreadCount{}, nil
	default:
		return nil, &UnknownTypeError{Type: envelope.Type}
	}
}
