package engine

import (
	"context"
	"log"

	"notification-service/internal/auth"
	"notification-service/internal/protocol"
	"notification-service/internal/repositories"
)

const errAuthRequired = "authentication required"

// Router dispatches decoded client messages. Each handler returns the
// replies to send; errors surface as an error reply and leave all state
// untouched. The single caller writes the replies out.
type Router struct {
	registry      *Registry
	validator     auth.TokenValidator
	notifications repositories.NotificationRepository
}

// NewRouter constructs a Router.
func NewRouter(registry *Registry, validator auth.TokenValidator, notifications repositories.NotificationRepository) *Router {
	return &Router{registry: registry, validator: validator, notifications: notifications}
}

// Handle processes one client message for the given connection.
func (r *Router) Handle(ctx context.Context, conn *Connection, msg protocol.ClientMessage) []protocol.ServerMessage {
	switch m := msg.(type) {
	case protocol.Authenticate:
		return r.handleAuthenticate(ctx, conn, m)
	case protocol.Ping:
		return []protocol.ServerMessage{protocol.Pong{}}
	case protocol.JoinRoom:
		if !conn.Authenticated {
			return []protocol.ServerMessage{protocol.ErrorReply{Error: errAuthRequired}}
		}
		r.registry.Join(conn.ID, m.Room)
		return []protocol.ServerMessage{protocol.RoomJoined{Room: m.Room}}
	case protocol.LeaveRoom:
		if !conn.Authenticated {
			return []protocol.ServerMessage{protocol.ErrorReply{Error: errAuthRequired}}
		}
		r.registry.Leave(conn.ID, m.Room)
		return []protocol.ServerMessage{protocol.RoomLeft{Room: m.Room}}
	case protocol.MarkNotificationRead:
		return r.handleMarkRead(ctx, conn, m)
	case protocol.GetUnreadCount:
		if !conn.Authenticated {
			return []protocol.ServerMessage{protocol.ErrorReply{Error: errAuthRequired}}
		}
		count, err := r.notifications.UnreadCount(ctx, conn.UserID)
		if err != nil {
			log.Printf("unread count query failed user=%s: %v", conn.UserID, err)
			return []protocol.ServerMessage{protocol.ErrorReply{Error: "failed to fetch unread count"}}
		}
		return []protocol.ServerMessage{protocol.UnreadCount{Count: count}}
	default:
		// Unreachable: DecodeClient only yields the closed variant set.
		return []protocol.ServerMessage{protocol.ErrorReply{Error: "unknown message type"}}
	}
}

func (r *Router) handleAuthenticate(ctx context.Context, conn *Connection, msg protocol.Authenticate) []protocol.ServerMessage {
	identity, err := r.validator.Validate(ctx, msg.Token)
	if err != nil {
		return []protocol.ServerMessage{protocol.ErrorReply{Error: "invalid token"}}
	}

	r.registry.Authenticate(conn.ID, identity)
	replies := []protocol.ServerMessage{protocol.Authenticated{UserID: identity.UserID}}

	// Push-path delivery is best effort; the pull on connect is what closes
	// the gap for notifications produced while the client was offline.
	pending, err := r.notifications.UnreadForUser(ctx, identity.UserID)
	if err != nil {
		log.Printf("pending notifications fetch failed user=%s: %v", identity.UserID, err)
		return replies
	}
	return append(replies, protocol.PendingNotifications{Notifications: pending, Count: len(pending)})
}

func (r *Router) handleMarkRead(ctx context.Context, conn *Connection, msg protocol.MarkNotificationRead) []protocol.ServerMessage {
	if !conn.Authenticated {
		return []protocol.ServerMessage{protocol.ErrorReply{Error: errAuthRequired}}
	}
	if err := r.notifications.MarkRead(ctx, conn.UserID, msg.NotificationIDs); err != nil {
		log.Printf("mark read failed user=%s: %v", conn.UserID, err)
		return []protocol.ServerMessage{protocol.ErrorReply{Error: "failed to mark notifications read"}}
	}
	return []protocol.ServerMessage{protocol.NotificationsMarkedRead{NotificationIDs: msg.NotificationIDs}}
}
