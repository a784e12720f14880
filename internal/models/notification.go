package models

import "time"

// Notification is a row in the notifications table. The table is owned and
// written by the wider application; this service reads unread rows and flips
// read_at on behalf of connected clients.
type Notification struct {
	ID               int64      `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"user_id"`
	NotificationType string     `db:"notification_type" json:"notification_type"`
	Payload          Payload    `db:"payload" json:"payload"`
	ReadAt           *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}
