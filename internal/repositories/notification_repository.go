package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"notification-service/internal/models"
)

var ErrNoNotificationIDs = errors.New("no notification ids given")

// NotificationRepository defines read/mark access to the notifications table.
type NotificationRepository interface {
	UnreadForUser(ctx context.Context, userID string) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, notificationIDs []int64) error
}

// NotificationRepo is a sqlx-backed repository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// UnreadForUser returns the user's unread notifications, oldest first.
func (r *NotificationRepo) UnreadForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	query := `SELECT id, user_id, notification_type, payload, read_at, created_at
        FROM notifications
        WHERE user_id = $1 AND read_at IS NULL
        ORDER BY created_at ASC`
	var notifications []models.Notification
	err := r.db.SelectContext(ctx, &notifications, query, userID)
	return notifications, err
}

// UnreadCount returns the number of unread notifications for the user.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID)
	return count, err
}

// MarkRead flips read_at on the given rows. The update is scoped to the user
// so one client cannot mark another user's notifications.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID string, notificationIDs []int64) error {
	if len(notificationIDs) == 0 {
		return ErrNoNotificationIDs
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND id = ANY($2) AND read_at IS NULL`,
		userID, pq.Array(notificationIDs))
	return err
}
