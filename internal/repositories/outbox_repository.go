package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"notification-service/internal/models"
)

// OutboxRepository defines interactions with the outbox_events table.
type OutboxRepository interface {
	PendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkBroadcasting(ctx context.Context, eventID int64) (bool, error)
	FinishBroadcast(ctx context.Context, eventID int64, total, successful, failed int) error
}

// OutboxRepo is a sqlx-backed repository.
type OutboxRepo struct {
	db *sqlx.DB
}

// NewOutboxRepo constructs OutboxRepo.
func NewOutboxRepo(db *sqlx.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// PendingEvents returns due, unexpired pending events ordered by schedule.
func (r *OutboxRepo) PendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	query := `SELECT id, event_type, target_kind, target_value, payload, scheduled_at, expires_at,
            broadcast_status, total_targets, successful_deliveries, failed_deliveries, created_at
        FROM outbox_events
        WHERE broadcast_status = 'pending'
        AND (scheduled_at IS NULL OR scheduled_at <= NOW())
        AND (expires_at IS NULL OR expires_at > NOW())
        ORDER BY scheduled_at ASC NULLS FIRST
        LIMIT $1`
	var events []models.OutboxEvent
	err := r.db.SelectContext(ctx, &events, query, limit)
	return events, err
}

// MarkBroadcasting flips a pending event to broadcasting. Returns false when
// the row was no longer pending, in which case the caller must skip it.
func (r *OutboxRepo) MarkBroadcasting(ctx context.Context, eventID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET broadcast_status = 'broadcasting' WHERE id = $1 AND broadcast_status = 'pending'`,
		eventID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FinishBroadcast records delivery counters and the terminal completed status.
func (r *OutboxRepo) FinishBroadcast(ctx context.Context, eventID int64, total, successful, failed int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events
            SET broadcast_status = 'completed', total_targets = $2, successful_deliveries = $3, failed_deliveries = $4
            WHERE id = $1`,
		eventID, total, successful, failed)
	return err
}
