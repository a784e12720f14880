package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Target kinds for an outbox event. Exactly one applies per row.
const (
	TargetUser   = "user"
	TargetRoom   = "room"
	TargetGlobal = "global"
)

// Broadcast statuses an outbox row moves through.
const (
	StatusPending      = "pending"
	StatusBroadcasting = "broadcasting"
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
)

// Payload is an opaque key/value map stored as JSONB.
type Payload map[string]any

// Value implements driver.Valuer.
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *Payload) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Payload{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported payload type %T", src)
	}
}

// OutboxEvent is a durable notification event produced by the wider
// application and drained by the broadcast engine. The engine only moves
// broadcast_status forward and records delivery counters; rows are never
// deleted here.
type OutboxEvent struct {
	ID                   int64          `db:"id" json:"id"`
	EventType            string         `db:"event_type" json:"event_type"`
	TargetKind           string         `db:"target_kind" json:"target_kind"`
	TargetValue          sql.NullString `db:"target_value" json:"target_value"`
	Payload              Payload        `db:"payload" json:"payload"`
	ScheduledAt          sql.NullTime   `db:"scheduled_at" json:"scheduled_at"`
	ExpiresAt            sql.NullTime   `db:"expires_at" json:"expires_at"`
	BroadcastStatus      string         `db:"broadcast_status" json:"broadcast_status"`
	TotalTargets         int            `db:"total_targets" json:"total_targets"`
	SuccessfulDeliveries int            `db:"successful_deliveries" json:"successful_deliveries"`
	FailedDeliveries     int            `db:"failed_deliveries" json:"failed_deliveries"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
}

// Target returns the target value or "" for global events.
func (e OutboxEvent) Target() string {
	if e.TargetValue.Valid {
		return e.TargetValue.String
	}
	return ""
}
