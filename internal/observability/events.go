package observability

// EventEnvelope wraps a lifecycle event published to the message broker.
type EventEnvelope struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	Payload   any    `json:"payload"`
}

// WSEventPayload describes one websocket lifecycle transition.
type WSEventPayload struct {
	ConnID     string `json:"conn_id"`
	UserID     string `json:"user_id,omitempty"`
	RemoteAddr string `json:"remote_addr"`
	Event      string `json:"event"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
}
