package engine

import "sync/atomic"

// Stats are engine counters safe to read from outside the loop goroutine
// (the ops endpoints poll them).
type Stats struct {
	ConnectionsOpen  atomic.Int64
	ConnectionsTotal atomic.Int64
	MessagesRouted   atomic.Int64
	EventsBroadcast  atomic.Int64
	EventsCompleted  atomic.Int64
	FinalizeFailures atomic.Int64
	DeliveriesOK     atomic.Int64
	DeliveriesFailed atomic.Int64
	Reaped           atomic.Int64
}

// StatsSnapshot is a point-in-time copy for the ops endpoint.
type StatsSnapshot struct {
	ConnectionsOpen  int64 `json:"connections_open"`
	ConnectionsTotal int64 `json:"connections_total"`
	MessagesRouted   int64 `json:"messages_routed"`
	EventsBroadcast  int64 `json:"events_broadcast"`
	EventsCompleted  int64 `json:"events_completed"`
	FinalizeFailures int64 `json:"finalize_failures"`
	DeliveriesOK     int64 `json:"deliveries_ok"`
	DeliveriesFailed int64 `json:"deliveries_failed"`
	Reaped           int64 `json:"reaped_connections"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		ConnectionsOpen:  s.ConnectionsOpen.Load(),
		ConnectionsTotal: s.ConnectionsTotal.Load(),
		MessagesRouted:   s.MessagesRouted.Load(),
		EventsBroadcast:  s.EventsBroadcast.Load(),
		EventsCompleted:  s.EventsCompleted.Load(),
		FinalizeFailures: s.FinalizeFailures.Load(),
		DeliveriesOK:     s.DeliveriesOK.Load(),
		DeliveriesFailed: s.DeliveriesFailed.Load(),
		Reaped:           s.Reaped.Load(),
	}
}
