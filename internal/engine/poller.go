package engine

import (
	"context"
	"log"

	"notification-service/internal/models"
	"notification-service/internal/observability"
	"notification-service/internal/protocol"
	"notification-service/internal/repositories"
)

// defaultOutboxBatchSize caps rows drained per tick.
const defaultOutboxBatchSize = 100

// Poller drains due outbox events once per loop tick and pushes them to the
// resolved connections. Delivery is best effort: an event finishes completed
// even when every send fails, and counters record the split. Recipients that
// are offline at dispatch time rely on the pull path instead.
type Poller struct {
	registry  *Registry
	outbox    repositories.OutboxRepository
	batchSize int
	stats     *Stats
}

// NewPoller constructs a Poller.
func NewPoller(registry *Registry, outbox repositories.OutboxRepository, batchSize int, stats *Stats) *Poller {
	if batchSize <= 0 {
		batchSize = defaultOutboxBatchSize
	}
	return &Poller{registry: registry, outbox: outbox, batchSize: batchSize, stats: stats}
}

// Tick processes one batch of pending events. Store errors abandon the tick;
// rows still pending are naturally retried next tick.
func (p *Poller) Tick(ctx context.Context) {
	events, err := p.outbox.PendingEvents(ctx, p.batchSize)
	if err != nil {
		log.Printf("outbox poll failed: %v", err)
		return
	}

	for _, event := range events {
		claimed, err := p.outbox.MarkBroadcasting(ctx, event.ID)
		if err != nil {
			log.Printf("outbox claim failed event=%d: %v", event.ID, err)
			return
		}
		if !claimed {
			continue
		}
		p.broadcast(ctx, event)
	}
}

func (p *Poller) broadcast(ctx context.Context, event models.OutboxEvent) {
	targets := p.resolve(event)

	push := protocol.Push{EventType: event.EventType, Payload: event.Payload}
	successful := 0
	for _, conn := range targets {
		if err := conn.Send(push); err != nil {
			log.Printf("delivery failed event=%d conn=%s: %v", event.ID, conn.ID, err)
			observability.IncDelivery("error")
			continue
		}
		successful++
		observability.IncDelivery("ok")
	}

	total := len(targets)
	failed := total - successful
	p.stats.EventsBroadcast.Add(1)
	p.stats.DeliveriesOK.Add(int64(successful))
	p.stats.DeliveriesFailed.Add(int64(failed))

	if err := p.outbox.FinishBroadcast(ctx, event.ID, total, successful, failed); err != nil {
		// The row is left in broadcasting; there is no retry path for it.
		log.Printf("outbox finalize failed event=%d: %v", event.ID, err)
		p.stats.FinalizeFailures.Add(1)
		observability.IncOutboxEvent("finalize_failed")
		return
	}
	p.stats.EventsCompleted.Add(1)
	observability.IncOutboxEvent(models.StatusCompleted)
}

func (p *Poller) resolve(event models.OutboxEvent) []*Connection {
	switch event.TargetKind {
	case models.TargetUser:
		return p.registry.ConnectionsFor(event.Target())
	case models.TargetRoom:
		return p.registry.ConnectionsIn(event.Target())
	case models.TargetGlobal:
		return p.registry.All()
	default:
		log.Printf("outbox event %d has unknown target kind %q", event.ID, event.TargetKind)
		return nil
	}
}
