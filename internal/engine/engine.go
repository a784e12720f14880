package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"go.opentelemetry.io/otel"

	"notification-service/internal/auth"
	"notification-service/internal/observability"
	"notification-service/internal/protocol"
	"notification-service/internal/rabbitmq"
	"notification-service/internal/repositories"
	"notification-service/internal/ws"
)

const (
	// tickSleep bounds CPU usage of the loop.
	tickSleep = 10 * time.Millisecond
	// ioPoll is how long a single non-blocking accept/read may wait.
	ioPoll = time.Millisecond
	// handshakeTimeout bounds the initial header read on a fresh socket.
	handshakeTimeout = 500 * time.Millisecond
	// idleTimeout is the reaper threshold for connections without activity.
	idleTimeout = 120 * time.Second

	maxHandshakeBytes = 8192
	readChunkSize     = 4096

	wsEventsRoutingKey = "ws_events.notifications"
)

// Config controls one engine instance.
type Config struct {
	Host            string
	Port            int
	IdleTimeout     time.Duration
	TickSleep       time.Duration
	OutboxBatchSize int
}

// Engine runs the broadcast loop: accept, read, poll the outbox, reap idle
// connections, sleep. Everything that mutates the registry runs on the loop
// goroutine, which is the design's whole concurrency story: no locks.
type Engine struct {
	cfg       Config
	registry  *Registry
	router    *Router
	poller    *Poller
	publisher rabbitmq.Publisher
	stats     Stats

	listener  *net.TCPListener
	readChunk []byte
}

// New wires an engine from its collaborators.
func New(cfg Config, validator auth.TokenValidator, outbox repositories.OutboxRepository,
	notifications repositories.NotificationRepository, publisher rabbitmq.Publisher) *Engine {

	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = idleTimeout
	}
	if cfg.TickSleep <= 0 {
		cfg.TickSleep = tickSleep
	}

	e := &Engine{
		cfg:       cfg,
		registry:  NewRegistry(),
		publisher: publisher,
		readChunk: make([]byte, readChunkSize),
	}
	e.router = NewRouter(e.registry, validator, notifications)
	e.poller = NewPoller(e.registry, outbox, cfg.OutboxBatchSize, &e.stats)
	return e
}

// Listen binds the TCP listener. Call before Run; Addr is valid afterwards.
func (e *Engine) Listen() error {
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	e.listener = listener.(*net.TCPListener)
	log.Printf("notification engine listening on %s", listener.Addr())
	return nil
}

// Addr reports the bound listener address.
func (e *Engine) Addr() net.Addr {
	return e.listener.Addr()
}

// Stats exposes the engine counters for the ops endpoints.
func (e *Engine) Stats() *Stats {
	return &e.stats
}

// Run drives the loop until ctx is cancelled. The process entrypoint passes
// a background context, so in production the loop runs until the process is
// killed; tests cancel it to shut a fixture engine down.
func (e *Engine) Run(ctx context.Context) error {
	if e.listener == nil {
		if err := e.Listen(); err != nil {
			return err
		}
	}
	defer e.shutdown()

	for ctx.Err() == nil {
		e.tick(ctx)
		time.Sleep(e.cfg.TickSleep)
	}
	return ctx.Err()
}

// tick is one loop iteration: accept at most one connection, read every
// socket, drain the outbox, evict idle connections.
func (e *Engine) tick(ctx context.Context) {
	e.acceptOne(ctx)
	e.readPhase(ctx)
	e.poller.Tick(ctx)
	e.reapIdle(time.Now())
}

func (e *Engine) shutdown() {
	_ = e.listener.Close()
	for _, conn := range e.registry.All() {
		e.disconnect(conn, "server shutdown")
	}
}

func (e *Engine) acceptOne(ctx context.Context) {
	_ = e.listener.SetDeadline(time.Now().Add(ioPoll))
	socket, err := e.listener.Accept()
	if err != nil {
		if !errors.Is(err, os.ErrDeadlineExceeded) {
			log.Printf("accept failed: %v", err)
		}
		return
	}

	_, span := otel.Tracer("notification-service/engine").Start(ctx, "ws.handshake")
	defer span.End()

	if err := e.handshake(socket); err != nil {
		// Protocol errors are fatal for the attempt: close without a response.
		log.Printf("handshake rejected from %s: %v", socket.RemoteAddr(), err)
		_ = socket.Close()
		return
	}
}

// handshake reads the upgrade request, answers 101, and registers the
// connection.
func (e *Engine) handshake(socket net.Conn) error {
	_ = socket.SetReadDeadline(time.Now().Add(handshakeTimeout))

	var request []byte
	chunk := make([]byte, readChunkSize)
	for !bytes.Contains(request, []byte("\r\n\r\n")) {
		if len(request) > maxHandshakeBytes {
			return errors.New("handshake request too large")
		}
		n, err := socket.Read(chunk)
		if err != nil {
			return fmt.Errorf("read handshake: %w", err)
		}
		request = append(request, chunk[:n]...)
	}

	response, err := ws.Negotiate(request)
	if err != nil {
		return err
	}
	if _, err := socket.Write(response); err != nil {
		return fmt.Errorf("write handshake response: %w", err)
	}

	conn := newConnection(socket)
	e.registry.Add(conn)
	e.stats.ConnectionsOpen.Add(1)
	e.stats.ConnectionsTotal.Add(1)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	e.publishWSEvent(conn, "ws_connect", "")

	if err := conn.Send(protocol.ConnectionEstablished{ClientID: conn.ID}); err != nil {
		e.disconnect(conn, err.Error())
	}
	return nil
}

// readPhase does one non-blocking read attempt per connection and feeds any
// complete frames through the codec and router.
func (e *Engine) readPhase(ctx context.Context) {
	for _, conn := range e.registry.All() {
		_ = conn.conn.SetReadDeadline(time.Now().Add(ioPoll))
		n, err := conn.conn.Read(e.readChunk)
		if n > 0 {
			conn.readBuf = append(conn.readBuf, e.readChunk[:n]...)
			e.drainFrames(ctx, conn)
		}
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			e.disconnect(conn, err.Error())
		}
	}
}

func (e *Engine) drainFrames(ctx context.Context, conn *Connection) {
	for {
		frame, consumed, err := ws.DecodeFrame(conn.readBuf)
		if errors.Is(err, ws.ErrIncompleteFrame) {
			return
		}
		if err != nil {
			// Oversized or otherwise malformed framing is unrecoverable;
			// drop the connection rather than trust the byte stream.
			e.disconnect(conn, err.Error())
			return
		}
		conn.readBuf = conn.readBuf[consumed:]

		switch {
		case frame.Opcode == ws.OpcodeClose:
			e.disconnect(conn, "client closed")
			return
		case frame.Opcode == ws.OpcodePing:
			conn.Touch()
			if err := conn.writeFrame(ws.OpcodePong, frame.Payload); err != nil {
				e.disconnect(conn, err.Error())
				return
			}
		case frame.Opcode == ws.OpcodePong:
			conn.Touch()
		case frame.Opcode == ws.OpcodeText && frame.FIN:
			conn.Touch()
			e.dispatch(ctx, conn, frame.Payload)
		default:
			// Binary and continuation frames are outside the protocol; drop
			// them.
		}
		if _, live := e.registry.Get(conn.ID); !live {
			return
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, conn *Connection, payload []byte) {
	e.stats.MessagesRouted.Add(1)

	var replies []protocol.ServerMessage
	msg, err := protocol.DecodeClient(payload)
	if err != nil {
		// Message-level errors keep the connection alive.
		replies = []protocol.ServerMessage{protocol.ErrorReply{Error: err.Error()}}
	} else {
		replies = e.router.Handle(ctx, conn, msg)
	}

	for _, reply := range replies {
		if err := conn.Send(reply); err != nil {
			e.disconnect(conn, err.Error())
			return
		}
	}
}

// reapIdle evicts connections silent for longer than the idle threshold.
func (e *Engine) reapIdle(now time.Time) {
	for _, conn := range e.registry.All() {
		if now.Sub(conn.LastActivity) > e.cfg.IdleTimeout {
			e.stats.Reaped.Add(1)
			observability.IncWSEvent("ws_reaped")
			e.disconnect(conn, "ping timeout")
		}
	}
}

// disconnect tears a connection down: indices first, then the socket.
// Idempotent: a second call for the same id is a no-op.
func (e *Engine) disconnect(conn *Connection, reason string) {
	if _, live := e.registry.Get(conn.ID); !live {
		return
	}
	e.registry.Remove(conn.ID)
	conn.close()
	e.stats.ConnectionsOpen.Add(-1)
	observability.DecWSActive()
	observability.IncWSEvent("ws_disconnect")
	e.publishWSEvent(conn, "ws_disconnect", reason)
}

func (e *Engine) publishWSEvent(conn *Connection, event, reason string) {
	if e.publisher == nil {
		return
	}
	envelope := observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: observability.WSEventPayload{
			ConnID:     conn.ID,
			UserID:     conn.UserID,
			RemoteAddr: conn.RemoteAddr(),
			Event:      event,
			DurationMS: time.Since(conn.ConnectedAt).Milliseconds(),
			Reason:     reason,
		},
	}
	if err := e.publisher.Publish(context.Background(), wsEventsRoutingKey, envelope); err != nil {
		observability.IncAMQPPublishError()
	}
}
