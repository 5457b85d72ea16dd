// Package registry implements the in-memory, process-wide connection
// registry: the primary and reverse indexes over live SSE subscribers, and
// the non-blocking fan-out path publishers use to enqueue envelopes onto
// subscriber send queues (spec §4.2, §5).
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	concpool "github.com/sourcegraph/conc/pool"

	"github.com/coachpo/logbroker/internal/envelope"
	"github.com/coachpo/logbroker/internal/idgen"
	"github.com/coachpo/logbroker/internal/principal"
	"github.com/coachpo/logbroker/internal/telemetry"
)

// WriterState is one of the three states a connection's writer may be in
// (spec §4.7).
type WriterState int32

const (
	// StateOpen is the steady state: the writer may deliver envelopes.
	StateOpen WriterState = iota
	// StateDraining is entered on disconnect, write error, or shutdown; no
	// further envelopes are delivered and the connection is removed from
	// the indexes as the first step of draining.
	StateDraining
	// StateClosed is terminal: resources released, id retired.
	StateClosed
)

// EnqueueOutcome is the result of a non-blocking enqueue attempt.
type EnqueueOutcome int

const (
	// Delivered means the envelope was placed onto the send queue.
	Delivered EnqueueOutcome = iota
	// DroppedFull means the send queue was at capacity Q.
	DroppedFull
	// DroppedClosed means the connection was draining or closed.
	DroppedClosed
)

// Connection is one live subscriber. register returns a *Connection that
// doubles as both the registry's identity for the subscriber and the
// connection handle described in spec §4.2 — its only exported mutator is
// TryEnqueue.
//
// sendMu guards the only two operations that touch sendQueue's open/closed
// state: TryEnqueue's send and finishClosing's close. Without it, a publish
// racing a concurrent unregister can observe the connection as open, then
// have the queue closed underneath it before its send executes, and panic
// with "send on closed channel" — sendMu makes the state-check-then-send in
// TryEnqueue and the close in finishClosing mutually exclusive, so one
// always completes entirely before the other begins.
type Connection struct {
	ID           string
	Principal    principal.Principal
	Channels     []string
	ConnectedAt  time.Time
	messagesSent atomic.Int64
	state        atomic.Int32
	sendQueue    chan envelope.Envelope
	sendMu       sync.Mutex
	closeOnce    sync.Once
}

// MessagesSent returns the number of envelopes this connection's writer has
// emitted so far.
func (c *Connection) MessagesSent() int64 { return c.messagesSent.Load() }

// State returns the connection's current writer state.
func (c *Connection) State() WriterState { return WriterState(c.state.Load()) }

// Queue returns the receive side of the send queue for the writer to drain.
// Only the writer goroutine may receive from it.
func (c *Connection) Queue() <-chan envelope.Envelope { return c.sendQueue }

// MarkDelivered increments the per-connection delivered counter. Called by
// the writer after it successfully emits an envelope onto the wire.
func (c *Connection) MarkDelivered() { c.messagesSent.Add(1) }

// TryEnqueue is the connection handle's only mutator (spec §4.2): a
// non-blocking attempt to place env onto the send queue. sendMu makes the
// state check and the send atomic with finishClosing's close, so this call
// either completes entirely before the queue is closed or observes
// StateClosed and never touches the queue at all — it can never land a send
// on an already-closed channel.
func (c *Connection) TryEnqueue(env envelope.Envelope) EnqueueOutcome {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.State() != StateOpen {
		return DroppedClosed
	}
	select {
	case c.sendQueue <- env:
		return Delivered
	default:
		return DroppedFull
	}
}

func (c *Connection) beginDraining() {
	c.state.CompareAndSwap(int32(StateOpen), int32(StateDraining))
}

// finishClosing stores the terminal state and closes the send queue under
// sendMu, the same lock TryEnqueue holds for its check-then-send, so the two
// can never interleave (see Connection's sendMu doc comment).
func (c *Connection) finishClosing() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.state.Store(int32(StateClosed))
	c.closeOnce.Do(func() { close(c.sendQueue) })
}

// Counters are the process-wide statistics spec §3 requires, updated
// atomically.
type Counters struct {
	ConnectionsAccepted int64
	PublishesAccepted   int64
	EnvelopesDelivered  int64
	EnvelopesDropped    int64
	StartedAt           time.Time
}

// Registry owns the primary and reverse indexes over live connections. All
// mutations of both indexes are serialized under mu; fan-out reads take a
// snapshot under a brief read lock so iteration never blocks registrations
// or unregistrations (spec §5).
type Registry struct {
	queueCapacity int
	clock         idgen.Clock
	ids           idgen.Source
	metrics       *telemetry.Instruments
	fanoutWorkers int

	mu          sync.RWMutex
	connections map[string]*Connection
	byChannel   map[string]map[string]*Connection

	connectionsAccepted atomic.Int64
	publishesAccepted   atomic.Int64
	envelopesDelivered  atomic.Int64
	envelopesDropped    atomic.Int64
	startedAt           time.Time
}

// Config configures a Registry.
type Config struct {
	// QueueCapacity is Q, the bounded send-queue capacity per connection
	// (spec §3, default 256).
	QueueCapacity int
	// FanoutWorkers bounds the concurrency of a single Publish call's
	// try_enqueue dispatch; 0 means unbounded (one goroutine per
	// subscriber), mirroring the teacher's fan-out worker pool.
	FanoutWorkers int
	Clock         idgen.Clock
	IDs           idgen.Source
	Metrics       *telemetry.Instruments
}

const defaultQueueCapacity = 256

// New constructs a Registry. A zero-value Config is valid and applies the
// spec's defaults.
func New(cfg Config) *Registry {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}
	if cfg.Clock == nil {
		cfg.Clock = idgen.SystemClock{}
	}
	if cfg.IDs == nil {
		cfg.IDs = idgen.UUIDSource{}
	}
	return &Registry{
		queueCapacity: cfg.QueueCapacity,
		clock:         cfg.Clock,
		ids:           cfg.IDs,
		metrics:       cfg.Metrics,
		fanoutWorkers: cfg.FanoutWorkers,
		connections:   make(map[string]*Connection),
		byChannel:     make(map[string]map[string]*Connection),
		startedAt:     cfg.Clock.Now(),
	}
}

// Register inserts a new open connection, indexes it under each of channels,
// and returns the connection handle (spec §4.2).
func (r *Registry) Register(p principal.Principal, channels []string) *Connection {
	conn := &Connection{
		ID:          r.ids.NewID(),
		Principal:   p,
		Channels:    append([]string(nil), channels...),
		ConnectedAt: r.clock.Now(),
		sendQueue:   make(chan envelope.Envelope, r.queueCapacity),
	}
	conn.state.Store(int32(StateOpen))

	r.mu.Lock()
	r.connections[conn.ID] = conn
	for _, ch := range conn.Channels {
		subs, ok := r.byChannel[ch]
		if !ok {
			subs = make(map[string]*Connection)
			r.byChannel[ch] = subs
		}
		subs[conn.ID] = conn
	}
	r.mu.Unlock()

	r.connectionsAccepted.Add(1)
	if r.metrics != nil {
		r.metrics.ConnectionOpened(len(conn.Channels))
	}
	return conn
}

// Unregister transitions id to closed, removes it from both indexes, and
// releases its send queue. Idempotent (spec §4.2).
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	conn, ok := r.connections[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	conn.beginDraining()
	delete(r.connections, id)
	for _, ch := range conn.Channels {
		subs := r.byChannel[ch]
		delete(subs, id)
		if len(subs) == 0 {
			delete(r.byChannel, ch)
		}
	}
	r.mu.Unlock()

	conn.finishClosing()
	if r.metrics != nil {
		r.metrics.ConnectionClosed()
	}
}

// Subscribers returns a stable snapshot of the subscriber set for channel,
// safe to iterate after the lock is released even if other connections
// register or unregister concurrently (spec §4.2, §5).
func (r *Registry) Subscribers(channelName string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.byChannel[channelName]
	if len(subs) == 0 {
		return nil
	}
	out := make([]*Connection, 0, len(subs))
	for _, c := range subs {
		out = append(out, c)
	}
	return out
}

// PublishResult reports the outcome of a single fan-out call.
type PublishResult struct {
	Delivered int
	Dropped   int
}

// Publish enqueues env into every subscriber of channelName's send queue,
// counting delivered and dropped outcomes, and updates the process-wide
// counters. It never blocks on any individual subscriber's writer (spec
// §4.5, §5): try_enqueue is non-blocking by construction. The dispatch runs
// on a goroutine pool capped at Config.FanoutWorkers, mirroring the
// teacher's fan-out worker pool; with FanoutWorkers at zero the pool runs
// one goroutine per subscriber. Publish returns once every try_enqueue has
// finished.
func (r *Registry) Publish(channelName string, env envelope.Envelope) PublishResult {
	r.publishesAccepted.Add(1)

	subs := r.Subscribers(channelName)
	if len(subs) == 0 {
		return PublishResult{}
	}

	workers := r.fanoutWorkers
	if workers <= 0 || workers > len(subs) {
		workers = len(subs)
	}

	var delivered, dropped atomic.Int64
	p := concpool.New().WithMaxGoroutines(workers)
	for _, sub := range subs {
		s := sub
		p.Go(func() {
			switch s.TryEnqueue(env) {
			case Delivered:
				delivered.Add(1)
			default:
				dropped.Add(1)
			}
		})
	}
	p.Wait()

	d, dr := delivered.Load(), dropped.Load()
	r.envelopesDelivered.Add(d)
	r.envelopesDropped.Add(dr)
	if r.metrics != nil {
		r.metrics.Published(len(subs), int(d), int(dr))
	}
	return PublishResult{Delivered: int(d), Dropped: int(dr)}
}

// Stats returns a snapshot of the process-wide counters, each read
// atomically (spec §4.2, §4.6). Channel and connection counts are not part of
// it; ChannelCount and ActiveConnections report those.
func (r *Registry) Stats() Counters {
	return Counters{
		ConnectionsAccepted: r.connectionsAccepted.Load(),
		PublishesAccepted:   r.publishesAccepted.Load(),
		EnvelopesDelivered:  r.envelopesDelivered.Load(),
		EnvelopesDropped:    r.envelopesDropped.Load(),
		StartedAt:           r.startedAt,
	}
}

// ActiveConnections returns the current number of registered connections.
func (r *Registry) ActiveConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// ChannelSnapshot describes one channel's subscriber set for the admin
// stats endpoint (spec §4.6).
type ChannelSnapshot struct {
	Channel         string
	SubscriberCount int
	Subscribers     []SubscriberSnapshot
}

// SubscriberSnapshot is one connection's public statistics.
type SubscriberSnapshot struct {
	ConnectionID string
	UserID       string
	ConnectedAt  time.Time
	MessagesSent int64
}

// ChannelSnapshots returns a consistent snapshot of every channel with at
// least one subscriber, for the admin stats endpoint.
func (r *Registry) ChannelSnapshots() []ChannelSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ChannelSnapshot, 0, len(r.byChannel))
	for ch, subs := range r.byChannel {
		snap := ChannelSnapshot{Channel: ch, SubscriberCount: len(subs)}
		for _, c := range subs {
			snap.Subscribers = append(snap.Subscribers, SubscriberSnapshot{
				ConnectionID: c.ID,
				UserID:       c.Principal.UserID,
				ConnectedAt:  c.ConnectedAt,
				MessagesSent: c.MessagesSent(),
			})
		}
		out = append(out, snap)
	}
	return out
}

// ChannelCount returns the number of distinct channels with at least one
// subscriber.
func (r *Registry) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChannel)
}

// SubscriberCount returns the number of subscribers currently on channelName.
func (r *Registry) SubscriberCount(channelName string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChannel[channelName])
}

// Shutdown transitions every live connection to draining and unregisters
// it, mirroring the per-writer shutdown signal described in spec §5: all
// writers are signalled, none drain further, and the registry ends empty.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.connections))
	for id := range r.connections {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		r.Unregister(id)
	}
}
