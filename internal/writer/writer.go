// Package writer implements the per-connection writer loop: it drains a
// connection's send queue strictly FIFO, serializes envelopes onto the SSE
// response stream, and emits heartbeats on an idle timer (spec §4.3, §4.7).
package writer

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/coachpo/logbroker/internal/envelope"
	"github.com/coachpo/logbroker/internal/registry"
	"github.com/coachpo/logbroker/internal/sse"
)

// DefaultHeartbeatInterval is the spec's default idle heartbeat period.
const DefaultHeartbeatInterval = 25 * time.Second

// Writer drains one connection's send queue onto its HTTP response stream.
type Writer struct {
	conn              *registry.Connection
	registry          *registry.Registry
	w                 http.ResponseWriter
	flusher           http.Flusher
	heartbeatInterval time.Duration
	logger            *log.Logger
}

// New constructs a Writer bound to conn and the ResponseWriter serving its
// stream. flusher may be nil if the underlying ResponseWriter does not
// support flushing (writes still happen, just without an explicit flush —
// net/http flushes on handler return regardless).
func New(conn *registry.Connection, reg *registry.Registry, w http.ResponseWriter, heartbeatInterval time.Duration, logger *log.Logger) *Writer {
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	flusher, _ := w.(http.Flusher)
	return &Writer{
		conn:              conn,
		registry:          reg,
		w:                 w,
		flusher:           flusher,
		heartbeatInterval: heartbeatInterval,
		logger:            logger,
	}
}

// Run drives the writer loop until the request context is cancelled (client
// disconnect or server shutdown), the send queue is closed, or a write
// fails. It always unregisters the connection before returning (spec §4.3:
// "On client disconnect: stop; request the registry to unregister"; §4.7:
// draining begins as the first step of teardown, which Unregister performs
// by removing the connection from both indexes before this method's defer
// runs the rest of its own cleanup).
func (w *Writer) Run(ctx context.Context) {
	defer w.registry.Unregister(w.conn.ID)

	timer := time.NewTimer(w.heartbeatInterval)
	defer timer.Stop()

	queue := w.conn.Queue()
	for {
		select {
		case env, ok := <-queue:
			if !ok {
				return
			}
			if err := w.writeData(env); err != nil {
				w.logf("write data: %v", err)
				return
			}
			w.conn.MarkDelivered()
			w.resetTimer(timer)

		case <-timer.C:
			if err := sse.WriteHeartbeat(w.w); err != nil {
				w.logf("write heartbeat: %v", err)
				return
			}
			w.flush()
			w.resetTimer(timer)

		case <-ctx.Done():
			return
		}
	}
}

func (w *Writer) writeData(env envelope.Envelope) error {
	body, err := env.EncodeData()
	if err != nil {
		return err
	}
	if err := sse.WriteData(w.w, env.ID, body); err != nil {
		return err
	}
	w.flush()
	return nil
}

func (w *Writer) flush() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}

func (w *Writer) resetTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(w.heartbeatInterval)
}

func (w *Writer) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}
