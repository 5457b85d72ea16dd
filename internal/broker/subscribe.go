package broker

import (
	"net/http"
	"strings"

	"github.com/coachpo/logbroker/internal/brokererr"
	"github.com/coachpo/logbroker/internal/channel"
	"github.com/coachpo/logbroker/internal/envelope"
	"github.com/coachpo/logbroker/internal/sse"
	"github.com/coachpo/logbroker/internal/writer"
)

// handleSubscribe implements GET /api/logs/stream (spec §4.1, §6.1): resolve
// the principal, filter the requested channels down to the authorized
// subset, register a connection, and hand the response off to a Writer for
// the lifetime of the stream.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	p, err := s.resolver.Resolve(r)
	if err != nil {
		writeErr(w, brokererr.New(brokererr.KindUnauthenticated, "principal resolution failed", brokererr.WithCause(err)))
		return
	}

	requested := parseChannelsParam(r)
	authorized := channel.FilterAuthorized(requested, p)

	corsOrigin := s.cfg.AllowedOrigin(r.Header.Get("Origin"))
	sse.SetHeaders(w, corsOrigin)
	_ = sse.WriteRetry(w, 3000)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	conn := s.registry.Register(p, authorized)

	body, err := envelope.EncodeConnectionRecord(authorized, p.UserID, conn.ID, s.clock.Now())
	if err != nil {
		s.registry.Unregister(conn.ID)
		return
	}
	if err := sse.WriteHandshake(w, body); err != nil {
		s.registry.Unregister(conn.ID)
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	writer.New(conn, s.registry, w, s.cfg.HeartbeatInterval, s.logger).Run(r.Context())
}

// parseChannelsParam reads the "channels" query parameter, accepting both
// repeated values (?channels=a&channels=b) and a single comma-separated
// value (?channels=a,b), and any mix of the two.
func parseChannelsParam(r *http.Request) []string {
	values := r.URL.Query()["channels"]
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
