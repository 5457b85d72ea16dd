// Package sse renders the three SSE record shapes the broker emits (spec
// §6.1) and sets the fixed response headers the subscribe endpoint requires.
package sse

import (
	"fmt"
	"io"
	"net/http"
)

// SetHeaders writes the exact response headers spec §6.1 mandates, plus any
// configured CORS origin. It must be called before any body bytes are
// written.
func SetHeaders(w http.ResponseWriter, corsOrigin string) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	if corsOrigin != "" {
		h.Set("Access-Control-Allow-Origin", corsOrigin)
	}
	w.WriteHeader(http.StatusOK)
}

// WriteRetry writes the EventSource reconnect hint. This is additive wire
// preamble (SPEC_FULL §6.1) written once, before the handshake record; it is
// not one of the three record shapes the broker's steady-state stream emits.
func WriteRetry(w io.Writer, ms int) error {
	_, err := fmt.Fprintf(w, "retry: %d\n\n", ms)
	return err
}

// WriteHandshake writes the initial "type":"connection" record (spec
// §6.1.2): a single data: line, no id: prefix.
func WriteHandshake(w io.Writer, body []byte) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", body)
	return err
}

// WriteData writes a data record (spec §6.1.1): an id: line followed by a
// data: line.
func WriteData(w io.Writer, id string, body []byte) error {
	_, err := fmt.Fprintf(w, "id: %s\ndata: %s\n\n", id, body)
	return err
}

// WriteHeartbeat writes the heartbeat comment line (spec §6.1.3): a single
// line beginning with ':'.
func WriteHeartbeat(w io.Writer) error {
	_, err := io.WriteString(w, ":ping\n\n")
	return err
}
