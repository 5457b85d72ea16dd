// Package jsonenc provides a goccy/go-json writer for the broker's JSON HTTP
// responses that encodes into a pooled bytes.Buffer, after the teacher's
// pool.AcquireJSONEncoder / ReleaseJSONEncoder pattern (internal/pool,
// internal/dispatcher/control_http.go). The buffer is reused across
// requests; a new encoder is still created for each call.
package jsonenc

import (
	"bytes"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
)

var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// WriteJSON encodes v as JSON and writes it to w with the given status code
// and a Content-Type: application/json header, reusing a pooled buffer
// across calls.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
