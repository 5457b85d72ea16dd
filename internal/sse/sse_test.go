package sse

import (
	"bytes"
	"net/http/httptest"
	"testing"
)

func TestSetHeadersExactSet(t *testing.T) {
	rec := httptest.NewRecorder()
	SetHeaders(rec, "https://example.com")

	want := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache, no-transform",
		"Connection":                  "keep-alive",
		"X-Accel-Buffering":           "no",
		"Access-Control-Allow-Origin": "https://example.com",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestWriteDataShape(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteData(&buf, "env-1", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	want := "id: env-1\ndata: {\"a\":1}\n\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteHandshakeShapeHasNoIDLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHandshake(&buf, []byte(`{"type":"connection"}`)); err != nil {
		t.Fatalf("WriteHandshake: %v", err)
	}
	want := "data: {\"type\":\"connection\"}\n\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteHeartbeatIsCommentLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeartbeat(&buf); err != nil {
		t.Fatalf("WriteHeartbeat: %v", err)
	}
	if buf.String() != ":ping\n\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteRetry(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRetry(&buf, 3000); err != nil {
		t.Fatalf("WriteRetry: %v", err)
	}
	if buf.String() != "retry: 3000\n\n" {
		t.Errorf("got %q", buf.String())
	}
}
