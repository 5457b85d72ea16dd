package jsonenc

import (
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteJSON(rec, 201, map[string]any{"ok": true}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if rec.Code != 201 {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected non-empty body")
	}
}

func TestWriteJSONReusesBufferAcrossCalls(t *testing.T) {
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		if err := WriteJSON(rec, 200, map[string]int{"i": i}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}
