package svcauth

import "testing"

func TestTokenMapAuthorize(t *testing.T) {
	m := TokenMap{"l5-etl-token": "etl"}
	if !m.Authorize("l5-etl-token", "etl", "logs:etl:w1") {
		t.Error("expected authorized")
	}
	if m.Authorize("wrong", "etl", "logs:etl:w1") {
		t.Error("expected unknown token rejected")
	}
	if m.Authorize("l5-etl-token", "faas", "logs:etl:w1") {
		t.Error("expected service/token mismatch rejected")
	}
	if m.Authorize("", "etl", "logs:etl:w1") {
		t.Error("expected empty token rejected")
	}
}

func TestParseTokenMap(t *testing.T) {
	m := ParseTokenMap("l5-etl-token=etl, l5-faas-token = faas ,bad,=noservice,notoken=")
	if len(m) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(m), m)
	}
	if m["l5-etl-token"] != "etl" {
		t.Errorf("expected etl token mapped")
	}
	if m["l5-faas-token"] != "faas" {
		t.Errorf("expected faas token mapped")
	}
}
