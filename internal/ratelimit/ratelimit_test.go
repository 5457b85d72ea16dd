package ratelimit

import "testing"

func TestAllowWithinBurst(t *testing.T) {
	p := New(1, 3)
	for i := 0; i < 3; i++ {
		if !p.Allow("tok") {
			t.Fatalf("expected call %d within burst to be allowed", i)
		}
	}
	if p.Allow("tok") {
		t.Fatal("expected 4th call to exceed burst")
	}
}

func TestAllowTracksTokensIndependently(t *testing.T) {
	p := New(1, 1)
	if !p.Allow("a") {
		t.Fatal("expected token a's first call allowed")
	}
	if !p.Allow("b") {
		t.Fatal("expected token b's first call allowed independently of a")
	}
	if p.Allow("a") {
		t.Fatal("expected token a's second call to be rate limited")
	}
}
