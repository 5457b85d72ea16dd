package registry

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coachpo/logbroker/internal/envelope"
	"github.com/coachpo/logbroker/internal/principal"
)

func newEnv(channel, id string) envelope.Envelope {
	return envelope.Envelope{
		ID:          id,
		Channel:     channel,
		Payload:     json.RawMessage(`{"level":"INFO"}`),
		PublishedAt: time.Now(),
	}
}

func TestRegisterAddsToReverseIndex(t *testing.T) {
	r := New(Config{})
	p := principal.New("user123", []string{"w1"}, nil)
	conn := r.Register(p, []string{"logs:etl:w1:wf1"})

	subs := r.Subscribers("logs:etl:w1:wf1")
	if len(subs) != 1 || subs[0].ID != conn.ID {
		t.Fatalf("expected conn in reverse index, got %v", subs)
	}
	if r.ChannelCount() != 1 {
		t.Fatalf("expected 1 channel, got %d", r.ChannelCount())
	}
}

func TestUnregisterRemovesFromBothIndexesAndIsIdempotent(t *testing.T) {
	r := New(Config{})
	p := principal.New("user123", []string{"w1"}, nil)
	conn := r.Register(p, []string{"logs:etl:w1:wf1"})

	r.Unregister(conn.ID)
	if got := r.Subscribers("logs:etl:w1:wf1"); len(got) != 0 {
		t.Fatalf("expected empty subscriber set, got %v", got)
	}
	if r.ActiveConnections() != 0 {
		t.Fatalf("expected 0 active connections, got %d", r.ActiveConnections())
	}
	if conn.State() != StateClosed {
		t.Fatalf("expected closed state, got %v", conn.State())
	}

	// Idempotent: unregistering again must not panic.
	r.Unregister(conn.ID)
}

func TestEmptyChannelEntriesAreRemoved(t *testing.T) {
	r := New(Config{})
	p := principal.New("u", []string{"w1"}, nil)
	conn := r.Register(p, []string{"logs:etl:w1"})
	r.Unregister(conn.ID)
	if r.ChannelCount() != 0 {
		t.Fatalf("expected channel entry to be removed once empty, got %d", r.ChannelCount())
	}
}

func TestTryEnqueueDropsAfterClosed(t *testing.T) {
	r := New(Config{QueueCapacity: 4})
	p := principal.New("u", []string{"w1"}, nil)
	conn := r.Register(p, []string{"logs:etl:w1"})
	r.Unregister(conn.ID)

	if outcome := conn.TryEnqueue(newEnv("logs:etl:w1", "e1")); outcome != DroppedClosed {
		t.Fatalf("expected DroppedClosed, got %v", outcome)
	}
}

func TestTryEnqueueDropsFullAtCapacityQ(t *testing.T) {
	r := New(Config{QueueCapacity: 4})
	p := principal.New("u", []string{"w1"}, nil)
	conn := r.Register(p, []string{"logs:etl:w1"})

	for i := 0; i < 4; i++ {
		if outcome := conn.TryEnqueue(newEnv("logs:etl:w1", "e")); outcome != Delivered {
			t.Fatalf("expected Delivered for envelope %d, got %v", i, outcome)
		}
	}
	if outcome := conn.TryEnqueue(newEnv("logs:etl:w1", "overflow")); outcome != DroppedFull {
		t.Fatalf("expected DroppedFull at capacity, got %v", outcome)
	}
}

func TestPublishEmptySubscriberSet(t *testing.T) {
	r := New(Config{})
	result := r.Publish("logs:etl:w1", newEnv("logs:etl:w1", "e1"))
	if result.Delivered != 0 || result.Dropped != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestPublishDeliversInOrderToEachSubscriber(t *testing.T) {
	r := New(Config{QueueCapacity: 16})
	p := principal.New("u", []string{"w1"}, nil)
	c1 := r.Register(p, []string{"logs:etl:w1:wf1"})
	c2 := r.Register(p, []string{"logs:etl:w1:wf1"})

	env1 := newEnv("logs:etl:w1:wf1", "e1")
	env2 := newEnv("logs:etl:w1:wf1", "e2")
	res1 := r.Publish("logs:etl:w1:wf1", env1)
	res2 := r.Publish("logs:etl:w1:wf1", env2)

	if res1.Delivered != 2 || res2.Delivered != 2 {
		t.Fatalf("expected delivered=2 for both publishes, got %+v %+v", res1, res2)
	}

	for _, c := range []*Connection{c1, c2} {
		first := <-c.Queue()
		second := <-c.Queue()
		if first.ID != "e1" || second.ID != "e2" {
			t.Fatalf("expected FIFO order e1,e2 got %s,%s", first.ID, second.ID)
		}
	}
}

func TestPublishShedsSlowSubscriberWithoutAffectingFastOne(t *testing.T) {
	r := New(Config{QueueCapacity: 4})
	p := principal.New("u", []string{"w1"}, nil)
	slow := r.Register(p, []string{"logs:etl:w1"})
	fast := r.Register(p, []string{"logs:etl:w1"})

	const total = 10
	var lastResult PublishResult
	fastReceived := 0
	for i := 0; i < total; i++ {
		// Drain the fast subscriber every iteration so it never fills up.
		lastResult = r.Publish("logs:etl:w1", newEnv("logs:etl:w1", "e"))
		select {
		case <-fast.Queue():
			fastReceived++
		default:
		}
	}
	_ = lastResult

	if fastReceived != total {
		t.Fatalf("expected fast subscriber to receive all %d envelopes, got %d", total, fastReceived)
	}

	if fast.MessagesSent() != 0 {
		// MessagesSent is incremented by the writer, not Publish; this just
		// documents that Publish itself never touches it.
		t.Fatalf("Publish must not mutate MessagesSent directly")
	}

	// The slow subscriber's queue caps at capacity; further enqueues for it
	// must have been dropped rather than blocking the fast one.
	if outcome := slow.TryEnqueue(newEnv("logs:etl:w1", "probe")); outcome != DroppedFull {
		t.Fatalf("expected slow subscriber queue to be saturated, got %v", outcome)
	}
}

func TestShutdownUnregistersAllConnections(t *testing.T) {
	r := New(Config{})
	p := principal.New("u", []string{"w1"}, nil)
	r.Register(p, []string{"logs:etl:w1"})
	r.Register(p, []string{"logs:etl:w1"})

	r.Shutdown()

	if r.ActiveConnections() != 0 {
		t.Fatalf("expected 0 active connections after shutdown, got %d", r.ActiveConnections())
	}
	if r.ChannelCount() != 0 {
		t.Fatalf("expected 0 channels after shutdown, got %d", r.ChannelCount())
	}
}

func TestStatsSnapshotCounters(t *testing.T) {
	r := New(Config{QueueCapacity: 4})
	p := principal.New("u", []string{"w1"}, nil)
	r.Register(p, []string{"logs:etl:w1"})
	r.Publish("logs:etl:w1", newEnv("logs:etl:w1", "e1"))

	stats := r.Stats()
	if stats.ConnectionsAccepted != 1 {
		t.Errorf("ConnectionsAccepted = %d", stats.ConnectionsAccepted)
	}
	if stats.PublishesAccepted != 1 {
		t.Errorf("PublishesAccepted = %d", stats.PublishesAccepted)
	}
	if stats.EnvelopesDelivered != 1 {
		t.Errorf("EnvelopesDelivered = %d", stats.EnvelopesDelivered)
	}
}
