package telemetry

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/metric"
)

// Instruments holds the registry's OpenTelemetry counters, mirroring the
// instrument set the teacher's eventbus.MemoryBus records
// (eventbus.events.published, eventbus.subscribers, eventbus.delivery.blocked)
// but scoped to connections and envelopes instead of canonical events.
type Instruments struct {
	connectionsOpened  metric.Int64Counter
	connectionsGauge   metric.Int64UpDownCounter
	envelopesPublished metric.Int64Counter
	envelopesDelivered metric.Int64Counter
	envelopesDropped   metric.Int64Counter
	fanoutSize         metric.Int64Histogram
}

// NewInstruments registers the registry's counters against the given
// meter. Errors from instrument creation are logged and the corresponding
// instrument left nil; nil instruments are skipped at record time so a
// misconfigured exporter never takes the broker down.
func NewInstruments(meter metric.Meter, logger *log.Logger) *Instruments {
	in := &Instruments{}
	var err error

	in.connectionsOpened, err = meter.Int64Counter("logbroker.connections.opened",
		metric.WithDescription("Number of SSE connections accepted"),
		metric.WithUnit("{connection}"))
	logInstrumentErr(logger, "connections.opened", err)

	in.connectionsGauge, err = meter.Int64UpDownCounter("logbroker.connections.active",
		metric.WithDescription("Number of currently active SSE connections"),
		metric.WithUnit("{connection}"))
	logInstrumentErr(logger, "connections.active", err)

	in.envelopesPublished, err = meter.Int64Counter("logbroker.publishes.total",
		metric.WithDescription("Number of publish requests accepted"),
		metric.WithUnit("{publish}"))
	logInstrumentErr(logger, "publishes.total", err)

	in.envelopesDelivered, err = meter.Int64Counter("logbroker.envelopes.delivered",
		metric.WithDescription("Number of envelopes delivered to subscriber queues"),
		metric.WithUnit("{envelope}"))
	logInstrumentErr(logger, "envelopes.delivered", err)

	in.envelopesDropped, err = meter.Int64Counter("logbroker.envelopes.dropped",
		metric.WithDescription("Number of envelopes dropped due to a full or closed queue"),
		metric.WithUnit("{envelope}"))
	logInstrumentErr(logger, "envelopes.dropped", err)

	in.fanoutSize, err = meter.Int64Histogram("logbroker.fanout.size",
		metric.WithDescription("Number of subscribers targeted per publish"),
		metric.WithUnit("{subscriber}"))
	logInstrumentErr(logger, "fanout.size", err)

	return in
}

func logInstrumentErr(logger *log.Logger, name string, err error) {
	if err == nil || logger == nil {
		return
	}
	logger.Printf("telemetry: register instrument %s: %v", name, err)
}

// ConnectionOpened records a newly accepted connection.
func (in *Instruments) ConnectionOpened(channelCount int) {
	if in == nil {
		return
	}
	ctx := context.Background()
	if in.connectionsOpened != nil {
		in.connectionsOpened.Add(ctx, 1)
	}
	if in.connectionsGauge != nil {
		in.connectionsGauge.Add(ctx, 1)
	}
	_ = channelCount
}

// ConnectionClosed records a connection leaving the registry.
func (in *Instruments) ConnectionClosed() {
	if in == nil {
		return
	}
	if in.connectionsGauge != nil {
		in.connectionsGauge.Add(context.Background(), -1)
	}
}

// Published records the outcome of one publish fan-out call.
func (in *Instruments) Published(subscriberCount, delivered, dropped int) {
	if in == nil {
		return
	}
	ctx := context.Background()
	if in.envelopesPublished != nil {
		in.envelopesPublished.Add(ctx, 1)
	}
	if in.envelopesDelivered != nil && delivered > 0 {
		in.envelopesDelivered.Add(ctx, int64(delivered))
	}
	if in.envelopesDropped != nil && dropped > 0 {
		in.envelopesDropped.Add(ctx, int64(dropped))
	}
	if in.fanoutSize != nil {
		in.fanoutSize.Record(ctx, int64(subscriberCount))
	}
}
