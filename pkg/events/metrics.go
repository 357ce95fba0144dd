package events

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/ghuser/itemfeed/pkg/events"

// feedMetrics holds the OTel instruments shared by every feed. Instruments
// come from the global MeterProvider, so they report through whatever
// telemetry.Setup installed (Prometheus by default) and are no-ops otherwise.
type feedMetrics struct {
	attrs     metric.MeasurementOption
	enqueued  metric.Int64Counter
	delivered metric.Int64Counter
	pending   metric.Int64UpDownCounter
	queueWait metric.Float64Histogram
}

func newFeedMetrics(feed string) *feedMetrics {
	meter := otel.Meter(instrumentationName)
	m := &feedMetrics{
		attrs: metric.WithAttributeSet(attribute.NewSet(attribute.String("feed", feed))),
	}

	var err error
	if m.enqueued, err = meter.Int64Counter("events.enqueued",
		metric.WithDescription("Events accepted by the feed")); err != nil {
		otel.Handle(err)
		m.enqueued = noop.Int64Counter{}
	}
	if m.delivered, err = meter.Int64Counter("events.delivered",
		metric.WithDescription("Events handed to the consumer")); err != nil {
		otel.Handle(err)
		m.delivered = noop.Int64Counter{}
	}
	if m.pending, err = meter.Int64UpDownCounter("events.pending",
		metric.WithDescription("Events queued and not yet delivered")); err != nil {
		otel.Handle(err)
		m.pending = noop.Int64UpDownCounter{}
	}
	if m.queueWait, err = meter.Float64Histogram("events.queue_wait",
		metric.WithDescription("Time between enqueue and delivery"),
		metric.WithUnit("ms")); err != nil {
		otel.Handle(err)
		m.queueWait = noop.Float64Histogram{}
	}
	return m
}

func (m *feedMetrics) recordEnqueue(ctx context.Context) {
	m.enqueued.Add(ctx, 1, m.attrs)
	m.pending.Add(ctx, 1, m.attrs)
}

func (m *feedMetrics) recordPop(ctx context.Context) {
	m.pending.Add(ctx, -1, m.attrs)
}

func (m *feedMetrics) recordDelivery(ctx context.Context, wait time.Duration) {
	m.delivered.Add(ctx, 1, m.attrs)
	m.queueWait.Record(ctx, float64(wait)/float64(time.Millisecond), m.attrs)
}
