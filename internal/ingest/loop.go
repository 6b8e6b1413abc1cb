package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/phoenix-mes/phoenix/internal/classify"
	"github.com/phoenix-mes/phoenix/internal/model"
)

// Sink consumes classified events. Satisfied by the engine.
type Sink interface {
	Ingest(ev model.Event)
}

// payload is the controller's log envelope. Only the message text and the
// source tag matter; everything else is ignored.
type payload struct {
	Message    string `json:"Message"`
	Properties struct {
		SourceContext struct {
			Value string `json:"Value"`
		} `json:"SourceContext"`
	} `json:"Properties"`
}

// Loop bridges the transport to the engine. One Loop per transport; the
// delivery callback runs on the transport's goroutine and only ever
// enqueues — it never touches engine state directly.
type Loop struct {
	transport Transport
	sink      Sink
	logger    *slog.Logger

	dropped atomic.Int64

	msgCounter   metric.Int64Counter
	dropCounter  metric.Int64Counter
	eventCounter metric.Int64Counter
}

// NewLoop wires a transport to a sink.
func NewLoop(transport Transport, sink Sink, logger *slog.Logger) *Loop {
	l := &Loop{transport: transport, sink: sink, logger: logger}

	meter := otel.Meter("github.com/phoenix-mes/phoenix/internal/ingest")
	var err error
	if l.msgCounter, err = meter.Int64Counter("phoenix.ingest.messages",
		metric.WithDescription("Bus messages received")); err != nil {
		logger.Warn("ingest: metric registration failed", "error", err)
	}
	if l.dropCounter, err = meter.Int64Counter("phoenix.ingest.dropped",
		metric.WithDescription("Messages dropped as malformed or filtered")); err != nil {
		logger.Warn("ingest: metric registration failed", "error", err)
	}
	if l.eventCounter, err = meter.Int64Counter("phoenix.ingest.events",
		metric.WithDescription("Classified events handed to the engine")); err != nil {
		logger.Warn("ingest: metric registration failed", "error", err)
	}
	return l
}

// Run subscribes and processes deliveries until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	return l.transport.Subscribe(ctx, l.Handle)
}

// Handle processes one raw delivery. Malformed payloads are counted and
// dropped, never surfaced as failures — telemetry is lossy by contract.
func (l *Loop) Handle(topic string, raw []byte) {
	l.count(l.msgCounter, 1)

	if classify.IgnoreTopic(topic) {
		return
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		n := l.dropped.Add(1)
		l.count(l.dropCounter, 1)
		l.logger.Debug("ingest: dropping undecodable payload", "topic", topic, "dropped_total", n)
		return
	}

	events := classify.Classify(p.Properties.SourceContext.Value, p.Message)
	for _, ev := range events {
		l.sink.Ingest(ev)
	}
	l.count(l.eventCounter, int64(len(events)))
}

// Dropped reports how many payloads were discarded as undecodable.
func (l *Loop) Dropped() int64 {
	return l.dropped.Load()
}

func (l *Loop) count(c metric.Int64Counter, n int64) {
	if c != nil && n > 0 {
		c.Add(context.Background(), n)
	}
}
