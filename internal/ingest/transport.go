// Package ingest owns the telemetry subscription: it receives raw
// (topic, payload) pairs from the message bus, decodes and classifies them,
// and feeds the resulting events to the engine in arrival order.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Handler receives one delivered bus message.
type Handler func(topic string, payload []byte)

// Transport is a subscription to the telemetry bus. Implementations own
// connection, authentication and reconnection; the core only sees the
// delivered stream. Subscribe blocks until ctx is done.
type Transport interface {
	Subscribe(ctx context.Context, handler Handler) error
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	BrokerURL string // e.g. tcp://127.0.0.1:1884
	Username  string
	Password  string
	Topic     string // subscription filter, e.g. Phoenix/#
}

// MQTTTransport subscribes to the controller's broker via paho. Reconnection
// is handled by the client with backoff; a connection drop surfaces to the
// core only as an absence of events.
type MQTTTransport struct {
	cfg    MQTTConfig
	logger *slog.Logger
}

// NewMQTTTransport builds a transport for the given broker.
func NewMQTTTransport(cfg MQTTConfig, logger *slog.Logger) *MQTTTransport {
	return &MQTTTransport{cfg: cfg, logger: logger}
}

// Subscribe connects and forwards every delivered message to handler until
// ctx is done. The initial connect also retries in the background, so a
// broker that is down at startup delays events, not the process.
func (t *MQTTTransport) Subscribe(ctx context.Context, handler Handler) error {
	opts := mqtt.NewClientOptions().
		AddBroker(t.cfg.BrokerURL).
		SetClientID("phoenix-mes-" + uuid.NewString()[:8]).
		SetUsername(t.cfg.Username).
		SetPassword(t.cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	// Subscribing inside OnConnect re-establishes the subscription after
	// every reconnect.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		t.logger.Info("ingest: connected to broker", "broker", t.cfg.BrokerURL, "topic", t.cfg.Topic)
		token := c.Subscribe(t.cfg.Topic, 0, func(_ mqtt.Client, m mqtt.Message) {
			handler(m.Topic(), m.Payload())
		})
		if token.Wait() && token.Error() != nil {
			t.logger.Error("ingest: subscribe failed", "error", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		t.logger.Warn("ingest: connection lost, reconnecting", "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Error() != nil {
		return fmt.Errorf("ingest: connect: %w", token.Error())
	}

	<-ctx.Done()
	client.Disconnect(250)
	return nil
}
