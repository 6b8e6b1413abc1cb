package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/phoenix-mes/phoenix/internal/model"
)

// Broker fans out machine notifications to SSE subscribers. It implements
// engine.Notifier so the monitoring engine can hand it state changes
// directly; each notification is formatted once and sent to every active
// subscriber channel.
type Broker struct {
	logger  *slog.Logger
	bufSize int

	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
}

// NewBroker creates an SSE broker. bufSize is the per-subscriber channel
// buffer; slow clients that fall behind by more than that lose events.
func NewBroker(logger *slog.Logger, bufSize int) *Broker {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Broker{
		logger:      logger,
		bufSize:     bufSize,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Notify broadcasts a machine notification to all subscribers.
func (b *Broker) Notify(n model.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		b.logger.Warn("broker: marshal notification", "error", err)
		return
	}
	b.broadcast(formatSSE("notification", string(payload)))
}

// Subscribe returns a channel that receives SSE-formatted events.
// The caller must call Unsubscribe when done.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, b.bufSize)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
	close(ch)
}

// broadcast sends an event to all subscribers. Subscribers with a full
// buffer are skipped so one stalled client cannot block the rest.
func (b *Broker) broadcast(event []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// formatSSE formats a payload as a Server-Sent Events message.
func formatSSE(eventType, data string) []byte {
	return []byte("event: " + eventType + "\ndata: " + data + "\n\n")
}
