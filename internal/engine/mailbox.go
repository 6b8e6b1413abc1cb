package engine

import (
	"context"
	"sync"

	"github.com/phoenix-mes/phoenix/internal/model"
)

// item is one unit of work for the engine loop: either a classified
// telemetry event or a user command. Both kinds share the mailbox so
// commands are totally ordered against the telemetry stream.
type item struct {
	event *model.Event
	cmd   func()
}

// mailbox is an unbounded FIFO hand-off between the transport's delivery
// goroutine and the single engine consumer. Unbounded so a telemetry burst
// never blocks the transport callback; the consumer is far faster than the
// controller emits lines.
type mailbox struct {
	mu     sync.Mutex
	items  []item
	closed bool
	signal chan struct{} // buffered size 1, set on enqueue
}

func newMailbox() *mailbox {
	return &mailbox{
		items:  make([]item, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// put enqueues an item. Reports false when the mailbox is closed.
func (m *mailbox) put(it item) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, it)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// get blocks until an item is available or ctx is done.
func (m *mailbox) get(ctx context.Context) (item, bool) {
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			it := m.items[0]
			m.items = m.items[1:]
			m.mu.Unlock()
			return it, true
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return item{}, false
		case <-m.signal:
		}
	}
}

// drain closes the mailbox and returns everything still queued.
func (m *mailbox) drain() []item {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	rest := m.items
	m.items = nil
	return rest
}
