package ingest

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenix-mes/phoenix/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// sinkSpy collects ingested events.
type sinkSpy struct {
	mu     sync.Mutex
	events []model.Event
}

func (s *sinkSpy) Ingest(ev model.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *sinkSpy) all() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.events...)
}

// fakeTransport replays canned deliveries through the handler.
type fakeTransport struct {
	deliveries []struct {
		topic   string
		payload []byte
	}
}

func (f *fakeTransport) add(topic, payload string) {
	f.deliveries = append(f.deliveries, struct {
		topic   string
		payload []byte
	}{topic, []byte(payload)})
}

func (f *fakeTransport) Subscribe(ctx context.Context, handler Handler) error {
	for _, d := range f.deliveries {
		handler(d.topic, d.payload)
	}
	<-ctx.Done()
	return nil
}

func TestLoop_ClassifiesAndForwardsInOrder(t *testing.T) {
	sink := &sinkSpy{}
	loop := NewLoop(nil, sink, testLogger())

	loop.Handle("Phoenix/PLC", []byte(`{"Message":"Program_Running turned On","Properties":{"SourceContext":{"Value":"PLC"}}}`))
	loop.Handle("Phoenix/PLC", []byte(`{"Message":"Head Cutting","Properties":{"SourceContext":{"Value":"PLC"}}}`))

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventRunStarted, events[0].Type)
	assert.Equal(t, model.EventStateChanged, events[1].Type)
	assert.Equal(t, model.StateCut, events[1].To)
}

func TestLoop_MalformedPayloadDroppedSilently(t *testing.T) {
	sink := &sinkSpy{}
	loop := NewLoop(nil, sink, testLogger())

	loop.Handle("Phoenix/PLC", []byte(`not json at all`))
	loop.Handle("Phoenix/PLC", []byte(``))

	assert.Empty(t, sink.all())
	assert.Equal(t, int64(2), loop.Dropped())
}

func TestLoop_MissingFieldsYieldNoEvents(t *testing.T) {
	sink := &sinkSpy{}
	loop := NewLoop(nil, sink, testLogger())

	// Valid JSON, irrelevant content: classified to nothing, not counted
	// as a drop.
	loop.Handle("Phoenix/PLC", []byte(`{"other":"stuff"}`))

	assert.Empty(t, sink.all())
	assert.Zero(t, loop.Dropped())
}

func TestLoop_UptimeTopicFilteredBeforeDecode(t *testing.T) {
	sink := &sinkSpy{}
	loop := NewLoop(nil, sink, testLogger())

	// Would be a drop if decoded; the topic filter runs first.
	loop.Handle("Phoenix/Uptime", []byte(`garbage`))

	assert.Empty(t, sink.all())
	assert.Zero(t, loop.Dropped())
}

func TestLoop_RunDrainsTransport(t *testing.T) {
	transport := &fakeTransport{}
	transport.add("Phoenix/Editor", `{"Message":"Read file \"C:\\ShapeLibrary\\ring.nc\"","Properties":{"SourceContext":{"Value":"Editor"}}}`)
	transport.add("Phoenix/PLC", `{"Message":"Program_Running turned On","Properties":{"SourceContext":{"Value":"PLC"}}}`)

	sink := &sinkSpy{}
	loop := NewLoop(transport, sink, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	waitFor(t, func() bool { return len(sink.all()) == 2 })
	cancel()
	require.NoError(t, <-done)

	events := sink.all()
	assert.Equal(t, model.EventProgramLoaded, events[0].Type)
	assert.Equal(t, "ring.nc", events[0].Program)
	assert.Equal(t, model.OriginLibrary, events[0].Origin)
	assert.Equal(t, model.EventRunStarted, events[1].Type)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
