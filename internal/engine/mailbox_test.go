package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenix-mes/phoenix/internal/model"
)

func TestMailbox_FIFOOrder(t *testing.T) {
	mb := newMailbox()

	events := []model.MachineState{model.StateTraverse, model.StateCut, model.StatePause}
	for _, s := range events {
		ev := model.Event{Type: model.EventStateChanged, To: s}
		require.True(t, mb.put(item{event: &ev}))
	}

	ctx := context.Background()
	for _, want := range events {
		it, ok := mb.get(ctx)
		require.True(t, ok)
		require.NotNil(t, it.event)
		assert.Equal(t, want, it.event.To)
	}
}

func TestMailbox_GetBlocksUntilPut(t *testing.T) {
	mb := newMailbox()

	got := make(chan item, 1)
	go func() {
		it, ok := mb.get(context.Background())
		if ok {
			got <- it
		}
	}()

	// Give the getter a moment to block.
	time.Sleep(10 * time.Millisecond)
	ev := model.Event{Type: model.EventRunStarted}
	mb.put(item{event: &ev})

	select {
	case it := <-got:
		assert.Equal(t, model.EventRunStarted, it.event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("get never woke up")
	}
}

func TestMailbox_GetHonorsContext(t *testing.T) {
	mb := newMailbox()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := mb.get(ctx)
	assert.False(t, ok)
}

func TestMailbox_DrainClosesAndReturnsRemainder(t *testing.T) {
	mb := newMailbox()
	ev := model.Event{Type: model.EventRunStarted}
	mb.put(item{event: &ev})
	mb.put(item{cmd: func() {}})

	rest := mb.drain()
	assert.Len(t, rest, 2)

	assert.False(t, mb.put(item{event: &ev}), "put after drain is rejected")
}
