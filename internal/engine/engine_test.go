package engine

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
	"github.com/phoenix-mes/phoenix/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeClock is a manually advanced wall clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	clock := newFakeClock()
	e := New(st, testLogger(), WithNow(clock.Now))
	return e, clock, st
}

func load(name string, origin model.Origin) model.Event {
	return model.Event{Type: model.EventProgramLoaded, Program: name, Origin: origin}
}

func changeTo(s model.MachineState) model.Event {
	return model.Event{Type: model.EventStateChanged, To: s}
}

func TestEngine_HoleCountsOnlyEdgesIntoCut(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	e.applyEvent(load("part.nc", model.OriginProgrammed))
	e.applyEvent(model.Event{Type: model.EventRunStarted})

	for _, s := range []model.MachineState{
		model.StateCut,      // edge: 1
		model.StateCut,      // re-entry while cutting: not a hole
		model.StateTraverse, //
		model.StateCut,      // edge: 2
		model.StatePause,    //
		model.StateCut,      // edge: 3
	} {
		clock.Advance(10 * time.Second)
		e.applyEvent(changeTo(s))
	}

	assert.Equal(t, 3, e.Status().HoleCount)
}

func TestEngine_ReentrantTransitionRecordsInterval(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	e.applyEvent(model.Event{Type: model.EventRunStarted})
	e.applyEvent(changeTo(model.StateCut))

	clock.Advance(30 * time.Second)
	e.applyEvent(changeTo(model.StateCut)) // same state: timer reset, not a no-op

	e.mu.RLock()
	cut := e.run.CutSeconds
	entered := *e.run.StateEnteredAt
	e.mu.RUnlock()

	assert.InDelta(t, 30, cut, 0.001, "the closed interval must be recorded")
	assert.True(t, entered.Equal(clock.Now()), "the timer restarts at the transition instant")
}

func TestEngine_RecordTotalsEqualSumOfClosures(t *testing.T) {
	e, clock, st := newTestEngine(t)

	e.applyEvent(load("part.nc", model.OriginLibrary))
	e.applyEvent(model.Event{Type: model.EventRunStarted})

	clock.Advance(20 * time.Second) // TRAVERSE
	e.applyEvent(changeTo(model.StateCut))
	clock.Advance(45 * time.Second) // CUT
	e.applyEvent(changeTo(model.StatePause))
	clock.Advance(15 * time.Second) // PAUSE
	e.applyEvent(changeTo(model.StateCut))
	clock.Advance(5 * time.Second) // CUT
	e.applyEvent(model.Event{Type: model.EventRunCompleted})

	hist := st.LoadHistory()
	require.Len(t, hist, 1)
	rec := hist[0]
	assert.InDelta(t, 50, rec.CutSeconds, 0.001)
	assert.InDelta(t, 20, rec.TraverseSeconds, 0.001)
	assert.InDelta(t, 15, rec.PauseSeconds, 0.001)
	assert.InDelta(t, 85, rec.TotalSeconds, 0.001)
	assert.Equal(t, 2, rec.HoleCount)
	assert.Equal(t, "part.nc", rec.Program)
	assert.Equal(t, model.OriginLibrary, rec.Origin)
	assert.True(t, rec.FinishedAt.Equal(clock.Now()))
}

func TestEngine_SameProgramReloadPreservesCounters(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	e.applyEvent(load("part.nc", model.OriginProgrammed))
	e.applyEvent(model.Event{Type: model.EventRunStarted})
	clock.Advance(10 * time.Second)
	e.applyEvent(changeTo(model.StateCut))
	clock.Advance(10 * time.Second)

	e.applyEvent(load("part.nc", model.OriginLibrary))

	st := e.Status()
	assert.Equal(t, 1, st.HoleCount, "counters preserved on same-name reload")
	assert.True(t, st.Running)
	assert.Equal(t, model.OriginLibrary, st.Origin, "origin is refreshed")
}

func TestEngine_DifferentProgramZeroesCounters(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	e.applyEvent(load("part.nc", model.OriginProgrammed))
	e.applyEvent(model.Event{Type: model.EventRunStarted})
	clock.Advance(10 * time.Second)
	e.applyEvent(changeTo(model.StateCut))
	clock.Advance(10 * time.Second)

	e.applyEvent(load("other.nc", model.OriginProgrammed))

	st := e.Status()
	assert.Equal(t, "other.nc", st.Program)
	assert.Zero(t, st.HoleCount)
	assert.Zero(t, st.TotalSeconds)
	assert.False(t, st.Running, "the stale run is discarded, not recorded")
}

func TestEngine_StaleRunDiscardedWithoutLedgerEntry(t *testing.T) {
	e, clock, st := newTestEngine(t)

	e.applyEvent(load("part.nc", model.OriginProgrammed))
	e.applyEvent(model.Event{Type: model.EventRunStarted})
	clock.Advance(time.Minute)
	e.applyEvent(load("other.nc", model.OriginProgrammed))

	assert.Empty(t, st.LoadHistory())
}

func TestEngine_RunStartedIsIdempotent(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	e.applyEvent(model.Event{Type: model.EventRunStarted})
	started := clock.Now()
	clock.Advance(25 * time.Second)
	e.applyEvent(model.Event{Type: model.EventRunStarted})

	e.mu.RLock()
	entered := *e.run.StateEnteredAt
	e.mu.RUnlock()
	assert.True(t, entered.Equal(started), "a duplicate start must not reset the open interval")
}

func TestEngine_StateChangedBeforeRunStartedIsApplied(t *testing.T) {
	e, _, st := newTestEngine(t)

	// Permissive: no run exists, the event is applied with a synthesized
	// open interval rather than rejected.
	e.applyEvent(changeTo(model.StateCut))

	status := e.Status()
	assert.Equal(t, model.StateCut, status.State)
	assert.False(t, status.Running)

	_, ok := st.LoadActiveRun()
	assert.False(t, ok, "no snapshot while not running")
}

func TestEngine_RunCompletedClearsSnapshotAndForcesIdle(t *testing.T) {
	e, clock, st := newTestEngine(t)

	e.applyEvent(load("part.nc", model.OriginProgrammed))
	e.applyEvent(model.Event{Type: model.EventRunStarted})
	clock.Advance(10 * time.Second)

	_, ok := st.LoadActiveRun()
	require.True(t, ok, "snapshot present mid-run")

	e.applyEvent(model.Event{Type: model.EventRunCompleted})

	_, ok = st.LoadActiveRun()
	assert.False(t, ok, "finalize clears the active-run slot")
	status := e.Status()
	assert.Equal(t, model.StateIdle, status.State)
	assert.False(t, status.Running)
	assert.Zero(t, status.HoleCount)
	assert.Equal(t, "part.nc", status.Program, "identity labels survive the finalize")
}

func TestEngine_RecoveryResumesPersistedRun(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewFileStore(dir, testLogger())
	require.NoError(t, err)
	clock := newFakeClock()

	e := New(st, testLogger(), WithNow(clock.Now))
	e.applyEvent(load("part.nc", model.OriginProgrammed))
	e.applyEvent(model.Event{Type: model.EventRunStarted})
	clock.Advance(42 * time.Second)
	e.applyEvent(changeTo(model.StateCut))
	enteredCut := clock.Now()

	// Fresh process over the same data directory.
	st2, err := store.NewFileStore(dir, testLogger())
	require.NoError(t, err)
	e2 := New(st2, testLogger(), WithNow(clock.Now))

	e2.mu.RLock()
	run := e2.run
	e2.mu.RUnlock()

	assert.True(t, run.Running)
	assert.Equal(t, model.StateCut, run.State)
	require.NotNil(t, run.StateEnteredAt)
	assert.True(t, run.StateEnteredAt.Equal(enteredCut),
		"recovery must resume from the persisted timestamp, no implicit state change")
	assert.InDelta(t, 42, run.TraverseSeconds, 0.001)
	assert.Equal(t, "part.nc", run.Program)
	assert.Equal(t, 1, run.HoleCount)
}

func TestEngine_ShutdownFlushesSnapshot(t *testing.T) {
	e, clock, st := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(ctx)
	}()

	e.Ingest(load("part.nc", model.OriginProgrammed))
	e.Ingest(model.Event{Type: model.EventRunStarted})
	waitFor(t, func() bool { return e.Status().Running })

	clock.Advance(30 * time.Second)
	cancel()
	<-done

	run, ok := st.LoadActiveRun()
	require.True(t, ok, "shutdown must leave a recoverable snapshot")
	assert.True(t, run.Running || run.StateEnteredAt != nil)
}

func TestEngine_CommandsOrderedWithTelemetry(t *testing.T) {
	e, _, st := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	require.NoError(t, e.UpsertProcess("1042", "Stainless 3mm"))
	assert.Equal(t, "Stainless 3mm", e.Processes()["1042"])
	assert.Equal(t, "Stainless 3mm", st.LoadProcesses()["1042"])

	existed, err := e.DeleteProcess("1042")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = e.DeleteProcess("nope")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestEngine_UpsertProcessRejectsBlank(t *testing.T) {
	e, _, _ := newTestEngine(t)
	assert.ErrorIs(t, e.UpsertProcess("", "name"), ErrEmptyProcess)
	assert.ErrorIs(t, e.UpsertProcess("7", "   "), ErrEmptyProcess)
}

func TestEngine_SaveShiftValidation(t *testing.T) {
	e, _, st := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	err := e.SaveShift(model.ShiftConfig{Start: "17:00", End: "08:00", LunchStart: "12:00", LunchEnd: "13:00"})
	assert.Error(t, err, "end before start is a hard validation failure")
	assert.Equal(t, model.DefaultShift(), st.LoadShift(), "store unchanged on validation failure")

	cfg := model.ShiftConfig{Start: "06:00", End: "14:00", LunchStart: "10:00", LunchEnd: "10:30"}
	require.NoError(t, e.SaveShift(cfg))
	assert.Equal(t, cfg, e.Shift())
	assert.Equal(t, cfg, st.LoadShift())
}

func TestEngine_DeleteRecord(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	e.Ingest(load("part.nc", model.OriginProgrammed))
	e.Ingest(model.Event{Type: model.EventRunStarted})
	e.Ingest(model.Event{Type: model.EventRunCompleted})
	waitFor(t, func() bool { return len(e.History()) == 1 })

	removed, err := e.DeleteRecord(clock.Now())
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, e.History())

	removed, err = e.DeleteRecord(clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, removed, "deleting a nonexistent key is a no-op")
}

func TestEngine_CommandsAfterStopReturnErrStopped(t *testing.T) {
	e, _, _ := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(ctx)
	}()
	cancel()
	<-done

	assert.ErrorIs(t, e.UpsertProcess("7", "name"), ErrStopped)
}

// notifierSpy records notifications.
type notifierSpy struct {
	mu    sync.Mutex
	lines []string
}

func (n *notifierSpy) Notify(notif model.Notification) {
	n.mu.Lock()
	n.lines = append(n.lines, notif.Line)
	n.mu.Unlock()
}

func TestEngine_NotificationsAndFeed(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	clock := newFakeClock()
	spy := &notifierSpy{}
	e := New(st, testLogger(), WithNow(clock.Now), WithNotifier(spy))

	e.applyEvent(load("part.nc", model.OriginProgrammed))
	e.applyEvent(model.Event{Type: model.EventRunStarted})
	e.applyEvent(changeTo(model.StateCut))
	e.applyEvent(model.Event{Type: model.EventRunCompleted})

	spy.mu.Lock()
	lines := append([]string(nil), spy.lines...)
	spy.mu.Unlock()
	require.Len(t, lines, 4)
	assert.Equal(t, "Program loaded: part.nc", lines[0])
	assert.Equal(t, "Program started", lines[1])
	assert.Equal(t, "State changed to: CUT", lines[2])
	assert.Equal(t, "Program finished: part.nc", lines[3])

	feed := e.RecentEvents()
	require.Len(t, feed, 4)
	assert.Equal(t, lines[3], feed[3].Line)
}

func TestEngine_FeedCapped(t *testing.T) {
	e, _, _ := newTestEngine(t)

	for i := 0; i < feedSize+20; i++ {
		e.applyEvent(changeTo(model.StateTraverse))
	}
	assert.Len(t, e.RecentEvents(), feedSize)
}

// waitFor polls until cond holds or the test times out.
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
