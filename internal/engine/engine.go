// Package engine drives the run state machine: it consumes classified
// telemetry events in arrival order, accounts time per machine state,
// persists recovery snapshots and appends finished runs to the ledger.
//
// Concurrency model: one producer (the ingestion loop) feeds an unbounded
// ordered mailbox; a single consumer goroutine (Run) drains it. All state
// mutation happens on the consumer, so transitions are totally ordered and
// snapshot writes are race-free. User commands (shift save, catalog edits,
// record deletion) enter the same mailbox to avoid interleaving with
// telemetry. Read queries take a snapshot under a read lock and never touch
// the mailbox.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phoenix-mes/phoenix/internal/model"
	"github.com/phoenix-mes/phoenix/internal/store"
)

// ErrStopped is returned by commands submitted after the engine loop exited.
var ErrStopped = errors.New("engine: stopped")

// ErrEmptyProcess is returned by UpsertProcess when the ID or name is blank.
var ErrEmptyProcess = errors.New("engine: process id and name are required")

// feedSize is how many recent event-feed lines are retained for the
// presentation layer.
const feedSize = 50

// Notifier receives best-effort state-change announcements. Implementations
// must not block: a slow notifier must never stall a transition.
type Notifier interface {
	Notify(n model.Notification)
}

// Engine is the run state machine. Construct with New, then call Run in a
// goroutine; it recovers persisted state at construction time.
type Engine struct {
	store    store.Store
	logger   *slog.Logger
	notifier Notifier
	now      func() time.Time

	mailbox *mailbox

	mu        sync.RWMutex
	run       model.ActiveRun
	identity  model.MachineIdentity
	processes model.ProcessCatalog
	shift     model.ShiftConfig
	feed      []model.Notification
}

// Option configures an Engine.
type Option func(*Engine)

// WithNow overrides the wall clock, for deterministic tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNotifier sets the state-change notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New builds an Engine and runs the startup recovery protocol: the
// machine-identity snapshot is restored first (always), then the active-run
// snapshot — if present the run resumes with Running=true and the persisted
// StateEnteredAt, replaying the unflushed interval as if the machine had
// stayed in that state the whole time.
func New(st store.Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		logger:  logger,
		now:     time.Now,
		mailbox: newMailbox(),
		run:     model.ActiveRun{State: model.StateIdle},
	}
	for _, opt := range opts {
		opt(e)
	}

	if id, ok := st.LoadIdentity(); ok {
		e.identity = id
	}
	if run, ok := st.LoadActiveRun(); ok {
		run.Running = true
		if run.StateEnteredAt == nil {
			// A snapshot without an open interval should not exist; repair
			// rather than violate the running invariant.
			now := e.now()
			run.StateEnteredAt = &now
		}
		e.run = run
		logger.Info("engine: resumed interrupted run",
			"program", run.Program, "state", run.State, "holes", run.HoleCount)
	}
	e.processes = st.LoadProcesses()
	e.shift = st.LoadShift()
	return e
}

// Ingest enqueues one classified telemetry event. Safe for concurrent use;
// never blocks on the consumer. Events arriving after shutdown are dropped.
func (e *Engine) Ingest(ev model.Event) {
	e.mailbox.put(item{event: &ev})
}

// Run drains the mailbox until ctx is done, then applies anything still
// queued, flushes the final snapshot and closes the mailbox. The final flush
// is the shutdown guarantee of the recovery protocol: whatever interval is
// open when the process dies gracefully is persisted.
func (e *Engine) Run(ctx context.Context) error {
	for {
		it, ok := e.mailbox.get(ctx)
		if !ok {
			break
		}
		e.apply(it)
	}

	for _, it := range e.mailbox.drain() {
		e.apply(it)
	}
	e.flushFinal()
	return nil
}

func (e *Engine) apply(it item) {
	if it.event != nil {
		e.applyEvent(*it.event)
		return
	}
	if it.cmd != nil {
		it.cmd()
	}
}

// do submits a command into the mailbox and waits for the consumer to
// execute it, keeping user mutations ordered against telemetry.
func (e *Engine) do(fn func()) error {
	done := make(chan struct{})
	ok := e.mailbox.put(item{cmd: func() {
		fn()
		close(done)
	}})
	if !ok {
		return ErrStopped
	}
	<-done
	return nil
}

// flushFinal persists the active-run snapshot on shutdown.
func (e *Engine) flushFinal() {
	e.mu.RLock()
	run := e.run
	e.mu.RUnlock()
	if !run.Running {
		return
	}
	if err := e.store.SaveActiveRun(run); err != nil {
		e.logger.Warn("engine: final snapshot flush failed", "error", err)
		return
	}
	e.logger.Info("engine: final snapshot flushed", "program", run.Program, "state", run.State)
}

// notify appends to the event feed and forwards to the notifier.
// Fire-and-forget: never blocks state progression.
func (e *Engine) notify(state model.MachineState, line string, at time.Time) {
	n := model.Notification{State: state, Line: line, At: at}

	e.mu.Lock()
	e.feed = append(e.feed, n)
	if len(e.feed) > feedSize {
		e.feed = e.feed[len(e.feed)-feedSize:]
	}
	e.mu.Unlock()

	if e.notifier != nil {
		e.notifier.Notify(n)
	}
}
