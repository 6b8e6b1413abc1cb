package engine

import (
	"fmt"
	"time"

	"github.com/phoenix-mes/phoenix/internal/model"
)

// applyEvent processes one event. Runs only on the consumer goroutine.
// The engine is permissive, not validating: no event is ever rejected, an
// out-of-order event is applied with a synthesized open interval.
func (e *Engine) applyEvent(ev model.Event) {
	now := e.now()

	switch ev.Type {
	case model.EventProgramLoaded:
		e.applyProgramLoaded(ev, now)
	case model.EventProcessIdentified:
		e.applyProcessIdentified(ev, now)
	case model.EventRunStarted:
		e.applyRunStarted(now)
	case model.EventStateChanged:
		e.applyStateChanged(ev.To, now)
	case model.EventRunCompleted:
		e.applyRunCompleted(now)
	default:
		e.logger.Warn("engine: unknown event type", "type", ev.Type)
	}
}

func (e *Engine) applyProgramLoaded(ev model.Event, now time.Time) {
	e.mu.Lock()
	if e.run.Program != ev.Program {
		// A different program discards the stale run's counters without a
		// ledger entry. A re-load of the same file preserves them.
		e.run.ResetTimers()
	}
	e.run.Program = ev.Program
	e.run.Origin = ev.Origin
	e.identity.Program = ev.Program
	e.identity.Origin = ev.Origin
	identity := e.identity
	run := e.run
	e.mu.Unlock()

	e.saveIdentity(identity)
	e.saveSnapshot(run)
	e.notify(run.State, fmt.Sprintf("Program loaded: %s", ev.Program), now)
}

func (e *Engine) applyProcessIdentified(ev model.Event, now time.Time) {
	e.mu.Lock()
	e.run.ProcessID = ev.ProcessID
	e.identity.ProcessID = ev.ProcessID
	identity := e.identity
	run := e.run
	e.mu.Unlock()

	e.saveIdentity(identity)
	e.saveSnapshot(run)
	e.notify(run.State, fmt.Sprintf("Process identified: %s", ev.ProcessID), now)
}

func (e *Engine) applyRunStarted(now time.Time) {
	e.mu.Lock()
	if e.run.Running {
		// Duplicate deliveries are possible; starting is idempotent.
		e.mu.Unlock()
		return
	}
	e.run.Running = true
	e.run.State = model.StateTraverse
	e.run.StateEnteredAt = &now
	run := e.run
	e.mu.Unlock()

	e.saveSnapshot(run)
	e.notify(run.State, "Program started", now)
}

func (e *Engine) applyStateChanged(to model.MachineState, now time.Time) {
	e.mu.Lock()
	e.closeIntervalLocked(now)

	// A hole is punched on every edge into CUT from a different state.
	if e.run.State != model.StateCut && to == model.StateCut {
		e.run.HoleCount++
	}

	// Re-entering the current state is legal and resets the timer: the
	// interval just closed was recorded, a new one opens at now.
	e.run.State = to
	e.run.StateEnteredAt = &now
	run := e.run
	e.mu.Unlock()

	e.saveSnapshot(run)
	e.notify(to, fmt.Sprintf("State changed to: %s", to), now)
}

func (e *Engine) applyRunCompleted(now time.Time) {
	e.mu.Lock()
	e.closeIntervalLocked(now)

	rec := model.HistoricalRecord{
		Program:         e.run.Program,
		Origin:          e.run.Origin,
		ProcessID:       e.run.ProcessID,
		LineCount:       e.run.LineCount,
		HoleCount:       e.run.HoleCount,
		CutSeconds:      e.run.CutSeconds,
		TraverseSeconds: e.run.TraverseSeconds,
		PauseSeconds:    e.run.PauseSeconds,
		FinishedAt:      now,
	}
	rec.TotalSeconds = rec.CutSeconds + rec.TraverseSeconds + rec.PauseSeconds

	e.run.Reset()
	e.mu.Unlock()

	if err := e.store.AppendHistory(rec); err != nil {
		e.logger.Warn("engine: append history failed", "error", err, "program", rec.Program)
	}
	if err := e.store.ClearActiveRun(); err != nil {
		e.logger.Warn("engine: clear active run failed", "error", err)
	}

	e.logger.Info("engine: run finished",
		"program", rec.Program, "holes", rec.HoleCount, "total_seconds", rec.TotalSeconds)
	e.notify(model.StateIdle, fmt.Sprintf("Program finished: %s", rec.Program), now)
}

// closeIntervalLocked folds the open interval into the current state's
// bucket. IDLE intervals are not accounted. Caller holds e.mu.
func (e *Engine) closeIntervalLocked(now time.Time) {
	if e.run.StateEnteredAt == nil {
		return
	}
	delta := now.Sub(*e.run.StateEnteredAt).Seconds()
	if delta < 0 {
		delta = 0
	}
	switch e.run.State {
	case model.StateCut:
		e.run.CutSeconds += delta
	case model.StateTraverse:
		e.run.TraverseSeconds += delta
	case model.StatePause:
		e.run.PauseSeconds += delta
	}
}

// saveSnapshot mirrors the run to the active-run slot. Skipped while not
// running — there is nothing to recover. Persistence trouble is a warning,
// never a halt.
func (e *Engine) saveSnapshot(run model.ActiveRun) {
	if !run.Running {
		return
	}
	if err := e.store.SaveActiveRun(run); err != nil {
		e.logger.Warn("engine: snapshot write failed", "error", err)
	}
}

func (e *Engine) saveIdentity(id model.MachineIdentity) {
	if err := e.store.SaveIdentity(id); err != nil {
		e.logger.Warn("engine: identity write failed", "error", err)
	}
}
