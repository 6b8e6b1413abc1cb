package engine

import (
	"strings"
	"time"

	"github.com/phoenix-mes/phoenix/internal/model"
	"github.com/phoenix-mes/phoenix/internal/oee"
)

// Status is the read-only snapshot the presentation layer polls.
type Status struct {
	Program     string             `json:"program,omitempty"`
	Origin      model.Origin       `json:"origin,omitempty"`
	ProcessID   string             `json:"process_id,omitempty"`
	ProcessName string             `json:"process_name,omitempty"`
	LineCount   int                `json:"line_count"`
	Running     bool               `json:"running"`
	State       model.MachineState `json:"state"`
	HoleCount   int                `json:"hole_count"`

	// Live per-bucket elapsed seconds, open interval included.
	CutSeconds      float64 `json:"cut_seconds"`
	TraverseSeconds float64 `json:"traverse_seconds"`
	PauseSeconds    float64 `json:"pause_seconds"`
	TotalSeconds    float64 `json:"total_seconds"`
}

// Status returns the current machine status. Identity labels fall back to
// the machine-identity snapshot between runs, so a restart without an
// active run still shows what is loaded on the controller.
func (e *Engine) Status() Status {
	e.mu.RLock()
	run := e.run
	id := e.identity
	processes := e.processes
	e.mu.RUnlock()

	st := Status{
		Program:   run.Program,
		Origin:    run.Origin,
		ProcessID: run.ProcessID,
		LineCount: run.LineCount,
		Running:   run.Running,
		State:     run.State,
		HoleCount: run.HoleCount,
	}
	if st.Program == "" {
		st.Program = id.Program
		st.Origin = id.Origin
	}
	if st.ProcessID == "" {
		st.ProcessID = id.ProcessID
	}
	if st.LineCount == 0 {
		st.LineCount = id.LineCount
	}
	if st.ProcessID != "" {
		st.ProcessName = processes.DisplayName(st.ProcessID)
	}

	cut, traverse, pause := run.ElapsedBuckets(e.now())
	st.CutSeconds = cut
	st.TraverseSeconds = traverse
	st.PauseSeconds = pause
	st.TotalSeconds = cut + traverse + pause
	return st
}

// History returns the production ledger.
func (e *Engine) History() []model.HistoricalRecord {
	return e.store.LoadHistory()
}

// DeleteRecord removes the ledger entry with this exact finish timestamp.
// Ordered through the mailbox so it cannot interleave with a finalize.
func (e *Engine) DeleteRecord(finishedAt time.Time) (bool, error) {
	var (
		removed bool
		err     error
	)
	if doErr := e.do(func() {
		removed, err = e.store.DeleteHistory(finishedAt)
	}); doErr != nil {
		return false, doErr
	}
	if removed {
		e.logger.Info("engine: history record deleted", "finished_at", finishedAt)
	}
	return removed, err
}

// ComputeMetrics computes the OEE snapshot for the period under the saved
// shift configuration. Read-only; does not enter the mailbox.
func (e *Engine) ComputeMetrics(from, to time.Time) model.Metrics {
	e.mu.RLock()
	shift := e.shift
	e.mu.RUnlock()
	return oee.Compute(from, to, shift, e.store.LoadHistory(), e.now())
}

// TodayStats summarizes the runs finished today.
func (e *Engine) TodayStats() model.TodayStats {
	return oee.TodayStats(e.store.LoadHistory(), e.now())
}

// Shift returns the active shift configuration.
func (e *Engine) Shift() model.ShiftConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.shift
}

// SaveShift validates and persists a new shift configuration. Validation
// failures are returned synchronously and leave the store unchanged;
// persistence trouble is logged, not surfaced.
func (e *Engine) SaveShift(cfg model.ShiftConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return e.do(func() {
		e.mu.Lock()
		e.shift = cfg
		e.mu.Unlock()
		if err := e.store.SaveShift(cfg); err != nil {
			e.logger.Warn("engine: shift save failed", "error", err)
		}
		e.notify(e.Status().State, "Shift configuration saved", e.now())
	})
}

// Processes returns a copy of the process catalog.
func (e *Engine) Processes() model.ProcessCatalog {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(model.ProcessCatalog, len(e.processes))
	for id, name := range e.processes {
		out[id] = name
	}
	return out
}

// UpsertProcess adds or renames a catalog entry.
func (e *Engine) UpsertProcess(id, name string) error {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" || name == "" {
		return ErrEmptyProcess
	}
	return e.do(func() {
		e.mu.Lock()
		e.processes[id] = name
		cat := e.processes
		e.mu.Unlock()
		if err := e.store.SaveProcesses(cat); err != nil {
			e.logger.Warn("engine: process catalog save failed", "error", err)
		}
	})
}

// DeleteProcess removes a catalog entry, reporting whether it existed.
func (e *Engine) DeleteProcess(id string) (bool, error) {
	var existed bool
	err := e.do(func() {
		e.mu.Lock()
		_, existed = e.processes[id]
		delete(e.processes, id)
		cat := e.processes
		e.mu.Unlock()
		if !existed {
			return
		}
		if err := e.store.SaveProcesses(cat); err != nil {
			e.logger.Warn("engine: process catalog save failed", "error", err)
		}
	})
	return existed, err
}

// RecentEvents returns the event-feed tail, newest last.
func (e *Engine) RecentEvents() []model.Notification {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Notification, len(e.feed))
	copy(out, e.feed)
	return out
}
