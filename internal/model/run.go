package model

import "time"

// ActiveRun is the live run owned by the engine. It is mirrored to the
// persistence store on every transition while Running, so a crashed process
// can resume time accounting from the last snapshot.
type ActiveRun struct {
	Program   string `json:"program,omitempty"`
	Origin    Origin `json:"origin,omitempty"`
	ProcessID string `json:"process_id,omitempty"`
	LineCount int    `json:"line_count"`

	// HoleCount increments exactly once per transition into CUT from any
	// other state.
	HoleCount int `json:"hole_count"`

	State MachineState `json:"state"`

	// StateEnteredAt is nil only when no state interval is open.
	// Invariant: Running implies StateEnteredAt != nil.
	StateEnteredAt *time.Time `json:"state_entered_at,omitempty"`

	// Closed-interval accumulators. The currently open interval is not
	// included; compute it on demand with ElapsedBuckets.
	CutSeconds      float64 `json:"cut_seconds"`
	TraverseSeconds float64 `json:"traverse_seconds"`
	PauseSeconds    float64 `json:"pause_seconds"`

	Running bool `json:"running"`
}

// ElapsedBuckets returns the per-bucket totals with the open interval added
// to the bucket of the current state.
func (r *ActiveRun) ElapsedBuckets(now time.Time) (cut, traverse, pause float64) {
	cut, traverse, pause = r.CutSeconds, r.TraverseSeconds, r.PauseSeconds
	if !r.Running || r.StateEnteredAt == nil {
		return cut, traverse, pause
	}
	open := now.Sub(*r.StateEnteredAt).Seconds()
	if open < 0 {
		open = 0
	}
	switch r.State {
	case StateCut:
		cut += open
	case StateTraverse:
		traverse += open
	case StatePause:
		pause += open
	}
	return cut, traverse, pause
}

// ResetTimers zeroes the time accounting and the hole counter but keeps the
// program identity. Used when a different program is loaded mid-session.
func (r *ActiveRun) ResetTimers() {
	r.HoleCount = 0
	r.Running = false
	r.State = StateIdle
	r.StateEnteredAt = nil
	r.CutSeconds = 0
	r.TraverseSeconds = 0
	r.PauseSeconds = 0
}

// Reset clears the run entirely, identity included.
func (r *ActiveRun) Reset() {
	*r = ActiveRun{State: StateIdle}
}

// MachineIdentity is the program identity snapshot. Unlike the active-run
// snapshot it is saved even when nothing is running, so labels survive a
// restart between runs.
type MachineIdentity struct {
	Program   string `json:"program,omitempty"`
	Origin    Origin `json:"origin,omitempty"`
	ProcessID string `json:"process_id,omitempty"`
	LineCount int    `json:"line_count"`
}
