// Package model holds the domain types shared across the monitor: machine
// states, classified events, the active run, the production ledger and the
// OEE snapshot.
package model

// MachineState is the coarse operating state derived from controller logs.
type MachineState string

const (
	StateIdle     MachineState = "IDLE"
	StateTraverse MachineState = "TRAVERSE"
	StateCut      MachineState = "CUT"
	StatePause    MachineState = "PAUSE"
)

// Timed reports whether time spent in the state accrues to a run bucket.
// IDLE time is not recorded.
func (s MachineState) Timed() bool {
	switch s {
	case StateCut, StateTraverse, StatePause:
		return true
	}
	return false
}

// Origin says where the loaded program came from on the controller.
type Origin string

const (
	OriginLibrary    Origin = "LIBRARY"
	OriginProgrammed Origin = "PROGRAMMED"
)
