package model

// EventType is the category of a classified telemetry event.
type EventType string

const (
	EventProgramLoaded     EventType = "ProgramLoaded"
	EventProcessIdentified EventType = "ProcessIdentified"
	EventRunStarted        EventType = "RunStarted"
	EventStateChanged      EventType = "StateChanged"
	EventRunCompleted      EventType = "RunCompleted"
)

// Event is one typed fact extracted from a raw controller log line.
// Events are transient: only their effects on the run are persisted.
type Event struct {
	Type EventType

	// Program and Origin are set for ProgramLoaded.
	Program string
	Origin  Origin

	// ProcessID is set for ProcessIdentified.
	ProcessID string

	// To is set for StateChanged.
	To MachineState
}
