package model

import "time"

// Metrics is the OEE snapshot computed for a period of the ledger.
// Ratios are percentages in [0,100] except where a misconfigured shift makes
// availability exceed 100 — that is surfaced as-is, it is a signal.
type Metrics struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	RunCount  int `json:"run_count"`
	HoleCount int `json:"hole_count"`

	CutSeconds      float64 `json:"cut_seconds"`
	TraverseSeconds float64 `json:"traverse_seconds"`
	PauseSeconds    float64 `json:"pause_seconds"`

	// EffectiveSeconds is cut+traverse; RecordedSeconds adds pause.
	EffectiveSeconds float64 `json:"effective_seconds"`
	IdleSeconds      float64 `json:"idle_seconds"`
	RecordedSeconds  float64 `json:"recorded_seconds"`

	// AvailableSeconds is the shift-configured working time in the period,
	// lunch excluded, today truncated at now.
	AvailableSeconds float64 `json:"available_seconds"`
	// GapSeconds is max(0, available-effective): time the machine could
	// have been progressing a program but was not.
	GapSeconds float64 `json:"gap_seconds"`

	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	OEE          float64 `json:"oee"`

	// Per-run averages; zero when the period has no runs.
	AvgRunSeconds  float64 `json:"avg_run_seconds"`
	AvgHolesPerRun float64 `json:"avg_holes_per_run"`
	SecondsPerHole float64 `json:"seconds_per_hole"`

	// CutShare and TraverseShare are percentages of effective time;
	// PauseShare is a percentage of available time.
	CutShare      float64 `json:"cut_share"`
	TraverseShare float64 `json:"traverse_share"`
	PauseShare    float64 `json:"pause_share"`

	Recommendations []Recommendation `json:"recommendations"`
}

// Recommendation is one finding from the automatic analysis.
type Recommendation struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Recommendation codes.
const (
	RecExcellent          = "excellent"
	RecAcceptable         = "acceptable"
	RecNeedsInvestigation = "needs_investigation"
	RecHighPause          = "high_pause"
	RecHighGap            = "high_gap"
	RecLowAvailability    = "low_availability"
	RecLowPerformance     = "low_performance"
	RecNoData             = "no_data"
)

// TodayStats is the dashboard summary of runs finished today.
type TodayStats struct {
	Date           string  `json:"date"`
	RunCount       int     `json:"run_count"`
	HoleCount      int     `json:"hole_count"`
	AvgHolesPerRun float64 `json:"avg_holes_per_run"`
}

// Notification is a best-effort state-change announcement for the
// presentation layer.
type Notification struct {
	State MachineState `json:"state"`
	Line  string       `json:"line"`
	At    time.Time    `json:"at"`
}
