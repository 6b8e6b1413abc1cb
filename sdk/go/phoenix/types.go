package phoenix

import "time"

// Status is the live machine snapshot returned by GET /api/status.
type Status struct {
	Program     string `json:"program,omitempty"`
	Origin      string `json:"origin,omitempty"`
	ProcessID   string `json:"process_id,omitempty"`
	ProcessName string `json:"process_name,omitempty"`
	LineCount   int    `json:"line_count"`
	Running     bool   `json:"running"`
	State       string `json:"state"`
	HoleCount   int    `json:"hole_count"`

	CutSeconds      float64 `json:"cut_seconds"`
	TraverseSeconds float64 `json:"traverse_seconds"`
	PauseSeconds    float64 `json:"pause_seconds"`
	TotalSeconds    float64 `json:"total_seconds"`

	CutTime      string `json:"cut_time"`
	TraverseTime string `json:"traverse_time"`
	PauseTime    string `json:"pause_time"`
	TotalTime    string `json:"total_time"`

	Today TodayStats `json:"today"`
}

// TodayStats summarizes the runs finished today.
type TodayStats struct {
	Date           string  `json:"date"`
	RunCount       int     `json:"run_count"`
	HoleCount      int     `json:"hole_count"`
	AvgHolesPerRun float64 `json:"avg_holes_per_run"`
}

// HistoricalRecord is one finished run in the production ledger.
type HistoricalRecord struct {
	Program         string    `json:"program"`
	Origin          string    `json:"origin"`
	ProcessID       string    `json:"process_id"`
	LineCount       int       `json:"line_count"`
	HoleCount       int       `json:"hole_count"`
	CutSeconds      float64   `json:"cut_seconds"`
	TraverseSeconds float64   `json:"traverse_seconds"`
	PauseSeconds    float64   `json:"pause_seconds"`
	TotalSeconds    float64   `json:"total_seconds"`
	FinishedAt      time.Time `json:"finished_at"`
}

// ShiftConfig is the working-shift window, all fields HH:MM.
type ShiftConfig struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	LunchStart string `json:"lunch_start"`
	LunchEnd   string `json:"lunch_end"`
}

// Recommendation is one finding from the OEE analysis.
type Recommendation struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Metrics is the OEE snapshot for a period.
type Metrics struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	RunCount  int `json:"run_count"`
	HoleCount int `json:"hole_count"`

	CutSeconds      float64 `json:"cut_seconds"`
	TraverseSeconds float64 `json:"traverse_seconds"`
	PauseSeconds    float64 `json:"pause_seconds"`

	EffectiveSeconds float64 `json:"effective_seconds"`
	IdleSeconds      float64 `json:"idle_seconds"`
	RecordedSeconds  float64 `json:"recorded_seconds"`
	AvailableSeconds float64 `json:"available_seconds"`
	GapSeconds       float64 `json:"gap_seconds"`

	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	OEE          float64 `json:"oee"`

	AvgRunSeconds  float64 `json:"avg_run_seconds"`
	AvgHolesPerRun float64 `json:"avg_holes_per_run"`
	SecondsPerHole float64 `json:"seconds_per_hole"`

	CutShare      float64 `json:"cut_share"`
	TraverseShare float64 `json:"traverse_share"`
	PauseShare    float64 `json:"pause_share"`

	Recommendations []Recommendation `json:"recommendations"`
}

// Notification is one machine state-change announcement.
type Notification struct {
	State string    `json:"state"`
	Line  string    `json:"line"`
	At    time.Time `json:"at"`
}

// Health is the server health report.
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// MetricsPeriod selects the period for Metrics requests.
type MetricsPeriod struct {
	// Preset is today, week or month. Leave empty when using From/To.
	Preset string
	// From and To bound a custom period at day granularity.
	From time.Time
	To   time.Time
}
