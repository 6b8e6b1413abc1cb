package model

import "time"

// HistoricalRecord is one finished run in the production ledger.
// Records are append-only: never mutated, removed only by an explicit
// delete keyed on FinishedAt.
type HistoricalRecord struct {
	Program         string    `json:"program"`
	Origin          Origin    `json:"origin"`
	ProcessID       string    `json:"process_id"`
	LineCount       int       `json:"line_count"`
	HoleCount       int       `json:"hole_count"`
	CutSeconds      float64   `json:"cut_seconds"`
	TraverseSeconds float64   `json:"traverse_seconds"`
	PauseSeconds    float64   `json:"pause_seconds"`
	TotalSeconds    float64   `json:"total_seconds"`
	FinishedAt      time.Time `json:"finished_at"`
}

// ProcessCatalog maps a controller process ID to its display name.
type ProcessCatalog map[string]string

// DisplayName resolves an ID to its catalog name, falling back to the raw
// ID when uncataloged.
func (c ProcessCatalog) DisplayName(id string) string {
	if name, ok := c[id]; ok && name != "" {
		return name
	}
	return id
}
