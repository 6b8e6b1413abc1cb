// Package export renders the production ledger as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/phoenix-mes/phoenix/internal/model"
)

var header = []string{
	"program", "origin", "process_id", "line_count", "hole_count",
	"cut_seconds", "traverse_seconds", "pause_seconds", "total_seconds",
	"cut_time", "traverse_time", "pause_time", "total_time",
	"finished_at",
}

// WriteCSV writes one row per ledger record. Raw seconds carry the data;
// the *_time columns repeat them human-formatted for whoever opens the file
// in a spreadsheet.
func WriteCSV(w io.Writer, records []model.HistoricalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Program,
			string(r.Origin),
			r.ProcessID,
			strconv.Itoa(r.LineCount),
			strconv.Itoa(r.HoleCount),
			formatSeconds(r.CutSeconds),
			formatSeconds(r.TraverseSeconds),
			formatSeconds(r.PauseSeconds),
			formatSeconds(r.TotalSeconds),
			model.FormatDuration(r.CutSeconds),
			model.FormatDuration(r.TraverseSeconds),
			model.FormatDuration(r.PauseSeconds),
			model.FormatDuration(r.TotalSeconds),
			r.FinishedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename builds the conventional export name for a given moment.
func Filename(now time.Time) string {
	return "historico_producao_" + now.Format("20060102_150405") + ".csv"
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 1, 64)
}
