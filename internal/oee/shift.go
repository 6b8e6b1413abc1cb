// Package oee computes shift-aware availability, performance and OEE from
// the production ledger.
package oee

import (
	"time"

	"github.com/phoenix-mes/phoenix/internal/model"
)

// secondsOfDay parses an HH:MM field, degrading to 0 on a malformed value.
// A shift whose fields cannot be parsed ends up with end <= start and
// contributes no available time — tolerated, not rejected.
func secondsOfDay(hhmm string) int {
	secs, err := model.ParseHHMM(hhmm)
	if err != nil {
		return 0
	}
	return secs
}

// dateOf truncates a timestamp to its calendar day.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AvailableSeconds returns the shift-configured working seconds across the
// calendar days [from, to], lunch excluded. Days after today contribute
// nothing; today is truncated at now. A reversed lunch interval is swapped
// rather than rejected.
func AvailableSeconds(cfg model.ShiftConfig, from, to, now time.Time) float64 {
	shiftStart := secondsOfDay(cfg.Start)
	shiftEnd := secondsOfDay(cfg.End)
	lunchStart := secondsOfDay(cfg.LunchStart)
	lunchEnd := secondsOfDay(cfg.LunchEnd)

	if shiftEnd <= shiftStart {
		return 0
	}
	if lunchEnd < lunchStart {
		lunchStart, lunchEnd = lunchEnd, lunchStart
	}

	today := dateOf(now)
	nowSecs := now.Hour()*3600 + now.Minute()*60 + now.Second()

	total := 0
	for day := dateOf(from); !day.After(dateOf(to)); day = day.AddDate(0, 0, 1) {
		if day.After(today) {
			break
		}
		limit := shiftEnd
		if day.Equal(today) && nowSecs < limit {
			limit = nowSecs
		}
		if limit <= shiftStart {
			continue
		}
		period := limit - shiftStart
		overlap := min(limit, lunchEnd) - max(shiftStart, lunchStart)
		if overlap < 0 {
			overlap = 0
		}
		if period > overlap {
			total += period - overlap
		}
	}
	return float64(total)
}
