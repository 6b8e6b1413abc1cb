package oee

import (
	"fmt"
	"time"

	"github.com/phoenix-mes/phoenix/internal/model"
)

// Recommendation thresholds. These mirror the values the operators were
// already calibrated against; changing them breaks report continuity.
const (
	oeeExcellent    = 85.0
	oeeAcceptable   = 60.0
	pauseShareLimit = 20.0
	gapShareLimit   = 15.0
	availabilityMin = 80.0
	performanceMin  = 85.0
	qualityAssumed  = 100.0
)

// Compute filters the ledger to records finished within [from, to]
// (calendar-day inclusive) and derives the OEE metric set. Ratios are not
// clamped above 100: availability over 100% means the shift configuration
// undershoots reality and should be visible, not hidden.
func Compute(from, to time.Time, shift model.ShiftConfig, ledger []model.HistoricalRecord, now time.Time) model.Metrics {
	m := model.Metrics{
		From:    dateOf(from),
		To:      dateOf(to),
		Quality: qualityAssumed,
	}

	for _, r := range ledger {
		d := dateOf(r.FinishedAt)
		if d.Before(m.From) || d.After(m.To) {
			continue
		}
		m.RunCount++
		m.HoleCount += r.HoleCount
		m.CutSeconds += r.CutSeconds
		m.TraverseSeconds += r.TraverseSeconds
		m.PauseSeconds += r.PauseSeconds
	}

	m.EffectiveSeconds = m.CutSeconds + m.TraverseSeconds
	m.IdleSeconds = m.PauseSeconds
	m.RecordedSeconds = m.EffectiveSeconds + m.IdleSeconds
	m.AvailableSeconds = AvailableSeconds(shift, from, to, now)

	m.GapSeconds = m.AvailableSeconds - m.EffectiveSeconds
	if m.GapSeconds < 0 {
		m.GapSeconds = 0
	}

	if m.AvailableSeconds > 0 {
		m.Availability = m.EffectiveSeconds / m.AvailableSeconds * 100
	}
	if m.RecordedSeconds > 0 {
		m.Performance = m.EffectiveSeconds / m.RecordedSeconds * 100
	}
	m.OEE = m.Availability * m.Performance * m.Quality / 10000

	if m.RunCount > 0 {
		m.AvgRunSeconds = m.EffectiveSeconds / float64(m.RunCount)
		m.AvgHolesPerRun = float64(m.HoleCount) / float64(m.RunCount)
	}
	if m.HoleCount > 0 {
		m.SecondsPerHole = m.EffectiveSeconds / float64(m.HoleCount)
	}
	if m.EffectiveSeconds > 0 {
		m.CutShare = m.CutSeconds / m.EffectiveSeconds * 100
		m.TraverseShare = m.TraverseSeconds / m.EffectiveSeconds * 100
	}
	if m.AvailableSeconds > 0 {
		m.PauseShare = m.PauseSeconds / m.AvailableSeconds * 100
	}

	m.Recommendations = recommend(m)
	return m
}

// recommend reproduces the automatic analysis panel: one OEE tier, then
// operational flags evaluated only when the period recorded any time.
func recommend(m model.Metrics) []model.Recommendation {
	var recs []model.Recommendation

	switch {
	case m.OEE >= oeeExcellent:
		recs = append(recs, model.Recommendation{
			Code:   model.RecExcellent,
			Detail: fmt.Sprintf("OEE %.1f%% — world-class equipment effectiveness", m.OEE),
		})
	case m.OEE >= oeeAcceptable:
		recs = append(recs, model.Recommendation{
			Code:   model.RecAcceptable,
			Detail: fmt.Sprintf("OEE %.1f%% — acceptable, room for improvement", m.OEE),
		})
	default:
		recs = append(recs, model.Recommendation{
			Code:   model.RecNeedsInvestigation,
			Detail: fmt.Sprintf("OEE %.1f%% — below 60%%, needs investigation", m.OEE),
		})
	}

	if m.RecordedSeconds > 0 {
		if pausePct := m.PauseSeconds / m.RecordedSeconds * 100; pausePct > pauseShareLimit {
			recs = append(recs, model.Recommendation{
				Code:   model.RecHighPause,
				Detail: fmt.Sprintf("%.1f%% of recorded time spent paused — check material supply and setup", pausePct),
			})
		}
		if m.AvailableSeconds > 0 {
			if gapPct := m.GapSeconds / m.AvailableSeconds * 100; gapPct > gapShareLimit {
				recs = append(recs, model.Recommendation{
					Code:   model.RecHighGap,
					Detail: fmt.Sprintf("machine idle for %s (%.1f%% of the shift) — check cycle start delays", model.FormatDuration(m.GapSeconds), gapPct),
				})
			}
		}
		if m.Availability < availabilityMin {
			recs = append(recs, model.Recommendation{
				Code:   model.RecLowAvailability,
				Detail: fmt.Sprintf("availability %.1f%% — equipment underutilized", m.Availability),
			})
		}
		if m.Performance < performanceMin && m.RunCount > 0 {
			recs = append(recs, model.Recommendation{
				Code:   model.RecLowPerformance,
				Detail: fmt.Sprintf("performance %.1f%% — review cutting speeds and traverse paths", m.Performance),
			})
		}
	}

	if m.RunCount == 0 {
		recs = append(recs, model.Recommendation{
			Code:   model.RecNoData,
			Detail: "no runs finished in the selected period",
		})
	}

	return recs
}

// TodayStats summarizes runs finished on now's calendar day.
func TodayStats(ledger []model.HistoricalRecord, now time.Time) model.TodayStats {
	today := dateOf(now)
	stats := model.TodayStats{Date: today.Format("2006-01-02")}
	for _, r := range ledger {
		if dateOf(r.FinishedAt).Equal(today) {
			stats.RunCount++
			stats.HoleCount += r.HoleCount
		}
	}
	if stats.RunCount > 0 {
		stats.AvgHolesPerRun = float64(stats.HoleCount) / float64(stats.RunCount)
	}
	return stats
}

// Today returns the single-day period ending now.
func Today(now time.Time) (time.Time, time.Time) {
	d := dateOf(now)
	return d, d
}

// ThisWeek returns the period from Monday of now's week through today.
func ThisWeek(now time.Time) (time.Time, time.Time) {
	d := dateOf(now)
	offset := (int(d.Weekday()) + 6) % 7 // Monday-based week
	return d.AddDate(0, 0, -offset), d
}

// ThisMonth returns the period from the first of now's month through today.
func ThisMonth(now time.Time) (time.Time, time.Time) {
	d := dateOf(now)
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()), d
}
