package model

import "fmt"

// FormatDuration renders seconds the way the operator panel shows them:
// "2h 05m 09s", "5m 09s" or "9s" depending on magnitude.
func FormatDuration(seconds float64) string {
	s := int(seconds)
	if s < 0 {
		s = 0
	}
	h := s / 3600
	m := s % 3600 / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, sec)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}

// FormatHMS renders seconds as a fixed-width HH:MM:SS counter.
func FormatHMS(seconds float64) string {
	s := int(seconds)
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s%3600/60, s%60)
}
