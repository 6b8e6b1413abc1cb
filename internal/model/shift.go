package model

import (
	"fmt"
	"regexp"
)

// hhmmRe accepts H:MM and HH:MM up to 23:59.
var hhmmRe = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// ShiftConfig is the working-shift window used for availability. All four
// fields are HH:MM times of day.
type ShiftConfig struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	LunchStart string `json:"lunch_start"`
	LunchEnd   string `json:"lunch_end"`
}

// DefaultShift is the canonical shift used when no configuration has been
// saved yet.
func DefaultShift() ShiftConfig {
	return ShiftConfig{
		Start:      "07:30",
		End:        "17:30",
		LunchStart: "12:00",
		LunchEnd:   "13:00",
	}
}

// ParseHHMM validates an HH:MM string and returns seconds since midnight.
func ParseHHMM(v string) (int, error) {
	if !hhmmRe.MatchString(v) {
		return 0, fmt.Errorf("model: invalid HH:MM time %q", v)
	}
	var h, m int
	fmt.Sscanf(v, "%d:%d", &h, &m)
	return h*3600 + m*60, nil
}

// Validate checks the four time fields and normalizes them to zero-padded
// HH:MM. End must be strictly after Start; the lunch interval is not
// validated here — a reversed lunch is tolerated and swapped by the
// availability calculation instead.
func (c *ShiftConfig) Validate() error {
	fields := []*string{&c.Start, &c.End, &c.LunchStart, &c.LunchEnd}
	for _, f := range fields {
		secs, err := ParseHHMM(*f)
		if err != nil {
			return err
		}
		*f = fmt.Sprintf("%02d:%02d", secs/3600, secs%3600/60)
	}
	start, _ := ParseHHMM(c.Start)
	end, _ := ParseHHMM(c.End)
	if end <= start {
		return fmt.Errorf("model: shift end %s must be after start %s", c.End, c.Start)
	}
	return nil
}
