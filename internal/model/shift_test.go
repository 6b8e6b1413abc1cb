package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftConfig_ValidateNormalizes(t *testing.T) {
	cfg := ShiftConfig{Start: "7:30", End: "17:30", LunchStart: "12:00", LunchEnd: "13:00"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "07:30", cfg.Start, "single-digit hour should be zero-padded")
}

func TestShiftConfig_ValidateRejectsBadFormat(t *testing.T) {
	for _, bad := range []string{"25:00", "12:60", "noon", "", "12h30"} {
		cfg := DefaultShift()
		cfg.Start = bad
		assert.Error(t, cfg.Validate(), "expected %q to be rejected", bad)
	}
}

func TestShiftConfig_ValidateRejectsEndBeforeStart(t *testing.T) {
	cfg := ShiftConfig{Start: "17:30", End: "07:30", LunchStart: "12:00", LunchEnd: "13:00"}
	assert.Error(t, cfg.Validate())

	// Equal is also rejected: end must be strictly after start.
	cfg = ShiftConfig{Start: "07:30", End: "07:30", LunchStart: "12:00", LunchEnd: "13:00"}
	assert.Error(t, cfg.Validate())
}

func TestShiftConfig_ReversedLunchIsNotAValidationError(t *testing.T) {
	// A reversed lunch interval is normalized by the availability
	// calculation, never rejected at save time.
	cfg := ShiftConfig{Start: "07:30", End: "17:30", LunchStart: "13:00", LunchEnd: "12:00"}
	assert.NoError(t, cfg.Validate())
}

func TestParseHHMM(t *testing.T) {
	secs, err := ParseHHMM("08:15")
	require.NoError(t, err)
	assert.Equal(t, 8*3600+15*60, secs)

	_, err = ParseHHMM("24:00")
	assert.Error(t, err)
}
