package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenix-mes/phoenix/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	return s
}

func TestFileStore_ActiveRunRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.LoadActiveRun()
	assert.False(t, ok, "fresh store has no active run")

	entered := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	run := model.ActiveRun{
		Program:        "bracket.nc",
		Origin:         model.OriginLibrary,
		ProcessID:      "1042",
		HoleCount:      7,
		Running:        true,
		State:          model.StateCut,
		StateEnteredAt: &entered,
		CutSeconds:     120.5,
	}
	require.NoError(t, s.SaveActiveRun(run))

	got, ok := s.LoadActiveRun()
	require.True(t, ok)
	assert.True(t, got.Running)
	assert.Equal(t, model.StateCut, got.State)
	require.NotNil(t, got.StateEnteredAt)
	assert.True(t, got.StateEnteredAt.Equal(entered), "state_entered_at must round-trip exactly")
	assert.InDelta(t, 120.5, got.CutSeconds, 0.001)

	require.NoError(t, s.ClearActiveRun())
	_, ok = s.LoadActiveRun()
	assert.False(t, ok)
	// Clearing twice is a no-op.
	require.NoError(t, s.ClearActiveRun())
}

func TestFileStore_CorruptSlotDegradesToDefault(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, fileHistory), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileShift), []byte("[]"), 0o644))

	assert.Empty(t, s.LoadHistory())
	assert.Equal(t, model.DefaultShift(), s.LoadShift())
}

func TestFileStore_HistoryAppendAndDelete(t *testing.T) {
	s := newTestStore(t)

	at := time.Date(2026, 3, 2, 16, 45, 0, 0, time.UTC)
	require.NoError(t, s.AppendHistory(model.HistoricalRecord{Program: "a.nc", FinishedAt: at}))
	require.NoError(t, s.AppendHistory(model.HistoricalRecord{Program: "b.nc", FinishedAt: at.Add(time.Hour)}))
	// Same finished_at, different fields: delete must still remove only one.
	require.NoError(t, s.AppendHistory(model.HistoricalRecord{Program: "c.nc", FinishedAt: at}))

	require.Len(t, s.LoadHistory(), 3)

	removed, err := s.DeleteHistory(at)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, s.LoadHistory(), 2, "exactly one colliding record removed")

	removed, err = s.DeleteHistory(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, removed, "deleting a nonexistent key is a no-op")
	assert.Len(t, s.LoadHistory(), 2)
}

func TestFileStore_ProcessesRoundTrip(t *testing.T) {
	s := newTestStore(t)

	assert.Empty(t, s.LoadProcesses())

	cat := model.ProcessCatalog{"1042": "Stainless 3mm"}
	require.NoError(t, s.SaveProcesses(cat))
	assert.Equal(t, cat, s.LoadProcesses())
}

func TestFileStore_ShiftDefaultsAndRoundTrip(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, model.DefaultShift(), s.LoadShift())

	cfg := model.ShiftConfig{Start: "06:00", End: "14:00", LunchStart: "10:00", LunchEnd: "10:30"}
	require.NoError(t, s.SaveShift(cfg))
	assert.Equal(t, cfg, s.LoadShift())
}

func TestFileStore_IdentityRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.LoadIdentity()
	assert.False(t, ok)

	id := model.MachineIdentity{Program: "bracket.nc", Origin: model.OriginProgrammed, ProcessID: "7", LineCount: 421}
	require.NoError(t, s.SaveIdentity(id))

	got, ok := s.LoadIdentity()
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestOpen_PicksBackendFromPath(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, testLogger())
	require.NoError(t, err)
	defer s.Close()
	_, isFile := s.(*FileStore)
	assert.True(t, isFile)

	s2, err := Open(filepath.Join(dir, "phoenix.db"), testLogger())
	require.NoError(t, err)
	defer s2.Close()
	_, isSQLite := s2.(*SQLiteStore)
	assert.True(t, isSQLite)
}
