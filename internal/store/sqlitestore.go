package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/phoenix-mes/phoenix/internal/model"
)

// Slot keys in the slots table.
const (
	slotActiveRun = "active_run"
	slotIdentity  = "machine_state"
	slotProcesses = "processes"
	slotShift     = "shift"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS slots (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS history (
	finished_at TEXT NOT NULL,
	record      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_finished_at ON history(finished_at);
`

// SQLiteStore implements the slot contract on an embedded SQLite database.
// Slots are JSON values in a key/value table; the ledger gets its own table
// keyed by finished_at so deletes don't rewrite the whole list.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// The modernc driver is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// loadSlot unmarshals a slot value into v, reporting presence. Corrupt or
// unreadable slots degrade to absent, matching the file backend.
func (s *SQLiteStore) loadSlot(name string, v any) bool {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM slots WHERE name = ?`, name).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("store: slot unreadable, using default", "slot", name, "error", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("store: slot corrupt, using default", "slot", name, "error", err)
		return false
	}
	return true
}

func (s *SQLiteStore) saveSlot(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", name, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO slots (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		name, string(raw))
	if err != nil {
		return fmt.Errorf("store: save %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) LoadActiveRun() (model.ActiveRun, bool) {
	var run model.ActiveRun
	if !s.loadSlot(slotActiveRun, &run) {
		return model.ActiveRun{State: model.StateIdle}, false
	}
	return run, true
}

func (s *SQLiteStore) SaveActiveRun(run model.ActiveRun) error {
	return s.saveSlot(slotActiveRun, run)
}

func (s *SQLiteStore) ClearActiveRun() error {
	if _, err := s.db.Exec(`DELETE FROM slots WHERE name = ?`, slotActiveRun); err != nil {
		return fmt.Errorf("store: clear active run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadIdentity() (model.MachineIdentity, bool) {
	var id model.MachineIdentity
	if !s.loadSlot(slotIdentity, &id) {
		return model.MachineIdentity{}, false
	}
	return id, true
}

func (s *SQLiteStore) SaveIdentity(id model.MachineIdentity) error {
	return s.saveSlot(slotIdentity, id)
}

func (s *SQLiteStore) LoadHistory() []model.HistoricalRecord {
	rows, err := s.db.Query(`SELECT record FROM history ORDER BY finished_at`)
	if err != nil {
		s.logger.Warn("store: history unreadable, using empty ledger", "error", err)
		return nil
	}
	defer rows.Close()

	var hist []model.HistoricalRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			continue
		}
		var rec model.HistoricalRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn("store: skipping corrupt history row", "error", err)
			continue
		}
		hist = append(hist, rec)
	}
	return hist
}

func (s *SQLiteStore) AppendHistory(rec model.HistoricalRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal history record: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO history (finished_at, record) VALUES (?, ?)`,
		rec.FinishedAt.UTC().Format(time.RFC3339Nano), string(raw))
	if err != nil {
		return fmt.Errorf("store: append history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteHistory(finishedAt time.Time) (bool, error) {
	res, err := s.db.Exec(
		`DELETE FROM history WHERE rowid IN
		 (SELECT rowid FROM history WHERE finished_at = ? LIMIT 1)`,
		finishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("store: delete history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete history: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) LoadProcesses() model.ProcessCatalog {
	cat := model.ProcessCatalog{}
	s.loadSlot(slotProcesses, &cat)
	if cat == nil {
		cat = model.ProcessCatalog{}
	}
	return cat
}

func (s *SQLiteStore) SaveProcesses(cat model.ProcessCatalog) error {
	return s.saveSlot(slotProcesses, cat)
}

func (s *SQLiteStore) LoadShift() model.ShiftConfig {
	cfg := model.DefaultShift()
	var loaded model.ShiftConfig
	if s.loadSlot(slotShift, &loaded) && loaded.Start != "" {
		cfg = loaded
	}
	return cfg
}

func (s *SQLiteStore) SaveShift(cfg model.ShiftConfig) error {
	return s.saveSlot(slotShift, cfg)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
