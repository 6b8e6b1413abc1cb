package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phoenix-mes/phoenix/internal/model"
)

// Slot file names inside the data directory.
const (
	fileActiveRun = "active_run.json"
	fileIdentity  = "machine_state.json"
	fileHistory   = "history.json"
	fileProcesses = "processes.json"
	fileShift     = "shift.json"
)

// FileStore keeps each slot in its own JSON file. Writes go through a temp
// file and rename so a crash mid-write leaves the previous snapshot intact.
type FileStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileStore creates the data directory if needed and returns the store.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// load unmarshals a slot file into v. Returns false when the file is absent
// or unreadable; corrupt content is logged and treated as absent.
func (s *FileStore) load(name string, v any) bool {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("store: slot unreadable, using default", "slot", name, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("store: slot corrupt, using default", "slot", name, "error", err)
		return false
	}
	return true
}

func (s *FileStore) save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) LoadActiveRun() (model.ActiveRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var run model.ActiveRun
	if !s.load(fileActiveRun, &run) {
		return model.ActiveRun{State: model.StateIdle}, false
	}
	return run, true
}

func (s *FileStore) SaveActiveRun(run model.ActiveRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(fileActiveRun, run)
}

func (s *FileStore) ClearActiveRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(filepath.Join(s.dir, fileActiveRun))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: clear active run: %w", err)
	}
	return nil
}

func (s *FileStore) LoadIdentity() (model.MachineIdentity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id model.MachineIdentity
	if !s.load(fileIdentity, &id) {
		return model.MachineIdentity{}, false
	}
	return id, true
}

func (s *FileStore) SaveIdentity(id model.MachineIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(fileIdentity, id)
}

func (s *FileStore) LoadHistory() []model.HistoricalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadHistoryLocked()
}

func (s *FileStore) loadHistoryLocked() []model.HistoricalRecord {
	var hist []model.HistoricalRecord
	if !s.load(fileHistory, &hist) {
		return nil
	}
	return hist
}

func (s *FileStore) AppendHistory(rec model.HistoricalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := append(s.loadHistoryLocked(), rec)
	return s.save(fileHistory, hist)
}

func (s *FileStore) DeleteHistory(finishedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.loadHistoryLocked()
	for i, r := range hist {
		if r.FinishedAt.Equal(finishedAt) {
			hist = append(hist[:i], hist[i+1:]...)
			return true, s.save(fileHistory, hist)
		}
	}
	return false, nil
}

func (s *FileStore) LoadProcesses() model.ProcessCatalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat := model.ProcessCatalog{}
	s.load(fileProcesses, &cat)
	if cat == nil {
		cat = model.ProcessCatalog{}
	}
	return cat
}

func (s *FileStore) SaveProcesses(cat model.ProcessCatalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(fileProcesses, cat)
}

func (s *FileStore) LoadShift() model.ShiftConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := model.DefaultShift()
	var loaded model.ShiftConfig
	if s.load(fileShift, &loaded) {
		// Backfill missing fields so a hand-edited file cannot produce an
		// unparseable shift.
		if loaded.Start != "" {
			cfg.Start = loaded.Start
		}
		if loaded.End != "" {
			cfg.End = loaded.End
		}
		if loaded.LunchStart != "" {
			cfg.LunchStart = loaded.LunchStart
		}
		if loaded.LunchEnd != "" {
			cfg.LunchEnd = loaded.LunchEnd
		}
	}
	return cfg
}

func (s *FileStore) SaveShift(cfg model.ShiftConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(fileShift, cfg)
}

func (s *FileStore) Close() error { return nil }
