// Package store persists the engine's durable slots: the active-run
// snapshot, the machine-identity snapshot, the production ledger, the
// process catalog and the shift configuration.
//
// The slot contract is deliberately forgiving on the read side: loads never
// fail. Absent or corrupt data degrades to a documented default (empty run,
// empty list, empty map, the canonical 07:30–17:30 shift) so a damaged data
// directory can never keep the state machine from starting. Writes are
// whole-slot overwrites; errors are returned for the caller to log, never to
// crash on.
package store

import (
	"log/slog"
	"strings"
	"time"

	"github.com/phoenix-mes/phoenix/internal/model"
)

// Store is the slot-level persistence contract.
type Store interface {
	// Active-run snapshot. The bool reports presence: a missing snapshot
	// means no run was in flight at the last shutdown.
	LoadActiveRun() (model.ActiveRun, bool)
	SaveActiveRun(run model.ActiveRun) error
	ClearActiveRun() error

	// Machine-identity snapshot, saved even when nothing is running.
	LoadIdentity() (model.MachineIdentity, bool)
	SaveIdentity(id model.MachineIdentity) error

	// Production ledger, append-only.
	LoadHistory() []model.HistoricalRecord
	AppendHistory(rec model.HistoricalRecord) error
	// DeleteHistory removes the first record whose FinishedAt matches
	// exactly. Reports whether anything was removed; a miss is not an error.
	DeleteHistory(finishedAt time.Time) (bool, error)

	LoadProcesses() model.ProcessCatalog
	SaveProcesses(cat model.ProcessCatalog) error

	LoadShift() model.ShiftConfig
	SaveShift(cfg model.ShiftConfig) error

	Close() error
}

// Open selects a backend from the configured data path: paths ending in
// .db or .sqlite open the SQLite backend, anything else is treated as a
// directory of JSON slot files (the reference format).
func Open(path string, logger *slog.Logger) (Store, error) {
	if strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite") {
		return OpenSQLite(path, logger)
	}
	return NewFileStore(path, logger)
}
