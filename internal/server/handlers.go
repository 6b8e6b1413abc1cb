package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/phoenix-mes/phoenix/internal/engine"
	"github.com/phoenix-mes/phoenix/internal/export"
	"github.com/phoenix-mes/phoenix/internal/model"
	"github.com/phoenix-mes/phoenix/internal/oee"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	engine      *engine.Engine
	broker      *Broker
	logger      *slog.Logger
	startedAt   time.Time
	version     string
	openapiSpec []byte
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Broker and OpenAPISpec are optional.
type HandlersDeps struct {
	Engine      *engine.Engine
	Broker      *Broker
	Logger      *slog.Logger
	Version     string
	OpenAPISpec []byte
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		engine:      d.Engine,
		broker:      d.Broker,
		logger:      d.Logger,
		startedAt:   time.Now(),
		version:     d.Version,
		openapiSpec: d.OpenAPISpec,
	}
}

// statusResponse is the dashboard poll payload: the live machine snapshot
// plus operator-facing formatted durations and the day counters.
type statusResponse struct {
	engine.Status

	CutTime      string `json:"cut_time"`
	TraverseTime string `json:"traverse_time"`
	PauseTime    string `json:"pause_time"`
	TotalTime    string `json:"total_time"`

	Today model.TodayStats `json:"today"`
}

// HandleStatus handles GET /api/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:       st,
		CutTime:      model.FormatHMS(st.CutSeconds),
		TraverseTime: model.FormatHMS(st.TraverseSeconds),
		PauseTime:    model.FormatHMS(st.PauseSeconds),
		TotalTime:    model.FormatHMS(st.TotalSeconds),
		Today:        h.engine.TodayStats(),
	})
}

// HandleHistory handles GET /api/history.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	records := h.engine.History()
	if records == nil {
		records = []model.HistoricalRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleDeleteRecord handles DELETE /api/history. The record is addressed
// by its finished_at timestamp, which is unique enough in practice; when
// two records collide only the first is removed.
func (h *Handlers) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("finished_at")
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "missing_parameter", "finished_at is required")
		return
	}
	finishedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_parameter", "finished_at must be RFC 3339")
		return
	}
	deleted, err := h.engine.DeleteRecord(finishedAt)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "not_found", "no record with that finished_at")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMetrics handles GET /api/metrics. Either preset=today|week|month
// or an explicit from/to pair selects the period.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := time.Now()

	var from, to time.Time
	switch preset := q.Get("preset"); preset {
	case "today", "":
		from, to = oee.Today(now)
	case "week":
		from, to = oee.ThisWeek(now)
	case "month":
		from, to = oee.ThisMonth(now)
	case "custom":
		var err error
		if from, err = parseDay(q.Get("from")); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_parameter", "from must be RFC 3339 or YYYY-MM-DD")
			return
		}
		if to, err = parseDay(q.Get("to")); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_parameter", "to must be RFC 3339 or YYYY-MM-DD")
			return
		}
		if to.Before(from) {
			writeError(w, r, http.StatusBadRequest, "invalid_parameter", "to is before from")
			return
		}
	default:
		writeError(w, r, http.StatusBadRequest, "invalid_parameter", "preset must be today, week, month or custom")
		return
	}

	writeJSON(w, http.StatusOK, h.engine.ComputeMetrics(from, to))
}

func parseDay(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", v, time.Local)
}

// HandleGetShift handles GET /api/shift.
func (h *Handlers) HandleGetShift(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Shift())
}

// HandlePutShift handles PUT /api/shift.
func (h *Handlers) HandlePutShift(w http.ResponseWriter, r *http.Request) {
	var cfg model.ShiftConfig
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := h.engine.SaveShift(cfg); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_shift", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Shift())
}

// HandleGetProcesses handles GET /api/processes.
func (h *Handlers) HandleGetProcesses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Processes())
}

type processRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HandlePutProcess handles PUT /api/processes.
func (h *Handlers) HandlePutProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := h.engine.UpsertProcess(req.ID, req.Name); err != nil {
		if errors.Is(err, engine.ErrEmptyProcess) {
			writeError(w, r, http.StatusUnprocessableEntity, "invalid_process", err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Processes())
}

// HandleDeleteProcess handles DELETE /api/processes/{id}.
func (h *Handlers) HandleDeleteProcess(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := h.engine.DeleteProcess(id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "not_found", "no process with that id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleExportCSV handles GET /api/export.csv.
func (h *Handlers) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	records := h.engine.History()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	if err := export.WriteCSV(w, records); err != nil {
		// Headers are already out, all we can do is log.
		h.logger.Warn("export csv write", "error", err)
	}
}

// HandleEvents handles GET /api/events (SSE).
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "event stream not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Disable the server's WriteTimeout for this long-lived connection.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// HandleRecentEvents handles GET /api/events/recent: the in-memory tail of
// notifications for clients that missed the live stream.
func (h *Handlers) HandleRecentEvents(w http.ResponseWriter, r *http.Request) {
	events := h.engine.RecentEvents()
	if events == nil {
		events = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleOpenAPISpec handles GET /openapi.yaml.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openapiSpec) == 0 {
		writeError(w, r, http.StatusNotFound, "not_found", "openapi spec not embedded")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(h.openapiSpec)
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}
