package phoenix

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/status", r.URL.Path)
		json.NewEncoder(w).Encode(Status{
			Program: "bracket.nc",
			State:   "CUT",
			Running: true,
			Today:   TodayStats{RunCount: 3},
		})
	})

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bracket.nc", st.Program)
	assert.Equal(t, "CUT", st.State)
	assert.Equal(t, 3, st.Today.RunCount)
}

func TestDeleteRecord(t *testing.T) {
	finished := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, finished.Format(time.RFC3339Nano), r.URL.Query().Get("finished_at"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteRecord(context.Background(), finished))
}

func TestDeleteRecordNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "not_found", "message": "no record"},
		})
	})

	err := c.DeleteRecord(context.Background(), time.Now())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_found", apiErr.Code)
}

func TestMetricsPresetAndCustom(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(Metrics{RunCount: 2, OEE: 16.875})
	})

	m, err := c.Metrics(context.Background(), MetricsPeriod{Preset: "week"})
	require.NoError(t, err)
	assert.Equal(t, "preset=week", gotQuery)
	assert.InDelta(t, 16.875, m.OEE, 0.001)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	_, err = c.Metrics(context.Background(), MetricsPeriod{From: from, To: to})
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "preset=custom")
	assert.Contains(t, gotQuery, "from=2026-02-01")
	assert.Contains(t, gotQuery, "to=2026-02-10")
}

func TestSaveShiftValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "invalid_shift", "message": "bad time"},
		})
	})

	_, err := c.SaveShift(context.Background(), ShiftConfig{Start: "26:00"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestUpsertProcess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "104", body["id"])
		json.NewEncoder(w).Encode(map[string]string{"104": "Stainless 3mm"})
	})

	catalog, err := c.UpsertProcess(context.Background(), "104", "Stainless 3mm")
	require.NoError(t, err)
	assert.Equal(t, "Stainless 3mm", catalog["104"])
}

func TestExportCSV(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/export.csv", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("program,finished_at\nring.nc,2026-02-10T14:00:00Z\n"))
	})

	var buf bytes.Buffer
	n, err := c.ExportCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Contains(t, buf.String(), "ring.nc")
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Health{Status: "ok", Version: "1.0"})
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}
