package phoenix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the monitor (e.g. "http://localhost:8080").
	BaseURL string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the phoenix dashboard API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("phoenix: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
	}, nil
}

// Status returns the live machine snapshot.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.get(ctx, "/api/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// History returns the production ledger, oldest first.
func (c *Client) History(ctx context.Context) ([]HistoricalRecord, error) {
	var records []HistoricalRecord
	if err := c.get(ctx, "/api/history", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecord removes the ledger record with this exact finish timestamp.
func (c *Client) DeleteRecord(ctx context.Context, finishedAt time.Time) error {
	path := "/api/history?finished_at=" + url.QueryEscape(finishedAt.Format(time.RFC3339Nano))
	return c.doDelete(ctx, path)
}

// Metrics returns the OEE snapshot for the given period.
func (c *Client) Metrics(ctx context.Context, period MetricsPeriod) (*Metrics, error) {
	q := url.Values{}
	if period.Preset != "" {
		q.Set("preset", period.Preset)
	} else if !period.From.IsZero() {
		q.Set("preset", "custom")
		q.Set("from", period.From.Format("2006-01-02"))
		q.Set("to", period.To.Format("2006-01-02"))
	}
	path := "/api/metrics"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var m Metrics
	if err := c.get(ctx, path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Shift returns the current shift configuration.
func (c *Client) Shift(ctx context.Context) (*ShiftConfig, error) {
	var cfg ShiftConfig
	if err := c.get(ctx, "/api/shift", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveShift saves a shift configuration and returns it as normalized by
// the server. Invalid times yield an Error with IsValidation(err) true.
func (c *Client) SaveShift(ctx context.Context, cfg ShiftConfig) (*ShiftConfig, error) {
	var saved ShiftConfig
	if err := c.put(ctx, "/api/shift", cfg, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Processes returns the process catalog.
func (c *Client) Processes(ctx context.Context) (map[string]string, error) {
	var catalog map[string]string
	if err := c.get(ctx, "/api/processes", &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// UpsertProcess creates or renames a process and returns the updated catalog.
func (c *Client) UpsertProcess(ctx context.Context, id, name string) (map[string]string, error) {
	body := map[string]string{"id": id, "name": name}
	var catalog map[string]string
	if err := c.put(ctx, "/api/processes", body, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// DeleteProcess removes a process from the catalog.
func (c *Client) DeleteProcess(ctx context.Context, id string) error {
	return c.doDelete(ctx, "/api/processes/"+url.PathEscape(id))
}

// RecentEvents returns the in-memory tail of machine notifications.
func (c *Client) RecentEvents(ctx context.Context) ([]Notification, error) {
	var events []Notification
	if err := c.get(ctx, "/api/events/recent", &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ExportCSV streams the ledger CSV to w and returns the byte count.
func (c *Client) ExportCSV(ctx context.Context, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/export.csv", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

// Health returns the server health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/healthz", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, dest)
}

func (c *Client) put(ctx context.Context, path string, body, dest any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRequest(req, dest)
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, nil)
}

func (c *Client) doRequest(req *http.Request, dest any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// decodeError turns a non-2xx response into an *Error. Bodies that are not
// the standard error envelope still produce a usable error.
func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode, Code: "unknown"}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
