package shiftlinesdk

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

// Client is a minimal Shiftline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	ActorID     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

type Worker struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Position int    `json:"position"`
}

type Pattern struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	BreakMinutes int     `json:"break_minutes"`
	WorkHours    float64 `json:"work_hours"`
}

type Assignment struct {
	ID        string `json:"id"`
	WorkerID  string `json:"worker_id"`
	Date      string `json:"date"`
	PatternID string `json:"pattern_id"`
}

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AssignmentResult carries the saved assignment and the advisory warnings it raised.
type AssignmentResult struct {
	Assignment Assignment `json:"assignment"`
	Warnings   []Warning  `json:"warnings"`
}

type GenerateResult struct {
	Month    string `json:"month"`
	Created  int    `json:"created"`
	Replaced int64  `json:"replaced"`
}

type Workload struct {
	WorkerID     string  `json:"worker_id"`
	Worker       string  `json:"worker"`
	DayCount     int     `json:"day_count"`
	TotalHours   float64 `json:"total_hours"`
	AverageHours float64 `json:"average_hours"`
}

type Summary struct {
	Month string     `json:"month"`
	Items []Workload `json:"items"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// CreateWorker appends a worker to the roster.
func (c *Client) CreateWorker(ctx context.Context, name, category string) (Worker, error) {
	var resp Worker
	err := c.do(ctx, http.MethodPost, "workers", map[string]any{"name": name, "category": category}, &resp)
	return resp, err
}

// ListWorkers returns workers in roster order.
func (c *Client) ListWorkers(ctx context.Context) ([]Worker, error) {
	var resp struct {
		Items []Worker `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "workers", nil, &resp)
	return resp.Items, err
}

// ListPatterns returns the pattern catalog.
func (c *Client) ListPatterns(ctx context.Context) ([]Pattern, error) {
	var resp struct {
		Items []Pattern `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "patterns", nil, &resp)
	return resp.Items, err
}

// UpdatePattern sends the given fields as a PATCH; the server recomputes work hours.
func (c *Client) UpdatePattern(ctx context.Context, id string, fields map[string]any) (Pattern, error) {
	var resp Pattern
	err := c.do(ctx, http.MethodPatch, "patterns/"+url.PathEscape(id), fields, &resp)
	return resp, err
}

// CreateLeave records a day off request.
func (c *Client) CreateLeave(ctx context.Context, workerID, date, reason string) error {
	body := map[string]any{"worker_id": workerID, "date": date, "reason": reason}
	return c.do(ctx, http.MethodPost, "leave-requests", body, nil)
}

// CreateAssignment saves a manual assignment. Warnings never block it.
func (c *Client) CreateAssignment(ctx context.Context, workerID, date, patternID string) (AssignmentResult, error) {
	body := map[string]any{"worker_id": workerID, "date": date, "pattern_id": patternID}
	var resp AssignmentResult
	err := c.do(ctx, http.MethodPost, "assignments", body, &resp)
	return resp, err
}

// CheckAssignment returns the warnings a candidate would raise without saving it.
func (c *Client) CheckAssignment(ctx context.Context, workerID, date, patternID, excludeID string) ([]Warning, error) {
	body := map[string]any{"worker_id": workerID, "date": date, "pattern_id": patternID}
	if excludeID != "" {
		body["exclude_id"] = excludeID
	}
	var resp struct {
		Warnings []Warning `json:"warnings"`
	}
	err := c.do(ctx, http.MethodPost, "assignments/check", body, &resp)
	return resp.Warnings, err
}

// ListAssignments returns the assignments of a month, ordered by date.
func (c *Client) ListAssignments(ctx context.Context, month string) ([]Assignment, error) {
	var resp struct {
		Items []Assignment `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "assignments?month="+url.QueryEscape(month), nil, &resp)
	return resp.Items, err
}

// GenerateMonth replaces the month's assignments with a generated plan.
func (c *Client) GenerateMonth(ctx context.Context, month string) (GenerateResult, error) {
	var resp GenerateResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("months/%s/generate", url.PathEscape(month)), nil, &resp)
	return resp, err
}

// Summary returns per-worker workload for a month.
func (c *Client) Summary(ctx context.Context, month string) (Summary, error) {
	var resp Summary
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("months/%s/summary", url.PathEscape(month)), nil, &resp)
	return resp, err
}

// ExportXLSX downloads the month report workbook.
func (c *Client) ExportXLSX(ctx context.Context, month string) ([]byte, error) {
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("months/%s/export.xlsx", url.PathEscape(month)), nil, &buf)
	return buf.Bytes(), err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
		}
		return apiErr
	}
	switch dst := out.(type) {
	case nil:
		return nil
	case io.Writer:
		_, err := io.Copy(dst, resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
