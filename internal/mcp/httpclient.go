package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shravan/physio/internal/models"
	"github.com/shravan/physio/internal/storage"
)

// HTTPClient implements DataSource by calling the Physio REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) ListSessions(ctx context.Context, start, end time.Time, exercise string) ([]models.SessionRow, error) {
	params := timeParams(start, end)
	if exercise != "" {
		params.Set("exercise", exercise)
	}

	body, err := c.get(ctx, "/api/v1/history", params)
	if err != nil {
		return nil, err
	}

	var rows []models.SessionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode history: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRow, error) {
	body, err := c.get(ctx, "/api/v1/history/"+id.String(), nil)
	if err != nil {
		return nil, err
	}

	var row models.SessionRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("httpclient: decode session: %w", err)
	}
	return &row, nil
}

// DailyProgress asks for the calendar day of day, in day's location.
func (c *HTTPClient) DailyProgress(ctx context.Context, day time.Time) (*models.DailyProgress, error) {
	params := url.Values{}
	params.Set("date", day.Format("2006-01-02"))
	if name := day.Location().String(); name != "Local" && name != "" {
		params.Set("tz", name)
	}

	body, err := c.get(ctx, "/api/v1/progress/today", params)
	if err != nil {
		return nil, err
	}

	var p models.DailyProgress
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("httpclient: decode progress: %w", err)
	}
	return &p, nil
}

func (c *HTTPClient) DailyReps(ctx context.Context, start, end time.Time) ([]models.DailyReps, error) {
	body, err := c.get(ctx, "/api/v1/progress/daily", timeParams(start, end))
	if err != nil {
		return nil, err
	}

	var reps []models.DailyReps
	if err := json.Unmarshal(body, &reps); err != nil {
		return nil, fmt.Errorf("httpclient: decode daily reps: %w", err)
	}
	return reps, nil
}
