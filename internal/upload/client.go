package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shravan/physio/internal/coach"
	"github.com/shravan/physio/internal/models"
	"github.com/shravan/physio/internal/pose"
)

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Path, e.Status, strings.TrimSpace(e.Body))
}

// retryable reports whether a retry could succeed. Client errors will not.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	return true
}

// LiveSession identifies a session started on the server.
type LiveSession struct {
	ID       uuid.UUID `json:"id"`
	Exercise string    `json:"exercise"`
}

// Client drives live sessions on a Physio server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the Physio server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: time.Second,
	}
}

// StartSession opens a live session for the given exercise.
func (c *Client) StartSession(ctx context.Context, exercise string) (*LiveSession, error) {
	var s LiveSession
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", map[string]string{"exercise": exercise}, &s); err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	return &s, nil
}

// PushFrame sends one frame of keypoints. Retries up to 3 times with
// exponential backoff on network errors and server failures.
func (c *Client) PushFrame(ctx context.Context, id uuid.UUID, snap pose.Snapshot) (*coach.FrameResult, error) {
	body := map[string][]pose.Keypoint{"keypoints": snap.Keypoints}
	path := "/api/v1/sessions/" + id.String() + "/frames"

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * c.backoff):
			}
		}

		var res coach.FrameResult
		err := c.do(ctx, http.MethodPost, path, body, &res)
		if err == nil {
			return &res, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}

// StopSession ends a live session and returns the saved summary.
func (c *Client) StopSession(ctx context.Context, id uuid.UUID) (*models.SessionRow, error) {
	var row models.SessionRow
	if err := c.do(ctx, http.MethodDelete, "/api/v1/sessions/"+id.String(), nil, &row); err != nil {
		return nil, fmt.Errorf("stopping session: %w", err)
	}
	return &row, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
