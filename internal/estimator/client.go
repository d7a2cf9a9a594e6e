// Package estimator adapts external pose estimators and frame sources to the
// coach loop.
package estimator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shravan/physio/internal/coach"
	"github.com/shravan/physio/internal/pose"
)

// Client calls an HTTP pose-estimation service. The service receives
// {"image": "<base64>"} and answers with the keypoints of the detected
// person, either flat ({"keypoints": [...]}) or per person
// ({"poses": [{"keypoints": [...]}]}).
type Client struct {
	url        string
	httpClient *http.Client
	log        *slog.Logger
}

// Compile-time check: Client satisfies coach.Estimator.
var _ coach.Estimator = (*Client)(nil)

// NewClient creates a Client posting to url. timeout bounds each call.
func NewClient(url string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:        strings.TrimRight(url, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type estimateRequest struct {
	Image string `json:"image"`
}

type wireKeypoint struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

type estimateResponse struct {
	Keypoints []wireKeypoint `json:"keypoints"`
	Poses     []struct {
		Keypoints []wireKeypoint `json:"keypoints"`
	} `json:"poses"`
}

// Estimate sends the frame image and returns the first detected person.
// A response without any person is an empty snapshot, not an error.
func (c *Client) Estimate(ctx context.Context, f coach.Frame) (pose.Snapshot, error) {
	if len(f.Image) == 0 {
		return pose.Snapshot{}, errors.New("estimator: frame has no image")
	}

	data, err := json.Marshal(estimateRequest{Image: base64.StdEncoding.EncodeToString(f.Image)})
	if err != nil {
		return pose.Snapshot{}, fmt.Errorf("estimator: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return pose.Snapshot{}, fmt.Errorf("estimator: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pose.Snapshot{}, fmt.Errorf("estimator: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pose.Snapshot{}, fmt.Errorf("estimator: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return pose.Snapshot{}, fmt.Errorf("estimator: returned %d: %s", resp.StatusCode, body)
	}

	var out estimateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return pose.Snapshot{}, fmt.Errorf("estimator: decode response: %w", err)
	}

	wire := out.Keypoints
	if len(wire) == 0 && len(out.Poses) > 0 {
		wire = out.Poses[0].Keypoints
	}
	snap := toSnapshot(wire)

	c.log.Debug("pose estimated", "seq", f.Seq, "keypoints", len(snap.Keypoints),
		"duration", time.Since(start))
	return snap, nil
}

// toSnapshot keeps only keypoints with a recognised name.
func toSnapshot(wire []wireKeypoint) pose.Snapshot {
	snap := pose.Snapshot{Keypoints: make([]pose.Keypoint, 0, len(wire))}
	for _, w := range wire {
		name, ok := pose.ParseName(w.Name)
		if !ok {
			continue
		}
		snap.Keypoints = append(snap.Keypoints, pose.Keypoint{Name: name, X: w.X, Y: w.Y, Score: w.Score})
	}
	return snap
}

// Passthrough returns the snapshot carried by a recorded frame.
type Passthrough struct{}

var _ coach.Estimator = Passthrough{}

// Estimate returns f.Snapshot. Frames without one fail, so the loop skips
// them.
func (Passthrough) Estimate(_ context.Context, f coach.Frame) (pose.Snapshot, error) {
	if f.Snapshot == nil {
		return pose.Snapshot{}, errors.New("estimator: frame carries no keypoints")
	}
	return *f.Snapshot, nil
}
