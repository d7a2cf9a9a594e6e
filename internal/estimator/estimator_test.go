package estimator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shravan/physio/internal/coach"
	"github.com/shravan/physio/internal/exercise"
	"github.com/shravan/physio/internal/pose"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestClientEstimate verifies the image is sent base64-encoded and unknown
// keypoint names are dropped.
func TestClientEstimate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req estimateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		img, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			t.Fatal(err)
		}
		if string(img) != "jpegbytes" {
			t.Errorf("image = %q, want jpegbytes", img)
		}
		writeTestJSON(t, w, map[string]any{
			"keypoints": []map[string]any{
				{"name": "left_wrist", "x": 10, "y": 20, "score": 0.9},
				{"name": "Right Wrist", "x": 30, "y": 40, "score": 0.8},
				{"name": "tail", "x": 0, "y": 0, "score": 1},
			},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, time.Second, testLogger())
	snap, err := c.Estimate(context.Background(), coach.Frame{Seq: 1, Image: []byte("jpegbytes")})
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Keypoints) != 2 {
		t.Fatalf("got %d keypoints, want 2", len(snap.Keypoints))
	}
	if snap.Keypoints[1].Name != pose.RightWrist {
		t.Errorf("name = %q, want %q", snap.Keypoints[1].Name, pose.RightWrist)
	}
}

// TestClientFirstPerson verifies only the first of several people is used.
func TestClientFirstPerson(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, map[string]any{
			"poses": []map[string]any{
				{"keypoints": []map[string]any{{"name": "nose", "x": 1, "y": 2, "score": 0.9}}},
				{"keypoints": []map[string]any{{"name": "nose", "x": 100, "y": 200, "score": 0.9}}},
			},
		})
	}))
	defer ts.Close()

	snap, err := NewClient(ts.URL, time.Second, testLogger()).
		Estimate(context.Background(), coach.Frame{Image: []byte{1}})
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Keypoints) != 1 || snap.Keypoints[0].X != 1 {
		t.Errorf("keypoints = %+v, want the first person's nose", snap.Keypoints)
	}
}

// TestClientNobodyDetected verifies an empty answer is an empty snapshot.
func TestClientNobodyDetected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, map[string]any{"poses": []any{}})
	}))
	defer ts.Close()

	snap, err := NewClient(ts.URL, time.Second, testLogger()).
		Estimate(context.Background(), coach.Frame{Image: []byte{1}})
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Empty() {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
}

// TestClientErrors verifies non-200 responses, timeouts and missing images
// are returned as errors.
func TestClientErrors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	tests := []struct {
		name  string
		url   string
		image []byte
	}{
		{"status", failing.URL, []byte{1}},
		{"timeout", slow.URL, []byte{1}},
		{"no image", failing.URL, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.url, 50*time.Millisecond, testLogger())
			if _, err := c.Estimate(context.Background(), coach.Frame{Image: tt.image}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// TestPassthrough verifies recorded snapshots are returned as-is.
func TestPassthrough(t *testing.T) {
	snap := pose.Snapshot{Keypoints: []pose.Keypoint{{Name: pose.Nose, Score: 1}}}
	got, err := Passthrough{}.Estimate(context.Background(), coach.Frame{Snapshot: &snap})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Keypoints) != 1 {
		t.Errorf("got %d keypoints, want 1", len(got.Keypoints))
	}
	if _, err := (Passthrough{}).Estimate(context.Background(), coach.Frame{}); err == nil {
		t.Error("expected error for frame without snapshot")
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestRecordingSource replays a JSONL file, skipping blank lines, and can be
// reopened.
func TestRecordingSource(t *testing.T) {
	path := writeTemp(t, "rec.jsonl", `{"t": 1700000000000, "keypoints": [{"name": "nose", "x": 1, "y": 2, "score": 0.9}]}

{"keypoints": []}
`)
	src := NewRecordingSource(path)
	ctx := context.Background()

	for round := 0; round < 2; round++ {
		if err := src.Open(ctx); err != nil {
			t.Fatal(err)
		}
		f, err := src.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if f.Seq != 1 || f.Snapshot == nil || len(f.Snapshot.Keypoints) != 1 {
			t.Errorf("frame 1 = %+v", f)
		}
		if f.Time.UnixMilli() != 1700000000000 {
			t.Errorf("time = %v", f.Time)
		}
		f, err = src.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if f.Seq != 2 || !f.Snapshot.Empty() {
			t.Errorf("frame 2 = %+v, want empty snapshot", f)
		}
		if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
			t.Errorf("err = %v, want io.EOF", err)
		}
		if err := src.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

// TestRecordingSourceBadLine verifies a malformed line is an error but does
// not end the stream.
func TestRecordingSourceBadLine(t *testing.T) {
	path := writeTemp(t, "rec.jsonl", "{not json\n{\"keypoints\": []}\n")
	src := NewRecordingSource(path)
	ctx := context.Background()
	if err := src.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	if _, err := src.Next(ctx); err == nil {
		t.Error("expected decode error")
	}
	if _, err := src.Next(ctx); err != nil {
		t.Errorf("second frame: %v", err)
	}
}

// TestDirSource verifies images are yielded in name order and other files
// are ignored.
func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"002.jpg":   "b",
		"001.PNG":   "a",
		"notes.txt": "x",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src := NewDirSource(dir)
	ctx := context.Background()
	if err := src.Open(ctx); err != nil {
		t.Fatal(err)
	}
	var got string
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got += string(f.Image)
	}
	if got != "ab" {
		t.Errorf("frames = %q, want %q", got, "ab")
	}
}

// TestDirSourceMissing verifies a missing directory is a plain open error.
func TestDirSourceMissing(t *testing.T) {
	err := NewDirSource(filepath.Join(t.TempDir(), "nope")).Open(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, coach.ErrCameraAccessDenied) {
		t.Error("missing dir must not be reported as access denied")
	}
}

// TestRecordingSourceDenied verifies an unreadable recording is reported
// like a refused camera.
func TestRecordingSourceDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	path := writeTemp(t, "rec.jsonl", "{\"keypoints\": []}\n")
	if err := os.Chmod(path, 0); err != nil {
		t.Fatal(err)
	}
	err := NewRecordingSource(path).Open(context.Background())
	if !errors.Is(err, coach.ErrCameraAccessDenied) {
		t.Errorf("Open() = %v, want ErrCameraAccessDenied", err)
	}
}

// TestRecordingSourceOversizedLine replays a recording whose only line is
// larger than the scanner buffer. Reads keep failing, and a loop over the
// source must still end on its own.
func TestRecordingSourceOversizedLine(t *testing.T) {
	line := `{"keypoints": [], "pad": "` + strings.Repeat("x", 2<<20) + "\"}\n"
	path := writeTemp(t, "rec.jsonl", line)

	src := NewRecordingSource(path)
	ctx := context.Background()
	if err := src.Open(ctx); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		_, err := src.Next(ctx)
		if err == nil || errors.Is(err, io.EOF) {
			t.Fatalf("read %d: err = %v, want scanner error", i, err)
		}
	}
	if err := src.Close(); err != nil {
		t.Fatal(err)
	}

	sess, err := coach.NewSession(exercise.NewSet(exercise.DefaultThresholds()), exercise.HandsUp, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	loop := coach.NewLoop(sess, src, Passthrough{}, nil, testLogger())
	if err := loop.Start(ctx); err != nil {
		t.Fatal(err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := loop.Wait(waitCtx); err != nil {
		t.Fatalf("loop did not exit after unreadable recording: %v", err)
	}
	row, err := loop.Stop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if row.Frames != 0 {
		t.Errorf("frames = %d, want 0", row.Frames)
	}
}
