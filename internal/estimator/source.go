package estimator

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shravan/physio/internal/coach"
)

// RecordingSource replays keypoints recorded as JSON lines, one frame per
// line: {"t": <unix ms, optional>, "keypoints": [{"name","x","y","score"}]}.
type RecordingSource struct {
	path string

	f       *os.File
	scanner *bufio.Scanner
	seq     int64
}

var _ coach.FrameSource = (*RecordingSource)(nil)

// NewRecordingSource creates a source reading path.
func NewRecordingSource(path string) *RecordingSource {
	return &RecordingSource{path: path}
}

type recordedFrame struct {
	T         int64          `json:"t"`
	Keypoints []wireKeypoint `json:"keypoints"`
}

// Open opens the recording. It may be called again after Close to replay
// from the start.
func (s *RecordingSource) Open(context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", coach.ErrCameraAccessDenied, s.path)
		}
		return fmt.Errorf("opening recording %s: %w", s.path, err)
	}
	s.f = f
	s.scanner = bufio.NewScanner(f)
	s.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	s.seq = 0
	return nil
}

// Next returns the next recorded frame. Blank lines are ignored.
func (s *RecordingSource) Next(ctx context.Context) (coach.Frame, error) {
	if s.scanner == nil {
		return coach.Frame{}, errors.New("recording not open")
	}
	for {
		if err := ctx.Err(); err != nil {
			return coach.Frame{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return coach.Frame{}, fmt.Errorf("reading recording: %w", err)
			}
			return coach.Frame{}, io.EOF
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		s.seq++
		var rec recordedFrame
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return coach.Frame{}, fmt.Errorf("decoding frame %d: %w", s.seq, err)
		}
		snap := toSnapshot(rec.Keypoints)
		frame := coach.Frame{Seq: s.seq, Snapshot: &snap}
		if rec.T > 0 {
			frame.Time = time.UnixMilli(rec.T)
		}
		return frame, nil
	}
}

// Close releases the file.
func (s *RecordingSource) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f, s.scanner = nil, nil
	return err
}

// imageExts are the frame formats DirSource picks up.
var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// DirSource yields the image files of a directory in name order, standing
// in for a camera that wrote its frames to disk.
type DirSource struct {
	dir string

	files []string
	next  int
}

var _ coach.FrameSource = (*DirSource)(nil)

// NewDirSource creates a source over the images in dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Open lists the frames. A directory the process may not read is reported
// as coach.ErrCameraAccessDenied.
func (s *DirSource) Open(context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", coach.ErrCameraAccessDenied, s.dir)
		}
		return fmt.Errorf("listing frames in %s: %w", s.dir, err)
	}

	s.files = s.files[:0]
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		s.files = append(s.files, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(s.files)
	s.next = 0
	return nil
}

// Next reads the next image.
func (s *DirSource) Next(ctx context.Context) (coach.Frame, error) {
	if err := ctx.Err(); err != nil {
		return coach.Frame{}, err
	}
	if s.next >= len(s.files) {
		return coach.Frame{}, io.EOF
	}
	path := s.files[s.next]
	s.next++

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return coach.Frame{}, fmt.Errorf("%w: %s", coach.ErrCameraAccessDenied, path)
		}
		return coach.Frame{}, fmt.Errorf("reading frame %s: %w", path, err)
	}

	f := coach.Frame{Seq: int64(s.next), Image: data}
	if info, err := os.Stat(path); err == nil {
		f.Time = info.ModTime()
	}
	return f, nil
}

// Close is a no-op; files are read whole.
func (s *DirSource) Close() error { return nil }
