package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shravan/physio/internal/estimator"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	FramesSent   int
	FramesNoPose int
	RepsRecorded int
	FailedFiles  []string
}

// Uploader replays keypoint recordings against a Physio server, one live
// session per recording, so they land in the server's history.
type Uploader struct {
	client   *Client
	state    *StateDB
	exercise string
	dryRun   bool
	log      *slog.Logger
	stats    Stats
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client *Client, state *StateDB, exercise string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client:   client,
		state:    state,
		exercise: exercise,
		dryRun:   dryRun,
		log:      log,
	}
}

// CollectRecordings expands directories to the .jsonl files they contain.
// Files are returned in lexical order, each once.
func CollectRecordings(paths []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(p string) error {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
		return nil
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			if err := add(p); err != nil {
				return nil, err
			}
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".jsonl") {
				continue
			}
			if err := add(filepath.Join(p, e.Name())); err != nil {
				return nil, err
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Run uploads every recording not already in the state database. A failed
// recording is counted and skipped; only cancellation aborts the run.
func (u *Uploader) Run(ctx context.Context, paths []string) (*Stats, error) {
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		u.stats.FilesTotal++

		info, err := os.Stat(path)
		if err != nil {
			u.fail(path, err)
			continue
		}
		hash, err := HashFile(path)
		if err != nil {
			u.fail(path, err)
			continue
		}
		done, err := u.state.IsUploaded(path, info.Size(), hash)
		if err != nil {
			return &u.stats, fmt.Errorf("checking state for %s: %w", path, err)
		}
		if done {
			u.stats.FilesSkipped++
			u.log.Debug("already uploaded", "file", path)
			continue
		}

		if err := u.uploadFile(ctx, path, info.Size(), hash); err != nil {
			if ctx.Err() != nil {
				return &u.stats, ctx.Err()
			}
			u.fail(path, err)
			continue
		}
		if !u.dryRun {
			u.stats.FilesUploaded++
		}
	}
	return &u.stats, nil
}

func (u *Uploader) fail(path string, err error) {
	u.stats.FilesErrored++
	u.stats.FailedFiles = append(u.stats.FailedFiles, filepath.Base(path))
	u.log.Error("upload failed", "file", path, "error", err)
}

func (u *Uploader) uploadFile(ctx context.Context, path string, size int64, hash string) error {
	src := estimator.NewRecordingSource(path)
	if err := src.Open(ctx); err != nil {
		return err
	}
	defer src.Close()

	var live *LiveSession
	if !u.dryRun {
		var err error
		live, err = u.client.StartSession(ctx, u.exercise)
		if err != nil {
			return err
		}
	}

	var frames int
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			u.abandon(live)
			return err
		}
		if frame.Snapshot == nil {
			continue
		}
		frames++
		if u.dryRun {
			continue
		}
		res, err := u.client.PushFrame(ctx, live.ID, *frame.Snapshot)
		if err != nil {
			u.abandon(live)
			return fmt.Errorf("frame %d: %w", frame.Seq, err)
		}
		u.stats.FramesSent++
		if !res.Detected {
			u.stats.FramesNoPose++
		}
	}

	if u.dryRun {
		u.log.Info("dry run", "file", filepath.Base(path), "frames", frames)
		return nil
	}

	row, err := u.client.StopSession(ctx, live.ID)
	if err != nil {
		return err
	}
	u.stats.RepsRecorded += row.Reps
	u.log.Info("uploaded", "file", filepath.Base(path), "session", row.ID, "frames", row.Frames, "reps", row.Reps)

	if err := u.state.MarkUploaded(path, size, hash, *row); err != nil {
		return fmt.Errorf("recording upload state: %w", err)
	}
	return nil
}

// abandon stops a half-sent session so it does not linger on the server.
// The partial segment is still saved there.
func (u *Uploader) abandon(live *LiveSession) {
	if live == nil {
		return
	}
	if _, err := u.client.StopSession(context.Background(), live.ID); err != nil {
		u.log.Warn("stopping abandoned session", "session", live.ID, "error", err)
	}
}
