package coach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shravan/physio/internal/models"
	"github.com/shravan/physio/internal/pose"
)

// Frame is one captured video frame. Recorded frames may already carry the
// keypoints estimated when they were captured.
type Frame struct {
	Seq      int64
	Time     time.Time
	Image    []byte
	Snapshot *pose.Snapshot
}

// FrameSource yields frames from a capture device or a recording.
type FrameSource interface {
	// Open acquires the device. A refused permission must be reported as
	// ErrCameraAccessDenied.
	Open(ctx context.Context) error
	// Next blocks until the next frame is available. It returns io.EOF
	// when the source is exhausted.
	Next(ctx context.Context) (Frame, error)
	// Close releases the device.
	Close() error
}

// Estimator is the external pose-estimation service.
type Estimator interface {
	Estimate(ctx context.Context, f Frame) (pose.Snapshot, error)
}

// Recorder persists finished sessions.
type Recorder interface {
	SaveSession(ctx context.Context, row models.SessionRow) error
}

// Sink receives every frame result. It runs on the loop goroutine and must
// not call Stop.
type Sink func(FrameResult)

// Loop drives a Session from a FrameSource, one frame per tick. Ticks never
// overlap: the next frame is read only after the previous one was applied.
type Loop struct {
	session  *Session
	source   FrameSource
	est      Estimator
	sink     Sink
	recorder Recorder
	interval time.Duration
	log      *slog.Logger

	// readErrs counts consecutive source failures. Owned by run.
	readErrs int

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// maxReadErrors is how many consecutive FrameSource.Next failures end the
// loop. A source that fails on every call would otherwise spin forever.
const maxReadErrors = 5

// LoopOption configures optional Loop behaviour.
type LoopOption func(*Loop)

// WithInterval paces the loop to at most one frame per d. Zero processes
// frames as fast as the source yields them.
func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) { l.interval = d }
}

// WithRecorder saves the session summary when the loop is stopped.
func WithRecorder(r Recorder) LoopOption {
	return func(l *Loop) { l.recorder = r }
}

// NewLoop creates a loop. sink may be nil.
func NewLoop(session *Session, source FrameSource, est Estimator, sink Sink, log *slog.Logger, opts ...LoopOption) *Loop {
	if sink == nil {
		sink = func(FrameResult) {}
	}
	l := &Loop{
		session: session,
		source:  source,
		est:     est,
		sink:    sink,
		log:     log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start opens the frame source, resets the session and begins processing
// frames in the background. A refused camera is returned as
// ErrCameraAccessDenied and the session does not start.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrAlreadyRunning
	}

	if err := l.source.Open(ctx); err != nil {
		if errors.Is(err, ErrCameraAccessDenied) {
			l.log.Error("camera access denied", "error", err)
			return err
		}
		return fmt.Errorf("opening frame source: %w", err)
	}

	l.session.Reset()
	l.readErrs = 0
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running = true

	l.log.Info("session started", "session", l.session.ID(), "exercise", l.session.Exercise())
	go l.run(runCtx, l.done)
	return nil
}

// Wait blocks until the loop exits, either because the source is exhausted
// or because ctx is done.
func (l *Loop) Wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop halts the loop, waits for the in-flight frame to finish, releases the
// frame source and resets the session. It returns the summary of the
// session that ended; the summary is also saved when a Recorder is set and
// at least one frame was processed.
func (l *Loop) Stop(ctx context.Context) (models.SessionRow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return models.SessionRow{}, nil
	}

	l.cancel()
	<-l.done
	l.running = false

	var errs []error
	if err := l.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing frame source: %w", err))
	}

	row := l.session.Reset()
	l.log.Info("session stopped", "session", l.session.ID(), "exercise", row.Exercise,
		"reps", row.Reps, "frames", row.Frames)

	if l.recorder != nil && row.Frames > 0 {
		if err := l.recorder.SaveSession(ctx, row); err != nil {
			errs = append(errs, fmt.Errorf("saving session: %w", err))
		}
	}
	return row, errors.Join(errs...)
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if l.interval > 0 {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return
		}

		if !l.step(ctx) {
			return
		}
	}
}

// step processes one frame. It returns false when the loop should exit.
func (l *Loop) step(ctx context.Context) bool {
	frame, err := l.source.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			l.log.Info("frame source exhausted", "session", l.session.ID())
			return false
		}
		if ctx.Err() != nil {
			return false
		}
		if errors.Is(err, ErrCameraAccessDenied) {
			l.log.Error("camera access denied", "session", l.session.ID(), "error", err)
			return false
		}
		l.readErrs++
		if l.readErrs >= maxReadErrors {
			l.log.Error("frame source failing, ending session", "session", l.session.ID(),
				"attempts", l.readErrs, "error", err)
			return false
		}
		l.log.Warn("reading frame", "error", err)
		return true
	}
	l.readErrs = 0

	gen := l.session.Generation()
	snap, err := l.est.Estimate(ctx, frame)
	if ctx.Err() != nil {
		// Stopped while waiting on the estimator: drop the frame.
		return false
	}
	if err != nil {
		l.log.Warn("skipping frame", "seq", frame.Seq, "error", fmt.Errorf("%w: %w", ErrEstimation, err))
		if res, ok := l.session.Skip(gen); ok {
			l.sink(res)
		}
		return true
	}

	res, ok := l.session.Apply(gen, snap)
	if !ok {
		l.log.Debug("discarding stale frame", "seq", frame.Seq)
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	l.sink(res)
	return true
}
