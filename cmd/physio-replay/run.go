package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/shravan/physio/internal/coach"
	"github.com/shravan/physio/internal/config"
	"github.com/shravan/physio/internal/estimator"
	"github.com/shravan/physio/internal/exercise"
	"github.com/shravan/physio/internal/storage"
	"github.com/spf13/cobra"
)

var (
	runConfig        string
	runExercise      string
	runRecording     string
	runFrames        string
	runEstimatorURL  string
	runInterval      time.Duration
	runTimeout       time.Duration
	runSave          string
	runMinConfidence float64
	runVerbose       bool
)

// runCmd replays one source through a coaching session.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Count reps over a keypoint recording or a directory of frames",
	Example: `  physio-replay run -e handsCurl -r curls.jsonl
  physio-replay run -e sitAndReach -f ./frames --estimator-url http://localhost:9000/estimate --save sessions.db
  physio-replay run -e handsUp -f ./frames --config config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := exercise.ParseType(runExercise)
		if err != nil {
			return err
		}

		level := slog.LevelWarn
		if runVerbose {
			level = slog.LevelDebug
		}
		log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		th := exercise.DefaultThresholds()
		if runConfig != "" {
			cfg, err := config.LoadCoach(runConfig)
			if err != nil {
				return err
			}
			th = applyConfig(cmd, cfg)
		}

		source, est, err := replaySource(log)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("min-confidence") {
			th.MinConfidence = runMinConfidence
		}
		if err := th.Validate(); err != nil {
			return err
		}
		session, err := coach.NewSession(exercise.NewSet(th), typ, th.MinConfidence)
		if err != nil {
			return err
		}

		opts := []coach.LoopOption{coach.WithInterval(runInterval)}
		if runSave != "" {
			db, err := storage.OpenLite(runSave)
			if err != nil {
				return fmt.Errorf("opening %s: %w", runSave, err)
			}
			defer db.Close()
			opts = append(opts, coach.WithRecorder(db))
		}

		p := newPrinter(cmd.OutOrStdout())
		loop := coach.NewLoop(session, source, est, p.frame, log, opts...)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := loop.Start(ctx); err != nil {
			if errors.Is(err, coach.ErrCameraAccessDenied) {
				return fmt.Errorf("cannot read frames: %w", err)
			}
			return err
		}
		if err := loop.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		row, err := loop.Stop(context.Background())
		p.summary(row.Exercise, row.Reps, row.Frames, row.DetectedFrames, row.CorrectFrames, row.SkippedFrames, row.Duration())
		if err != nil {
			return err
		}
		if runSave != "" && row.Frames > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "saved session %s to %s\n", row.ID, runSave)
		}
		return nil
	},
}

// applyConfig takes the estimator and pacing settings from cfg for every
// flag the user did not set, and returns the configured thresholds.
func applyConfig(cmd *cobra.Command, cfg *config.Config) exercise.Thresholds {
	flags := cmd.Flags()
	if !flags.Changed("estimator-url") {
		runEstimatorURL = cfg.Estimator.URL
	}
	if !flags.Changed("timeout") {
		runTimeout = cfg.Estimator.Timeout
	}
	if !flags.Changed("interval") {
		runInterval = cfg.Coach.FrameInterval
	}
	return cfg.Coach.Thresholds
}

// replaySource picks the frame source and matching estimator from flags.
// Recordings already carry keypoints; image frames go to the estimator.
func replaySource(log *slog.Logger) (coach.FrameSource, coach.Estimator, error) {
	switch {
	case runRecording != "" && runFrames != "":
		return nil, nil, errors.New("use either --recording or --frames, not both")
	case runRecording != "":
		return estimator.NewRecordingSource(runRecording), estimator.Passthrough{}, nil
	case runFrames != "":
		if runEstimatorURL == "" {
			return nil, nil, errors.New("--frames needs --estimator-url")
		}
		return estimator.NewDirSource(runFrames), estimator.NewClient(runEstimatorURL, runTimeout, log), nil
	}
	return nil, nil, errors.New("one of --recording or --frames is required")
}

// printer renders frame results as they arrive, printing only changes.
type printer struct {
	out      io.Writer
	last     string
	detected bool

	rep  func(a ...any) string
	good func(a ...any) string
	bad  func(a ...any) string
	warn func(a ...any) string
	bold func(a ...any) string
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:      out,
		detected: true,
		rep:      color.New(color.FgGreen, color.Bold).SprintFunc(),
		good:     color.New(color.FgCyan).SprintFunc(),
		bad:      color.New(color.FgYellow).SprintFunc(),
		warn:     color.New(color.FgRed).SprintFunc(),
		bold:     color.New(color.Bold).SprintFunc(),
	}
}

func (p *printer) frame(res coach.FrameResult) {
	switch {
	case res.Skipped:
		fmt.Fprintf(p.out, "%5d  %s\n", res.Seq, p.warn("frame skipped (estimator error)"))
		return
	case !res.Detected:
		if p.detected {
			fmt.Fprintf(p.out, "%5d  %s\n", res.Seq, p.warn(res.Feedback))
		}
		p.detected = false
		p.last = ""
		return
	}
	p.detected = true

	if res.RepCompleted {
		fmt.Fprintf(p.out, "%5d  %s\n", res.Seq, p.rep(fmt.Sprintf("rep %d", res.RepCount)))
	}
	if res.Feedback != p.last {
		msg := p.bad(res.Feedback)
		if res.IsCorrect {
			msg = p.good(res.Feedback)
		}
		fmt.Fprintf(p.out, "%5d  [%s] %s\n", res.Seq, res.PoseState, msg)
		p.last = res.Feedback
	}
}

func (p *printer) summary(ex string, reps, frames, detected, correct, skipped int, d time.Duration) {
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "%s %s\n", p.bold("Exercise:"), exercise.Describe(exercise.Type(ex)).Title)
	fmt.Fprintf(p.out, "%s %s\n", p.bold("Reps:"), p.rep(reps))
	fmt.Fprintf(p.out, "%s %d (%d with pose, %d correct form, %d skipped)\n", p.bold("Frames:"), frames, detected, correct, skipped)
	if detected > 0 {
		fmt.Fprintf(p.out, "%s %.0f%%\n", p.bold("Form:"), float64(correct)/float64(detected)*100)
	}
	fmt.Fprintf(p.out, "%s %s\n", p.bold("Duration:"), d.Round(100*time.Millisecond))
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runConfig, "config", "c", "", "Config file supplying estimator, pacing and threshold defaults")
	runCmd.Flags().StringVarP(&runExercise, "exercise", "e", string(exercise.HandsUp), "Exercise to count (handsUp, handsCurl, sitAndReach)")
	runCmd.Flags().StringVarP(&runRecording, "recording", "r", "", "JSON Lines keypoint recording")
	runCmd.Flags().StringVarP(&runFrames, "frames", "f", "", "Directory of .jpg/.png frames")
	runCmd.Flags().StringVar(&runEstimatorURL, "estimator-url", "", "Pose-estimation endpoint for --frames")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "Pace between frames (0 = as fast as possible)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Second, "Estimator request timeout")
	runCmd.Flags().StringVar(&runSave, "save", "", "Save the session summary to this sqlite database")
	runCmd.Flags().Float64Var(&runMinConfidence, "min-confidence", 0.3, "Keypoint score below which a joint counts as missing")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Log every frame")
}
