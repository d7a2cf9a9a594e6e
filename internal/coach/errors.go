package coach

import "errors"

var (
	// ErrMissingKeypoints marks a frame whose required joints were absent or
	// below the confidence threshold. It never ends a session.
	ErrMissingKeypoints = errors.New("required keypoints missing")

	// ErrEstimation wraps a failed pose-estimation call. The frame is
	// skipped and the loop continues.
	ErrEstimation = errors.New("pose estimation failed")

	// ErrCameraAccessDenied means the frame source could not be opened
	// because access was refused. The session cannot start and is not
	// retried.
	ErrCameraAccessDenied = errors.New("camera access denied")

	// ErrAlreadyRunning is returned by Start on a loop that is running.
	ErrAlreadyRunning = errors.New("session already running")
)
