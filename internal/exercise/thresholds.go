package exercise

import "fmt"

// Thresholds tunes keypoint acceptance and the deadbands used for state
// transitions. The correctness check always uses the plain inequality; the
// margins only widen the band a pose must clear to change state.
type Thresholds struct {
	// MinConfidence is the keypoint score below which a joint counts as
	// missing.
	MinConfidence float64 `yaml:"min_confidence"`

	// HandsUpMargin is how far (px) both wrists must clear the shoulder
	// line, above for "up" and below for "down".
	HandsUpMargin float64 `yaml:"hands_up_margin"`

	// CurlAngle is the elbow angle (degrees) separating a curled arm from an
	// extended one.
	CurlAngle float64 `yaml:"curl_angle"`

	// CurlMargin is the deadband (degrees) either side of CurlAngle.
	CurlMargin float64 `yaml:"curl_margin"`

	// ReachMargin is how far (px) the nose must pass the mean hip height,
	// below for "reaching" and above for "upright".
	ReachMargin float64 `yaml:"reach_margin"`
}

// DefaultThresholds returns the tuning used when the config leaves a value
// unset.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidence: 0.3,
		HandsUpMargin: 50,
		CurlAngle:     90,
		CurlMargin:    10,
		ReachMargin:   30,
	}
}

// WithDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.MinConfidence == 0 {
		t.MinConfidence = d.MinConfidence
	}
	if t.HandsUpMargin == 0 {
		t.HandsUpMargin = d.HandsUpMargin
	}
	if t.CurlAngle == 0 {
		t.CurlAngle = d.CurlAngle
	}
	if t.CurlMargin == 0 {
		t.CurlMargin = d.CurlMargin
	}
	if t.ReachMargin == 0 {
		t.ReachMargin = d.ReachMargin
	}
	return t
}

// Validate rejects thresholds that would make a state unreachable.
func (t Thresholds) Validate() error {
	if t.MinConfidence < 0 || t.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be within [0,1], got %v", t.MinConfidence)
	}
	if t.HandsUpMargin < 0 || t.ReachMargin < 0 || t.CurlMargin < 0 {
		return fmt.Errorf("margins must not be negative")
	}
	if t.CurlAngle-t.CurlMargin <= 0 || t.CurlAngle+t.CurlMargin >= 180 {
		return fmt.Errorf("curl_angle ± curl_margin must stay within (0,180), got %v ± %v", t.CurlAngle, t.CurlMargin)
	}
	return nil
}
