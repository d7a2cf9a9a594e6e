package exercise

import (
	"fmt"

	"github.com/shravan/physio/internal/pose"
)

// Feedback shown when the form check cannot run or passes.
const (
	FeedbackCannotDetect = "cannot detect required joints"
	FeedbackGood         = "Great job! Keep going!"
)

// Form is the per-frame correctness judgment.
type Form struct {
	// Detected is false when a required joint was missing or below the
	// confidence threshold; Correct is then always false.
	Detected bool
	Correct  bool
	Feedback string
}

// Transition is the outcome of feeding one frame to the rep state machine.
type Transition struct {
	Detected     bool
	State        State
	RepCompleted bool
}

// Classifier is the uniform interface every exercise variant implements.
type Classifier interface {
	Type() Type
	// CheckForm judges the current frame against the exercise's form rule.
	CheckForm(s pose.Snapshot) Form
	// NextState classifies the frame into one of the exercise's pose
	// states, keeping prev when the pose sits inside the deadband, and
	// reports whether the move from prev completed a repetition.
	NextState(s pose.Snapshot, prev State) Transition
	// RepEdge returns the (from, to) state pair that counts one rep.
	RepEdge() (from, to State)
}

type joints = map[pose.Name]pose.Keypoint

// rules carries the exercise-specific geometry. state returns StateUnset
// when the pose is inside the deadband.
type rules struct {
	typ      Type
	required []pose.Name
	edge     [2]State
	tip      string
	correct  func(j joints) bool
	state    func(j joints) State
}

type classifier struct {
	rules
	minScore float64
}

func (c *classifier) Type() Type { return c.typ }

func (c *classifier) RepEdge() (State, State) { return c.edge[0], c.edge[1] }

func (c *classifier) CheckForm(s pose.Snapshot) Form {
	j, ok := s.Require(c.minScore, c.required...)
	if !ok {
		return Form{Feedback: FeedbackCannotDetect}
	}
	if c.correct(j) {
		return Form{Detected: true, Correct: true, Feedback: FeedbackGood}
	}
	return Form{Detected: true, Feedback: c.tip}
}

func (c *classifier) NextState(s pose.Snapshot, prev State) Transition {
	j, ok := s.Require(c.minScore, c.required...)
	if !ok {
		return Transition{State: prev}
	}
	next := c.state(j)
	if next == StateUnset {
		return Transition{Detected: true, State: prev}
	}
	return Transition{
		Detected:     true,
		State:        next,
		RepCompleted: prev == c.edge[0] && next == c.edge[1],
	}
}

// Set is the dispatch table from exercise type to its classifier.
type Set map[Type]Classifier

// NewSet builds one classifier per supported exercise.
func NewSet(th Thresholds) Set {
	th = th.WithDefaults()
	set := make(Set, len(Types))
	for _, r := range []rules{handsUpRules(th), handsCurlRules(th), sitAndReachRules(th)} {
		set[r.typ] = &classifier{rules: r, minScore: th.MinConfidence}
	}
	return set
}

// Get returns the classifier for t.
func (s Set) Get(t Type) (Classifier, error) {
	c, ok := s[t]
	if !ok {
		return nil, fmt.Errorf("no classifier for exercise %q", t)
	}
	return c, nil
}
