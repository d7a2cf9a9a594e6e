// Package pose holds the per-frame body keypoints produced by an external
// pose estimator and the small amount of geometry the exercise classifiers
// need on top of them.
package pose

import "strings"

// Name is an anatomical keypoint label in the COCO/MoveNet 17-point layout.
type Name string

const (
	Nose          Name = "nose"
	LeftEye       Name = "left_eye"
	RightEye      Name = "right_eye"
	LeftEar       Name = "left_ear"
	RightEar      Name = "right_ear"
	LeftShoulder  Name = "left_shoulder"
	RightShoulder Name = "right_shoulder"
	LeftElbow     Name = "left_elbow"
	RightElbow    Name = "right_elbow"
	LeftWrist     Name = "left_wrist"
	RightWrist    Name = "right_wrist"
	LeftHip       Name = "left_hip"
	RightHip      Name = "right_hip"
	LeftKnee      Name = "left_knee"
	RightKnee     Name = "right_knee"
	LeftAnkle     Name = "left_ankle"
	RightAnkle    Name = "right_ankle"
)

// Names lists every keypoint in model output order.
var Names = []Name{
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow,
	LeftWrist, RightWrist, LeftHip, RightHip,
	LeftKnee, RightKnee, LeftAnkle, RightAnkle,
}

var knownNames = func() map[Name]bool {
	m := make(map[Name]bool, len(Names))
	for _, n := range Names {
		m[n] = true
	}
	return m
}()

// ParseName maps an estimator label to a Name. Labels are matched
// case-insensitively and may use spaces or dashes instead of underscores
// ("Left Wrist", "left-wrist").
func ParseName(s string) (Name, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	n := Name(s)
	return n, knownNames[n]
}

// Keypoint is one detected landmark in frame pixel space. Y grows downward.
type Keypoint struct {
	Name  Name    `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Snapshot is the set of keypoints detected for a single person in one
// frame. An empty snapshot means nobody was detected.
type Snapshot struct {
	Keypoints []Keypoint `json:"keypoints"`
}

// Empty reports whether the snapshot carries no keypoints.
func (s Snapshot) Empty() bool {
	return len(s.Keypoints) == 0
}

// Lookup returns the named keypoint if it is present with a score of at
// least minScore. When a name appears more than once the first entry wins.
func (s Snapshot) Lookup(name Name, minScore float64) (Keypoint, bool) {
	for _, kp := range s.Keypoints {
		if kp.Name != name {
			continue
		}
		if kp.Score < minScore {
			return Keypoint{}, false
		}
		return kp, true
	}
	return Keypoint{}, false
}

// Require looks up every name and returns them keyed by name. ok is false
// if any of them is absent or below minScore.
func (s Snapshot) Require(minScore float64, names ...Name) (map[Name]Keypoint, bool) {
	out := make(map[Name]Keypoint, len(names))
	for _, n := range names {
		kp, ok := s.Lookup(n, minScore)
		if !ok {
			return nil, false
		}
		out[n] = kp
	}
	return out, true
}
