package pose

// Bone is a line segment between two keypoints, used by overlay renderers.
type Bone struct {
	From Keypoint `json:"from"`
	To   Keypoint `json:"to"`
}

// skeleton pairs keypoints the way COCO pose renderers draw limbs.
var skeleton = [][2]Name{
	{LeftAnkle, LeftKnee},
	{LeftKnee, LeftHip},
	{RightAnkle, RightKnee},
	{RightKnee, RightHip},
	{LeftHip, RightHip},
	{LeftShoulder, LeftHip},
	{RightShoulder, RightHip},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow},
	{RightShoulder, RightElbow},
	{LeftElbow, LeftWrist},
	{RightElbow, RightWrist},
	{LeftEye, RightEye},
	{Nose, LeftEye},
	{Nose, RightEye},
	{LeftEye, LeftEar},
	{RightEye, RightEar},
	{LeftEar, LeftShoulder},
	{RightEar, RightShoulder},
}

// Skeleton returns the bones whose endpoints are both present with at
// least minScore.
func (s Snapshot) Skeleton(minScore float64) []Bone {
	var bones []Bone
	for _, pair := range skeleton {
		a, ok := s.Lookup(pair[0], minScore)
		if !ok {
			continue
		}
		b, ok := s.Lookup(pair[1], minScore)
		if !ok {
			continue
		}
		bones = append(bones, Bone{From: a, To: b})
	}
	return bones
}

// Confident returns only the keypoints scoring at least minScore.
func (s Snapshot) Confident(minScore float64) []Keypoint {
	out := make([]Keypoint, 0, len(s.Keypoints))
	for _, kp := range s.Keypoints {
		if kp.Score >= minScore {
			out = append(out, kp)
		}
	}
	return out
}
