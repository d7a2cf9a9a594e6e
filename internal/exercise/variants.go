package exercise

import (
	"math"

	"github.com/shravan/physio/internal/pose"
)

// handsUpRules: both wrists above both shoulders. Counts a rep when the
// hands come back down.
func handsUpRules(th Thresholds) rules {
	return rules{
		typ: HandsUp,
		required: []pose.Name{
			pose.LeftWrist, pose.RightWrist, pose.LeftShoulder, pose.RightShoulder,
		},
		edge: [2]State{StateUp, StateDown},
		tip:  catalog[HandsUp].Tips[0],
		correct: func(j joints) bool {
			top := math.Min(j[pose.LeftShoulder].Y, j[pose.RightShoulder].Y)
			return j[pose.LeftWrist].Y < top && j[pose.RightWrist].Y < top
		},
		state: func(j joints) State {
			top := math.Min(j[pose.LeftShoulder].Y, j[pose.RightShoulder].Y)
			bottom := math.Max(j[pose.LeftShoulder].Y, j[pose.RightShoulder].Y)
			highest := math.Min(j[pose.LeftWrist].Y, j[pose.RightWrist].Y)
			lowest := math.Max(j[pose.LeftWrist].Y, j[pose.RightWrist].Y)
			switch {
			case lowest < top-th.HandsUpMargin:
				return StateUp
			case highest > bottom+th.HandsUpMargin:
				return StateDown
			}
			return StateUnset
		},
	}
}

// elbowAngles returns the left and right elbow angles in degrees.
func elbowAngles(j joints) (left, right float64) {
	left = pose.Angle(j[pose.LeftWrist], j[pose.LeftElbow], j[pose.LeftShoulder])
	right = pose.Angle(j[pose.RightWrist], j[pose.RightElbow], j[pose.RightShoulder])
	return left, right
}

// handsCurlRules: either elbow bent past CurlAngle. The state follows the
// more bent arm; a rep completes when it straightens again.
func handsCurlRules(th Thresholds) rules {
	return rules{
		typ: HandsCurl,
		required: []pose.Name{
			pose.LeftWrist, pose.RightWrist, pose.LeftElbow, pose.RightElbow,
			pose.LeftShoulder, pose.RightShoulder,
		},
		edge: [2]State{StateCurled, StateExtended},
		tip:  catalog[HandsCurl].Tips[0],
		correct: func(j joints) bool {
			left, right := elbowAngles(j)
			return left < th.CurlAngle || right < th.CurlAngle
		},
		state: func(j joints) State {
			bent := math.Min(elbowAngles(j))
			switch {
			case bent < th.CurlAngle-th.CurlMargin:
				return StateCurled
			case bent > th.CurlAngle+th.CurlMargin:
				return StateExtended
			}
			return StateUnset
		},
	}
}

// sitAndReachRules: nose below the mean hip height while seated and leaning
// forward. A rep completes on returning upright.
func sitAndReachRules(th Thresholds) rules {
	return rules{
		typ: SitAndReach,
		required: []pose.Name{
			pose.Nose, pose.LeftHip, pose.RightHip, pose.LeftAnkle, pose.RightAnkle,
		},
		edge: [2]State{StateReaching, StateUpright},
		tip:  catalog[SitAndReach].Tips[1],
		correct: func(j joints) bool {
			return j[pose.Nose].Y > pose.MeanY(j[pose.LeftHip], j[pose.RightHip])
		},
		state: func(j joints) State {
			hips := pose.MeanY(j[pose.LeftHip], j[pose.RightHip])
			switch nose := j[pose.Nose].Y; {
			case nose > hips+th.ReachMargin:
				return StateReaching
			case nose < hips-th.ReachMargin:
				return StateUpright
			}
			return StateUnset
		},
	}
}
