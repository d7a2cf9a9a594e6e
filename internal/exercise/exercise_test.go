package exercise

import (
	"math"
	"testing"

	"github.com/shravan/physio/internal/pose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kp(name pose.Name, x, y float64) pose.Keypoint {
	return pose.Keypoint{Name: name, X: x, Y: y, Score: 0.9}
}

// handsUpPose places both shoulders at shoulderY and the wrists at the given
// heights.
func handsUpPose(leftWristY, rightWristY, shoulderY float64) pose.Snapshot {
	return pose.Snapshot{Keypoints: []pose.Keypoint{
		kp(pose.LeftShoulder, 260, shoulderY),
		kp(pose.RightShoulder, 380, shoulderY),
		kp(pose.LeftWrist, 240, leftWristY),
		kp(pose.RightWrist, 400, rightWristY),
	}}
}

// curlPose builds both arms with the requested elbow angles (degrees).
func curlPose(leftDeg, rightDeg float64) pose.Snapshot {
	arm := func(shoulder, elbow, wrist pose.Name, ex, deg float64) []pose.Keypoint {
		rad := deg * math.Pi / 180
		return []pose.Keypoint{
			kp(shoulder, ex, 200),
			kp(elbow, ex, 300),
			kp(wrist, ex+100*math.Sin(rad), 300-100*math.Cos(rad)),
		}
	}
	var kps []pose.Keypoint
	kps = append(kps, arm(pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist, 200, leftDeg)...)
	kps = append(kps, arm(pose.RightShoulder, pose.RightElbow, pose.RightWrist, 400, rightDeg)...)
	return pose.Snapshot{Keypoints: kps}
}

func reachPose(noseY, hipY float64) pose.Snapshot {
	return pose.Snapshot{Keypoints: []pose.Keypoint{
		kp(pose.Nose, 300, noseY),
		kp(pose.LeftHip, 280, hipY),
		kp(pose.RightHip, 320, hipY),
		kp(pose.LeftAnkle, 500, hipY+20),
		kp(pose.RightAnkle, 520, hipY+20),
	}}
}

func classifierFor(t *testing.T, typ Type) Classifier {
	t.Helper()
	c, err := NewSet(DefaultThresholds()).Get(typ)
	require.NoError(t, err)
	return c
}

// TestParseType verifies the accepted spellings of each exercise name.
func TestParseType(t *testing.T) {
	cases := map[string]Type{
		"handsUp":       HandsUp,
		"hands_up":      HandsUp,
		"Hands Up":      HandsUp,
		"hands-curl":    HandsCurl,
		"Hands Curl":    HandsCurl,
		"sitAndReach":   SitAndReach,
		"Sit & Reach":   SitAndReach,
		"sit_and_reach": SitAndReach,
	}
	for input, want := range cases {
		got, err := ParseType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseType("jumping jacks")
	assert.Error(t, err)
}

// TestHandsUpCorrectWhenWristsAboveShoulders sweeps wrist and shoulder
// heights: whenever both wrists are numerically above both shoulders the
// frame is correct.
func TestHandsUpCorrectWhenWristsAboveShoulders(t *testing.T) {
	c := classifierFor(t, HandsUp)
	for shoulder := 150.0; shoulder <= 450; shoulder += 50 {
		for lw := 0.0; lw < shoulder; lw += 37 {
			for rw := 0.0; rw < shoulder; rw += 41 {
				form := c.CheckForm(handsUpPose(lw, rw, shoulder))
				require.True(t, form.Correct, "wrists (%v,%v) shoulder %v", lw, rw, shoulder)
				assert.Equal(t, FeedbackGood, form.Feedback)
			}
		}
	}
}

// TestHandsUpIncorrect verifies one lowered wrist fails the form check with
// the first corrective tip.
func TestHandsUpIncorrect(t *testing.T) {
	form := classifierFor(t, HandsUp).CheckForm(handsUpPose(100, 320, 300))
	assert.True(t, form.Detected)
	assert.False(t, form.Correct)
	assert.Equal(t, "Try to raise your hands higher", form.Feedback)
}

// TestMissingKeypointsCannotDetect verifies every exercise reports the
// distinct "cannot detect" result for absent or low-confidence joints.
func TestMissingKeypointsCannotDetect(t *testing.T) {
	lowConfidence := handsUpPose(100, 100, 300)
	lowConfidence.Keypoints[0].Score = 0.1

	cases := []struct {
		name string
		typ  Type
		snap pose.Snapshot
	}{
		{"empty handsUp", HandsUp, pose.Snapshot{}},
		{"low confidence shoulder", HandsUp, lowConfidence},
		{"curl without elbows", HandsCurl, handsUpPose(100, 100, 300)},
		{"reach without ankles", SitAndReach, pose.Snapshot{Keypoints: reachPose(400, 300).Keypoints[:3]}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := classifierFor(t, tc.typ)
			form := c.CheckForm(tc.snap)
			assert.False(t, form.Detected)
			assert.False(t, form.Correct)
			assert.Equal(t, FeedbackCannotDetect, form.Feedback)

			tr := c.NextState(tc.snap, StateUnset)
			assert.False(t, tr.Detected)
			assert.Equal(t, StateUnset, tr.State)
			assert.False(t, tr.RepCompleted)
		})
	}
}

// TestHandsCurlCorrectness verifies either elbow under 90° is enough.
func TestHandsCurlCorrectness(t *testing.T) {
	c := classifierFor(t, HandsCurl)
	assert.True(t, c.CheckForm(curlPose(60, 170)).Correct)
	assert.True(t, c.CheckForm(curlPose(170, 85)).Correct)
	assert.False(t, c.CheckForm(curlPose(120, 170)).Correct)
	assert.Equal(t, "Curl your hands closer to your shoulders", c.CheckForm(curlPose(120, 170)).Feedback)
}

// TestSitAndReachCorrectness verifies the nose must drop below the mean hip
// height.
func TestSitAndReachCorrectness(t *testing.T) {
	c := classifierFor(t, SitAndReach)
	assert.True(t, c.CheckForm(reachPose(310, 300)).Correct)
	assert.False(t, c.CheckForm(reachPose(200, 300)).Correct)
	assert.Equal(t, "Reach further if you can", c.CheckForm(reachPose(200, 300)).Feedback)
}

// TestDeadbandIsWiderThanFormCheck verifies a pose that passes the simple
// inequality but not the margin leaves the state unchanged.
func TestDeadbandIsWiderThanFormCheck(t *testing.T) {
	c := classifierFor(t, HandsUp)
	borderline := handsUpPose(280, 280, 300) // 20px above the shoulders

	assert.True(t, c.CheckForm(borderline).Correct)
	tr := c.NextState(borderline, StateDown)
	assert.True(t, tr.Detected)
	assert.Equal(t, StateDown, tr.State)
	assert.False(t, tr.RepCompleted)
}

// TestRepEdges walks each exercise through its two states and checks that
// only the completion edge counts.
func TestRepEdges(t *testing.T) {
	cases := []struct {
		typ       Type
		a, b      pose.Snapshot
		stateA    State
		stateB    State
		ambiguous pose.Snapshot
	}{
		{HandsUp, handsUpPose(150, 150, 300), handsUpPose(400, 400, 300), StateUp, StateDown, handsUpPose(300, 300, 300)},
		{HandsCurl, curlPose(60, 170), curlPose(170, 170), StateCurled, StateExtended, curlPose(95, 170)},
		{SitAndReach, reachPose(360, 300), reachPose(200, 300), StateReaching, StateUpright, reachPose(300, 300)},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			c := classifierFor(t, tc.typ)
			from, to := c.RepEdge()
			assert.Equal(t, tc.stateA, from)
			assert.Equal(t, tc.stateB, to)

			tr := c.NextState(tc.b, StateUnset)
			assert.Equal(t, tc.stateB, tr.State)
			assert.False(t, tr.RepCompleted, "unset -> B must not count")

			tr = c.NextState(tc.a, tr.State)
			assert.Equal(t, tc.stateA, tr.State)
			assert.False(t, tr.RepCompleted, "B -> A must not count")

			tr = c.NextState(tc.ambiguous, tr.State)
			assert.Equal(t, tc.stateA, tr.State, "ambiguous frame keeps the last state")
			assert.False(t, tr.RepCompleted)

			tr = c.NextState(tc.b, tr.State)
			assert.Equal(t, tc.stateB, tr.State)
			assert.True(t, tr.RepCompleted, "A -> B completes a rep")

			tr = c.NextState(tc.b, tr.State)
			assert.False(t, tr.RepCompleted, "B -> B must not count again")
		})
	}
}

// TestThresholds checks defaults fill zero fields and validation catches a
// curl band outside the angle range.
func TestThresholds(t *testing.T) {
	th := Thresholds{HandsUpMargin: 80}.WithDefaults()
	assert.Equal(t, 80.0, th.HandsUpMargin)
	assert.Equal(t, 0.3, th.MinConfidence)
	assert.NoError(t, th.Validate())

	assert.Error(t, Thresholds{MinConfidence: 1.5, CurlAngle: 90, CurlMargin: 10}.Validate())
	assert.Error(t, Thresholds{MinConfidence: 0.3, CurlAngle: 175, CurlMargin: 10}.Validate())
}

// TestCatalog verifies every exercise has instructions and tips, and that
// callers cannot mutate the shared tip lists.
func TestCatalog(t *testing.T) {
	infos := Catalog()
	require.Len(t, infos, len(Types))
	for _, info := range infos {
		assert.NotEmpty(t, info.Instructions, info.Type)
		assert.Len(t, info.Tips, 3, info.Type)
	}
	infos[0].Tips[0] = "changed"
	assert.Equal(t, "Try to raise your hands higher", Describe(HandsUp).Tips[0])
}
