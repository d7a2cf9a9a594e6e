package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec returns the keypoint position as a gonum vector.
func (k Keypoint) Vec() r2.Vec {
	return r2.Vec{X: k.X, Y: k.Y}
}

// Angle returns the angle at vertex between the rays vertex→a and vertex→b,
// in degrees within [0, 180]. A zero-length ray yields 180 so that a
// collapsed joint never reads as a tight bend.
func Angle(a, vertex, b Keypoint) float64 {
	u := r2.Sub(a.Vec(), vertex.Vec())
	v := r2.Sub(b.Vec(), vertex.Vec())
	nu, nv := r2.Norm(u), r2.Norm(v)
	if nu == 0 || nv == 0 {
		return 180
	}
	cos := r2.Dot(u, v) / (nu * nv)
	// Rounding can push |cos| slightly past 1.
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// MeanY averages the vertical coordinate of the given keypoints.
func MeanY(kps ...Keypoint) float64 {
	if len(kps) == 0 {
		return 0
	}
	var sum float64
	for _, kp := range kps {
		sum += kp.Y
	}
	return sum / float64(len(kps))
}
