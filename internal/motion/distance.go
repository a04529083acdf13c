package motion

import (
	"math"

	"github.com/ayusman/posecoach/internal/pose"
)

// Method records how a FrameDistance was obtained.
type Method string

const (
	// MethodAligned means the user frame was similarity-aligned onto the reference.
	MethodAligned Method = "aligned"
	// MethodPelvisFallback means alignment failed and both frames were
	// pelvis-normalized instead.
	MethodPelvisFallback Method = "pelvis_fallback"
	// MethodEmpty means the frames had no points in common.
	MethodEmpty Method = "empty"
)

// FrameDistance holds the per-keypoint distances between two frames.
type FrameDistance struct {
	Distances []float64
	Method    Method
}

// Mean returns the average distance. ok is false when there are no distances.
func (d FrameDistance) Mean() (float64, bool) {
	if len(d.Distances) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range d.Distances {
		sum += v
	}
	return sum / float64(len(d.Distances)), true
}

// Max returns the largest distance. ok is false when there are no distances.
func (d FrameDistance) Max() (float64, bool) {
	if len(d.Distances) == 0 {
		return 0, false
	}
	m := d.Distances[0]
	for _, v := range d.Distances[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}

// Distance measures how far the user frame is from the reference frame after
// removing position, scale and in-plane rotation. Only x and y are used and
// both frames are truncated to their common length. It never fails: when the
// frames cannot be aligned they are compared in pelvis-normalized space.
func Distance(user, ref pose.Landmarks) FrameDistance {
	n := min(len(user), len(ref))
	if n == 0 {
		return FrameDistance{Method: MethodEmpty}
	}
	user, ref = user[:n], ref[:n]

	src := project(user)
	dst := project(ref)

	if t, err := Align(src, dst); err == nil {
		moved := t.ApplyAll(src)
		return FrameDistance{Distances: pairwise(moved, dst), Method: MethodAligned}
	}

	return FrameDistance{
		Distances: pairwise(project(user.Normalize()), project(ref.Normalize())),
		Method:    MethodPelvisFallback,
	}
}

// MeanDistance is the per-pair cost used by the sequence matcher: the mean
// aligned distance, or +Inf when the frames cannot be compared.
func MeanDistance(user, ref pose.Landmarks) float64 {
	if avg, ok := Distance(user, ref).Mean(); ok {
		return avg
	}
	return math.Inf(1)
}

func project(lm pose.Landmarks) []Vec2 {
	out := make([]Vec2, len(lm))
	for i, p := range lm {
		out[i] = Vec2{X: p.X, Y: p.Y}
	}
	return out
}

func pairwise(a, b []Vec2) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = math.Hypot(a[i].X-b[i].X, a[i].Y-b[i].Y)
	}
	return out
}
