// Package pose provides the body keypoint model and the interfaces of the
// collaborators that produce keypoints and condition labels.
package pose

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Pose landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28
	NumLandmarks  = 33
)

// Point3D represents a keypoint with x, y normalized to the image and an
// unreliable depth z.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmarks is one keypoint set ("frame"). Every frame shares the same index
// semantics; comparisons between frames of different length use the shorter.
type Landmarks []Point3D

// FromFlat converts a flat [x0,y0,z0,x1,y1,z1,...] slice into Landmarks.
// A trailing partial triple is dropped.
func FromFlat(flat []float64) Landmarks {
	n := len(flat) / 3
	if n == 0 {
		return nil
	}
	lm := make(Landmarks, n)
	for i := 0; i < n; i++ {
		lm[i] = Point3D{X: flat[3*i], Y: flat[3*i+1], Z: flat[3*i+2]}
	}
	return lm
}

// Flat returns the landmarks as a flat [x,y,z,...] slice.
func (l Landmarks) Flat() []float64 {
	flat := make([]float64, 0, 3*len(l))
	for _, p := range l {
		flat = append(flat, p.X, p.Y, p.Z)
	}
	return flat
}

// Clone returns a copy that does not share storage with l.
func (l Landmarks) Clone() Landmarks {
	if l == nil {
		return nil
	}
	out := make(Landmarks, len(l))
	copy(out, l)
	return out
}

// Has reports whether index i is present.
func (l Landmarks) Has(i int) bool {
	return i >= 0 && i < len(l)
}

// UnmarshalJSON accepts either a flat number array or an array of point objects.
func (l *Landmarks) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}

	var flat []float64
	if err := json.Unmarshal(trimmed, &flat); err == nil {
		if len(flat)%3 != 0 {
			return fmt.Errorf("flat landmarks length %d is not a multiple of 3", len(flat))
		}
		*l = FromFlat(flat)
		return nil
	}

	var points []Point3D
	if err := json.Unmarshal(trimmed, &points); err != nil {
		return fmt.Errorf("parse landmarks: %w", err)
	}
	*l = Landmarks(points)
	return nil
}

// Midpoint returns the midpoint of two points.
func Midpoint(a, b Point3D) Point3D {
	return Point3D{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: (a.Z + b.Z) / 2}
}

// distance2D calculates the Euclidean distance between two points in the image plane.
func distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Centers returns the hip midpoint and shoulder midpoint. Frames too short to
// hold the hip landmarks use their centroid for both.
func (l Landmarks) Centers() (hip, shoulder Point3D) {
	if len(l) > RightHip {
		hip = Midpoint(l[LeftHip], l[RightHip])
		shoulder = Midpoint(l[LeftShoulder], l[RightShoulder])
		return hip, shoulder
	}
	c := l.Centroid()
	return c, c
}

// Centroid returns the mean of all points.
func (l Landmarks) Centroid() Point3D {
	var c Point3D
	if len(l) == 0 {
		return c
	}
	for _, p := range l {
		c.X += p.X
		c.Y += p.Y
		c.Z += p.Z
	}
	n := float64(len(l))
	return Point3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

// TorsoLength returns the 2-D distance from the hip midpoint to the shoulder midpoint.
func (l Landmarks) TorsoLength() float64 {
	hip, shoulder := l.Centers()
	return distance2D(hip, shoulder)
}

// Normalize returns landmarks with the hip midpoint at the origin, scaled so
// the distance from hip midpoint to shoulder midpoint is 1.0.
// When that distance is (near) zero the points are only translated.
func (l Landmarks) Normalize() Landmarks {
	if len(l) == 0 {
		return nil
	}

	hip, shoulder := l.Centers()

	scale := distance3D(hip, shoulder)
	// Avoid division by zero
	if scale <= 1e-6 {
		scale = 1.0
	}

	normalized := make(Landmarks, len(l))
	for i, p := range l {
		normalized[i] = Point3D{
			X: (p.X - hip.X) / scale,
			Y: (p.Y - hip.Y) / scale,
			Z: (p.Z - hip.Z) / scale,
		}
	}
	return normalized
}

// Mean returns the elementwise mean of the given frames, truncated to the
// shortest frame. A single frame is returned unchanged.
func Mean(frames []Landmarks) Landmarks {
	switch len(frames) {
	case 0:
		return nil
	case 1:
		return frames[0]
	}

	n := len(frames[0])
	for _, f := range frames[1:] {
		if len(f) < n {
			n = len(f)
		}
	}

	mean := make(Landmarks, n)
	count := float64(len(frames))
	for i := 0; i < n; i++ {
		var sumX, sumY, sumZ float64
		for _, f := range frames {
			sumX += f[i].X
			sumY += f[i].Y
			sumZ += f[i].Z
		}
		mean[i] = Point3D{X: sumX / count, Y: sumY / count, Z: sumZ / count}
	}
	return mean
}
