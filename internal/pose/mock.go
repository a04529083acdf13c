package pose

import (
	"context"
	"io"
	"sync"
)

// MockSource is a test implementation of the Source interface.
// It plays back a fixed list of samples and then returns io.EOF.
type MockSource struct {
	samples []Sample
	index   int
	err     error
	closed  bool
	mu      sync.Mutex
}

// NewMockSource creates a new MockSource that plays back the given samples.
func NewMockSource(samples []Sample) *MockSource {
	return &MockSource{samples: samples}
}

// SetError sets the error that will be returned by Next.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Next returns the next pre-configured sample.
func (m *MockSource) Next(ctx context.Context) (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if m.err != nil {
		return Sample{}, m.err
	}
	if m.index >= len(m.samples) {
		return Sample{}, io.EOF
	}
	s := m.samples[m.index]
	m.index++
	return s, nil
}

// Close marks the source as closed.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockClassifier returns a pre-configured label or error.
type MockClassifier struct {
	Label string
	Err   error
	Calls int
}

// Classify returns the configured label or error.
func (m *MockClassifier) Classify(_ context.Context, lm Landmarks) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Label, nil
}

// Close is a no-op for the mock classifier.
func (m *MockClassifier) Close() error {
	return nil
}

// StandingLandmarks returns a preset frame of a person standing upright,
// facing the camera, arms relaxed, whole body in view.
func StandingLandmarks() Landmarks {
	lm := make(Landmarks, NumLandmarks)

	// Face
	lm[Nose] = Point3D{X: 0.50, Y: 0.15}
	lm[1] = Point3D{X: 0.51, Y: 0.13}
	lm[2] = Point3D{X: 0.52, Y: 0.13}
	lm[3] = Point3D{X: 0.53, Y: 0.13}
	lm[4] = Point3D{X: 0.49, Y: 0.13}
	lm[5] = Point3D{X: 0.48, Y: 0.13}
	lm[6] = Point3D{X: 0.47, Y: 0.13}
	lm[7] = Point3D{X: 0.54, Y: 0.14}
	lm[8] = Point3D{X: 0.46, Y: 0.14}
	lm[9] = Point3D{X: 0.51, Y: 0.17}
	lm[10] = Point3D{X: 0.49, Y: 0.17}

	// Arms hanging at the sides
	lm[LeftShoulder] = Point3D{X: 0.58, Y: 0.25, Z: -0.05}
	lm[RightShoulder] = Point3D{X: 0.42, Y: 0.25, Z: -0.05}
	lm[LeftElbow] = Point3D{X: 0.60, Y: 0.38, Z: -0.03}
	lm[RightElbow] = Point3D{X: 0.40, Y: 0.38, Z: -0.03}
	lm[LeftWrist] = Point3D{X: 0.61, Y: 0.50, Z: -0.02}
	lm[RightWrist] = Point3D{X: 0.39, Y: 0.50, Z: -0.02}
	lm[17] = Point3D{X: 0.62, Y: 0.53}
	lm[18] = Point3D{X: 0.38, Y: 0.53}
	lm[19] = Point3D{X: 0.615, Y: 0.54}
	lm[20] = Point3D{X: 0.385, Y: 0.54}
	lm[21] = Point3D{X: 0.60, Y: 0.52}
	lm[22] = Point3D{X: 0.40, Y: 0.52}

	// Legs
	lm[LeftHip] = Point3D{X: 0.55, Y: 0.55}
	lm[RightHip] = Point3D{X: 0.45, Y: 0.55}
	lm[LeftKnee] = Point3D{X: 0.55, Y: 0.72}
	lm[RightKnee] = Point3D{X: 0.45, Y: 0.72}
	lm[LeftAnkle] = Point3D{X: 0.55, Y: 0.88}
	lm[RightAnkle] = Point3D{X: 0.45, Y: 0.88}
	lm[29] = Point3D{X: 0.555, Y: 0.90}
	lm[30] = Point3D{X: 0.445, Y: 0.90}
	lm[31] = Point3D{X: 0.56, Y: 0.92}
	lm[32] = Point3D{X: 0.44, Y: 0.92}

	return lm
}

// ArmsRaisedLandmarks returns a preset frame of the standing pose with both
// arms raised above the head.
func ArmsRaisedLandmarks() Landmarks {
	lm := StandingLandmarks()

	lm[LeftElbow] = Point3D{X: 0.62, Y: 0.15, Z: -0.03}
	lm[RightElbow] = Point3D{X: 0.38, Y: 0.15, Z: -0.03}
	lm[LeftWrist] = Point3D{X: 0.63, Y: 0.05, Z: -0.02}
	lm[RightWrist] = Point3D{X: 0.37, Y: 0.05, Z: -0.02}
	lm[17] = Point3D{X: 0.64, Y: 0.02}
	lm[18] = Point3D{X: 0.36, Y: 0.02}
	lm[19] = Point3D{X: 0.635, Y: 0.01}
	lm[20] = Point3D{X: 0.365, Y: 0.01}
	lm[21] = Point3D{X: 0.62, Y: 0.03}
	lm[22] = Point3D{X: 0.38, Y: 0.03}

	return lm
}

// SideBendLandmarks returns a preset frame of the standing pose with the trunk
// bent towards the subject's right: shoulders shifted sideways and tilted.
func SideBendLandmarks() Landmarks {
	lm := StandingLandmarks()

	shift := func(i int, dx, dy float64) {
		lm[i].X += dx
		lm[i].Y += dy
	}
	for i := Nose; i <= 10; i++ {
		shift(i, -0.10, 0.03)
	}
	shift(LeftShoulder, -0.07, -0.01)
	shift(RightShoulder, -0.09, 0.05)
	for _, i := range []int{LeftElbow, LeftWrist, 17, 19, 21} {
		shift(i, -0.06, 0.0)
	}
	for _, i := range []int{RightElbow, RightWrist, 18, 20, 22} {
		shift(i, -0.08, 0.06)
	}

	return lm
}

// Interpolate blends from a to b; t=0 yields a and t=1 yields b.
// The result has the length of the shorter frame.
func Interpolate(a, b Landmarks, t float64) Landmarks {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make(Landmarks, n)
	s := 1 - t
	for i := 0; i < n; i++ {
		out[i] = Point3D{
			X: s*a[i].X + t*b[i].X,
			Y: s*a[i].Y + t*b[i].Y,
			Z: s*a[i].Z + t*b[i].Z,
		}
	}
	return out
}
