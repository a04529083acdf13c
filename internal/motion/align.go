// Package motion compares live keypoint frames against reference motion:
// rigid 2-D alignment, per-frame distances, dynamic time warping and the
// short history buffer used to smooth live input.
package motion

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Alignment errors. Callers treat all of them as "fall back to pelvis
// normalization".
var (
	ErrLengthMismatch = errors.New("point sets differ in length")
	ErrTooFewPoints   = errors.New("at least two points are required")
	ErrDegenerate     = errors.New("degenerate point configuration")
)

// minSourceVariance is the variance below which the source set is treated as
// collapsed to a point.
const minSourceVariance = 1e-8

// Vec2 is a point in the image plane.
type Vec2 struct {
	X, Y float64
}

// Similarity is a 2-D similarity transform: p' = Scale * Rotation * p + Translation.
type Similarity struct {
	Scale       float64
	Rotation    [2][2]float64
	Translation [2]float64
}

// Identity returns the identity transform.
func Identity() Similarity {
	return Similarity{
		Scale:    1,
		Rotation: [2][2]float64{{1, 0}, {0, 1}},
	}
}

// Apply transforms a single point.
func (s Similarity) Apply(p Vec2) Vec2 {
	r := s.Rotation
	return Vec2{
		X: s.Scale*(r[0][0]*p.X+r[0][1]*p.Y) + s.Translation[0],
		Y: s.Scale*(r[1][0]*p.X+r[1][1]*p.Y) + s.Translation[1],
	}
}

// ApplyAll transforms every point of pts into a new slice.
func (s Similarity) ApplyAll(pts []Vec2) []Vec2 {
	out := make([]Vec2, len(pts))
	for i, p := range pts {
		out[i] = s.Apply(p)
	}
	return out
}

// Align computes the least-squares similarity transform mapping src onto dst
// (Umeyama's closed form). Rotation is always proper: reflections are
// corrected by flipping the last singular direction.
func Align(src, dst []Vec2) (Similarity, error) {
	if len(src) != len(dst) {
		return Similarity{}, ErrLengthMismatch
	}
	n := len(src)
	if n < 2 {
		return Similarity{}, ErrTooFewPoints
	}

	// 1. Centroids and source variance
	muSrc := centroid(src)
	muDst := centroid(dst)

	var varSrc float64
	cov := mat.NewDense(2, 2, nil)
	for i := 0; i < n; i++ {
		sx, sy := src[i].X-muSrc.X, src[i].Y-muSrc.Y
		dx, dy := dst[i].X-muDst.X, dst[i].Y-muDst.Y
		varSrc += sx*sx + sy*sy
		cov.Set(0, 0, cov.At(0, 0)+dx*sx)
		cov.Set(0, 1, cov.At(0, 1)+dx*sy)
		cov.Set(1, 0, cov.At(1, 0)+dy*sx)
		cov.Set(1, 1, cov.At(1, 1)+dy*sy)
	}
	varSrc /= float64(n)
	cov.Scale(1/float64(n), cov)

	if varSrc <= minSourceVariance || math.IsNaN(varSrc) {
		return Similarity{}, ErrDegenerate
	}

	// 2. SVD of the cross-covariance
	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return Similarity{}, ErrDegenerate
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	d := svd.Values(nil)

	// 3. Reflection correction
	sign := [2]float64{1, 1}
	if mat.Det(&u)*mat.Det(&v) < 0 {
		sign[1] = -1
	}

	// R = U * diag(sign) * V^T
	var rot mat.Dense
	us := mat.NewDense(2, 2, []float64{
		u.At(0, 0) * sign[0], u.At(0, 1) * sign[1],
		u.At(1, 0) * sign[0], u.At(1, 1) * sign[1],
	})
	rot.Mul(us, v.T())

	// 4. Scale and translation
	scale := (d[0]*sign[0] + d[1]*sign[1]) / varSrc

	t := Similarity{
		Scale: scale,
		Rotation: [2][2]float64{
			{rot.At(0, 0), rot.At(0, 1)},
			{rot.At(1, 0), rot.At(1, 1)},
		},
	}
	moved := t.Apply(muSrc)
	t.Translation = [2]float64{muDst.X - moved.X, muDst.Y - moved.Y}

	if !t.finite() {
		return Similarity{}, ErrDegenerate
	}
	return t, nil
}

func (s Similarity) finite() bool {
	vals := []float64{
		s.Scale,
		s.Rotation[0][0], s.Rotation[0][1], s.Rotation[1][0], s.Rotation[1][1],
		s.Translation[0], s.Translation[1],
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func centroid(pts []Vec2) Vec2 {
	var c Vec2
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(pts))
	return Vec2{X: c.X / n, Y: c.Y / n}
}
